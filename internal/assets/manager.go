package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/assetkind"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/cache"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/fetch"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/logging"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/manifest"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/metrics"
)

// Source 是 Manager 所需的获取能力；Supports 为 false 的 URL 会被忽略而不是报错。
type Source interface {
	fetch.Fetcher
	Supports(rawURL string) bool
}

// Options 配置 Manager。
type Options struct {
	Store   cache.Store
	Source  Source
	Logger  *logrus.Logger
	Metrics *metrics.Recorder
	// HashLength<=0 使用完整 sha1 摘要。
	HashLength int
	// Concurrency 限制同时处理的文件数，默认 1。
	Concurrency int
	// HeadCheck 为 false 时跳过所有新鲜度探测，退化为纯哈希缓存。
	HeadCheck bool
}

// Manager 负责 orchestrate “命中判断 → 探测 → 下载写缓存 → 重写 manifest” 的全流程。
type Manager struct {
	store       cache.Store
	source      Source
	logger      *logrus.Logger
	metrics     *metrics.Recorder
	hashLength  int
	concurrency int
	headCheck   bool
	now         func() time.Time
}

// NewManager 构造 Manager，Store 与 Source 必填。
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("assets: store is required")
	}
	if opts.Source == nil {
		return nil, errors.New("assets: source is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Manager{
		store:       opts.Store,
		source:      opts.Source,
		logger:      logger,
		metrics:     opts.Metrics,
		hashLength:  opts.HashLength,
		concurrency: concurrency,
		headCheck:   opts.HeadCheck,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// fileTask 聚合落到同一个缓存文件的槽位，保证同一文件在一次运行中只处理一次。
type fileTask struct {
	filename string
	plans    []int
	prior    *fetch.Signature
	priorAt  time.Time

	entry     *cache.Entry
	signature *fetch.Signature
	outcome   Outcome
}

// Prepare 确保请求中每个可获取的槽位都已在本地缓存，并返回映射与 manifest 结果。
// 任一下载失败都会让整次调用失败；探测失败只会记录日志并保留已有文件。
func (m *Manager) Prepare(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	if err := validateNamespace(req.Namespace); err != nil {
		return nil, err
	}
	plans, err := normalize(req.Descriptors, m.hashLength)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if req.Disabled {
		return passthrough(runID, req.Namespace, plans), nil
	}

	dir, err := m.store.NamespaceDir(req.Namespace)
	if err != nil {
		return nil, fmt.Errorf("prepare namespace dir: %w", err)
	}

	man, status, loadErr := manifest.Load(dir)
	if loadErr != nil {
		m.logger.WithFields(logrus.Fields{
			"action":    "prepare",
			"run_id":    runID,
			"namespace": req.Namespace,
			"error":     loadErr.Error(),
		}).Warn("manifest_discarded")
	}
	man.Namespace = req.Namespace

	result := &Result{
		RunID:          runID,
		Namespace:      req.Namespace,
		Dir:            dir,
		AssetMap:       make(map[string]string),
		ManifestStatus: status,
	}

	tasks, ignored := m.plan(plans, man)
	result.Ignored = ignored

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, task := range tasks {
		g.Go(func() error {
			return m.process(gctx, runID, req, plans, task)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	updates := make(map[string]manifest.SlotEntry, len(plans))
	downloaded := map[string]struct{}{}
	skipped := map[string]struct{}{}
	for _, task := range tasks {
		for _, idx := range task.plans {
			plan := plans[idx]
			result.Slots = append(result.Slots, SlotResult{
				Slot:       plan.Slot,
				Kind:       plan.Kind,
				URL:        plan.URL,
				Filename:   task.filename,
				Path:       task.entry.FilePath,
				PublicPath: cache.PublicPath(task.filename),
				Signature:  task.signature,
				Outcome:    task.outcome,
				SizeBytes:  task.entry.SizeBytes,
			})
			result.AssetMap[plan.URL] = cache.PublicPath(task.filename)

			cachedAt := task.priorAt
			if task.outcome != OutcomeCached || cachedAt.IsZero() {
				cachedAt = task.entry.ModTime.UTC()
			}
			updates[plan.Slot] = manifest.SlotEntry{
				URL:       plan.URL,
				Kind:      plan.Kind,
				Filename:  task.filename,
				Signature: task.signature,
				CachedAt:  cachedAt,
			}
			if task.outcome == OutcomeCached {
				skipped[plan.URL] = struct{}{}
			} else {
				downloaded[plan.URL] = struct{}{}
			}
		}
	}
	sort.Slice(result.Slots, func(i, j int) bool { return result.Slots[i].Slot < result.Slots[j].Slot })
	result.Downloaded = sortedKeys(downloaded)
	result.Skipped = sortedKeys(skipped)

	man.Merge(updates)
	if err := manifest.Save(dir, man); err != nil {
		m.logger.WithFields(logrus.Fields{
			"action":    "prepare",
			"run_id":    runID,
			"namespace": req.Namespace,
			"error":     err.Error(),
		}).Warn("manifest_save_failed")
	}

	result.Elapsed = time.Since(started)
	m.metrics.ObservePrepareSeconds(result.Elapsed.Seconds())
	m.logger.WithFields(logrus.Fields{
		"action":      "prepare",
		"run_id":      runID,
		"namespace":   req.Namespace,
		"downloaded":  len(result.Downloaded),
		"skipped":     len(result.Skipped),
		"ignored":     len(result.Ignored),
		"manifest":    string(status),
		"elapsed_ms":  result.Elapsed.Milliseconds(),
		"refresh":     req.Refresh,
		"slots_total": len(result.Slots),
	}).Info("prepare_complete")
	return result, nil
}

// plan 把槽位按文件名分组，并从 manifest 中取出上一次记录的签名。
func (m *Manager) plan(plans []slotPlan, man *manifest.Manifest) ([]*fileTask, []string) {
	byFile := map[string]*fileTask{}
	var tasks []*fileTask
	var ignored []string
	for i, plan := range plans {
		if plan.URL == "" || !m.source.Supports(plan.URL) {
			ignored = append(ignored, plan.Slot)
			continue
		}
		task, ok := byFile[plan.filename]
		if !ok {
			task = &fileTask{filename: plan.filename}
			byFile[plan.filename] = task
			tasks = append(tasks, task)
		}
		task.plans = append(task.plans, i)
		if task.prior == nil {
			if entry, ok := man.Get(plan.Slot); ok && entry.Filename == plan.filename && entry.URL == plan.URL {
				task.prior = entry.Signature
				task.priorAt = entry.CachedAt
			}
		}
	}
	sort.Strings(ignored)
	return tasks, ignored
}

func (m *Manager) process(ctx context.Context, runID string, req Request, plans []slotPlan, task *fileTask) error {
	lead := plans[task.plans[0]]
	locator := cache.Locator{Namespace: req.Namespace, Filename: task.filename}
	fields := logging.SlotFields(req.Namespace, lead.Slot, lead.Kind, lead.URL)
	fields["action"] = "prepare"
	fields["run_id"] = runID
	fields["filename"] = task.filename

	entry, err := m.store.Stat(ctx, locator)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return fmt.Errorf("stat %s: %w", task.filename, err)
	}
	exists := err == nil
	validate := m.headCheck && lead.validation == assetkind.ValidationModeSignature

	act := decide(exists, req.Refresh, validate)
	fields["decision"] = act.String()

	switch act {
	case actionKeep:
		task.entry, task.signature, task.outcome = entry, task.prior, OutcomeCached
	case actionRevalidate:
		remote, probeErr := m.source.Probe(ctx, lead.URL)
		v := assess(task.prior, remote, probeErr)
		if probeErr != nil {
			m.metrics.ObserveProbeFailure(lead.Kind)
			m.logger.WithFields(fields).WithField("error", probeErr.Error()).Warn("probe_failed")
		}
		if !v.redownload {
			task.entry, task.signature, task.outcome = entry, v.signature, OutcomeCached
			break
		}
		fields["reason"] = v.reason
		if err := m.download(ctx, locator, lead, task, OutcomeRefreshed); err != nil {
			return err
		}
	case actionRefresh:
		if err := m.download(ctx, locator, lead, task, OutcomeRefreshed); err != nil {
			return err
		}
	default:
		if err := m.download(ctx, locator, lead, task, OutcomeDownloaded); err != nil {
			return err
		}
	}

	m.metrics.ObserveSlot(lead.Kind, string(task.outcome))
	fields["outcome"] = string(task.outcome)
	fields["size_bytes"] = task.entry.SizeBytes
	if task.outcome == OutcomeCached {
		m.logger.WithFields(fields).Debug("asset_cache_hit")
	} else {
		m.logger.WithFields(fields).Info("asset_downloaded")
	}
	return nil
}

func (m *Manager) download(ctx context.Context, locator cache.Locator, plan slotPlan, task *fileTask, outcome Outcome) error {
	dl, err := m.source.Fetch(ctx, plan.URL)
	if err != nil {
		m.metrics.ObserveDownloadFailure(plan.Kind)
		return err
	}
	defer dl.Body.Close()

	entry, err := m.store.Put(ctx, locator, &nonEmptyReader{r: dl.Body}, cache.PutOptions{ModTime: dl.ModTime})
	if err != nil {
		m.metrics.ObserveDownloadFailure(plan.Kind)
		if errors.Is(err, errEmptyBody) {
			return &fetch.DownloadError{URL: plan.URL, Reason: "empty response body", Err: err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &fetch.DownloadError{URL: plan.URL, Reason: "write cache file", Err: err}
	}

	m.metrics.AddDownloadedBytes(plan.Kind, entry.SizeBytes)
	var sig *fetch.Signature
	if !dl.Signature.Empty() {
		s := dl.Signature
		sig = &s
	}
	task.entry, task.signature, task.outcome = entry, sig, outcome
	return nil
}

func passthrough(runID, namespace string, plans []slotPlan) *Result {
	result := &Result{
		RunID:      runID,
		Namespace:  namespace,
		AssetMap:   make(map[string]string, len(plans)),
		Downloaded: []string{},
		Skipped:    []string{},
	}
	for _, plan := range plans {
		if plan.URL == "" {
			result.Ignored = append(result.Ignored, plan.Slot)
			continue
		}
		result.Slots = append(result.Slots, SlotResult{
			Slot:       plan.Slot,
			Kind:       plan.Kind,
			URL:        plan.URL,
			PublicPath: plan.URL,
			Outcome:    OutcomePassthrough,
		})
		result.AssetMap[plan.URL] = plan.URL
	}
	sort.Slice(result.Slots, func(i, j int) bool { return result.Slots[i].Slot < result.Slots[j].Slot })
	sort.Strings(result.Ignored)
	return result
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

var errEmptyBody = errors.New("empty response body")

// nonEmptyReader 在读到 EOF 却一个字节都没有时返回 errEmptyBody，
// 使 Put 丢弃临时文件而不是用空文件覆盖已有缓存。
type nonEmptyReader struct {
	r io.Reader
	n int64
}

func (r *nonEmptyReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.n += int64(n)
	if err == io.EOF && r.n == 0 {
		return n, errEmptyBody
	}
	return n, err
}
