package publicdir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/cache"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/metrics"
)

const (
	defaultLockTimeout = 30 * time.Second
	lockRetryDelay     = 100 * time.Millisecond
)

// Options 描述一次合并的输入。
type Options struct {
	NamespaceDir string
	// StaticDir 可为空或不存在，此时只放入命名空间文件。
	StaticDir string
	MergedDir string
	// ExcludeSuffixes 为 nil 时使用 cache.DefaultExcludeSuffixes。
	ExcludeSuffixes []string
	LockTimeout     time.Duration
	Logger          *logrus.Logger
	Metrics         *metrics.Recorder
}

// Report 统计本次合并的放置方式。
type Report struct {
	MergedDir string        `json:"merged_dir"`
	Linked    int           `json:"linked"`
	Copied    int           `json:"copied"`
	Skipped   int           `json:"skipped"`
	Elapsed   time.Duration `json:"-"`
}

func (r *Report) record(p placement) {
	switch p {
	case placedLink:
		r.Linked++
	case placedCopy:
		r.Copied++
	default:
		r.Skipped++
	}
}

// Merge 删除并重建 MergedDir：先递归放入 StaticDir，再把命名空间目录下的普通文件放到根目录。
// 同一个 MergedDir 的重建由文件锁串行化。
func Merge(ctx context.Context, opts Options) (*Report, error) {
	started := time.Now()
	if err := checkLayout(&opts); err != nil {
		return nil, err
	}
	excludes := opts.ExcludeSuffixes

	unlock, err := acquire(ctx, opts.MergedDir, opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := os.RemoveAll(opts.MergedDir); err != nil {
		return nil, fmt.Errorf("clear merged dir: %w", err)
	}
	if err := os.MkdirAll(opts.MergedDir, 0o755); err != nil {
		return nil, fmt.Errorf("create merged dir: %w", err)
	}

	report := &Report{MergedDir: opts.MergedDir}
	if opts.StaticDir != "" {
		if err := mergeStatic(ctx, opts.StaticDir, opts.MergedDir, report); err != nil {
			return nil, err
		}
	}
	if err := mergeNamespace(ctx, opts.NamespaceDir, opts.MergedDir, excludes, report); err != nil {
		return nil, err
	}

	report.Elapsed = time.Since(started)
	opts.Metrics.ObserveMergePlacement("link", report.Linked)
	opts.Metrics.ObserveMergePlacement("copy", report.Copied)
	opts.Metrics.ObserveMergePlacement("skip", report.Skipped)
	if opts.Logger != nil {
		opts.Logger.WithFields(logrus.Fields{
			"action":     "merge",
			"merged_dir": opts.MergedDir,
			"static_dir": opts.StaticDir,
			"linked":     report.Linked,
			"copied":     report.Copied,
			"skipped":    report.Skipped,
			"elapsed_ms": report.Elapsed.Milliseconds(),
		}).Info("merge_complete")
	}
	return report, nil
}

// checkLayout 规范化路径，并拒绝合并目录与任一来源目录互相包含的布局，
// 否则 RemoveAll 会删掉来源文件。
func checkLayout(opts *Options) error {
	if strings.TrimSpace(opts.MergedDir) == "" {
		return errors.New("merged dir is required")
	}
	if strings.TrimSpace(opts.NamespaceDir) == "" {
		return errors.New("namespace dir is required")
	}
	var err error
	if opts.MergedDir, err = filepath.Abs(opts.MergedDir); err != nil {
		return err
	}
	if opts.NamespaceDir, err = filepath.Abs(opts.NamespaceDir); err != nil {
		return err
	}
	if opts.StaticDir != "" {
		if opts.StaticDir, err = filepath.Abs(opts.StaticDir); err != nil {
			return err
		}
	}
	for _, src := range []string{opts.NamespaceDir, opts.StaticDir} {
		if src == "" {
			continue
		}
		if overlaps(src, opts.MergedDir) {
			return fmt.Errorf("merged dir %s overlaps source %s", opts.MergedDir, src)
		}
	}
	return nil
}

func overlaps(a, b string) bool {
	if a == b {
		return true
	}
	return within(a, b) || within(b, a)
}

func within(child, parent string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func acquire(ctx context.Context, mergedDir string, timeout time.Duration) (func(), error) {
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	if err := os.MkdirAll(filepath.Dir(mergedDir), 0o755); err != nil {
		return nil, fmt.Errorf("create merged parent: %w", err)
	}
	lock := flock.New(mergedDir + ".lock")

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ok, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire merge lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire merge lock: %s is busy", mergedDir)
	}
	return func() { _ = lock.Unlock() }, nil
}

func mergeStatic(ctx context.Context, staticDir, mergedDir string, report *Report) error {
	info, err := os.Stat(staticDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat static dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("static dir %s is not a directory", staticDir)
	}
	// WalkDir 不会进入作为根的符号链接。
	if resolved, err := filepath.EvalSymlinks(staticDir); err == nil {
		staticDir = resolved
	}

	return filepath.WalkDir(staticDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(staticDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(mergedDir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		p, err := place(path, target, d.Type())
		if err != nil {
			return err
		}
		report.record(p)
		return nil
	})
}

func mergeNamespace(ctx context.Context, namespaceDir, mergedDir string, excludes []string, report *Report) error {
	entries, err := os.ReadDir(namespaceDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read namespace dir: %w", err)
	}
	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := de.Name()
		if de.IsDir() || cache.HasExcludedSuffix(name, excludes) || cache.IsTempName(name) {
			continue
		}
		p, err := place(filepath.Join(namespaceDir, name), filepath.Join(mergedDir, name), de.Type())
		if err != nil {
			return err
		}
		report.record(p)
	}
	return nil
}

type placement int

const (
	placedSkip placement = iota
	placedLink
	placedCopy
)

// place 把 src 放到 dst。符号链接解引用后复制内容，悬空链接与特殊文件跳过。
func place(src, dst string, typ fs.FileMode) (placement, error) {
	switch {
	case typ&fs.ModeSymlink != 0:
		info, err := os.Stat(src)
		if err != nil || !info.Mode().IsRegular() {
			return placedSkip, nil
		}
		if err := copyFile(src, dst, info.Mode().Perm()); err != nil {
			return placedSkip, fmt.Errorf("copy %s: %w", src, err)
		}
		return placedCopy, nil
	case typ.IsRegular():
		return linkOrCopy(src, dst)
	default:
		return placedSkip, nil
	}
}

// linkOrCopy 先尝试硬链接；目标已存在时删除后重试；可恢复的链接错误退回字节复制。
func linkOrCopy(src, dst string) (placement, error) {
	err := os.Link(src, dst)
	if err == nil {
		return placedLink, nil
	}
	if errors.Is(err, fs.ErrExist) {
		if rmErr := os.Remove(dst); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return placedSkip, fmt.Errorf("replace %s: %w", dst, rmErr)
		}
		if err = os.Link(src, dst); err == nil {
			return placedLink, nil
		}
	}
	if !copyFallback(err) {
		return placedSkip, fmt.Errorf("link %s: %w", src, err)
	}

	info, statErr := os.Stat(src)
	if statErr != nil {
		return placedSkip, fmt.Errorf("stat %s: %w", src, statErr)
	}
	if err := copyFile(src, dst, info.Mode().Perm()); err != nil {
		return placedSkip, fmt.Errorf("copy %s: %w", src, err)
	}
	return placedCopy, nil
}

// copyFile 总是新建 dst：若 dst 是指向来源的硬链接，截断写入会破坏来源。
func copyFile(src, dst string, perm fs.FileMode) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
