package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/cache"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/manifest"
)

// InventoryEntry 是 manifest 中一个槽位及其磁盘状态。
type InventoryEntry struct {
	Slot      string
	Kind      string
	URL       string
	Filename  string
	SizeBytes int64
	CachedAt  time.Time
	Present   bool
	ETag      string
}

// Inventory 汇总一个命名空间的缓存情况。
type Inventory struct {
	Namespace      string
	Dir            string
	ManifestStatus manifest.LoadStatus
	UpdatedAt      time.Time
	Entries        []InventoryEntry
}

// Inspect 读取命名空间 manifest 并核对每个文件是否仍在磁盘上。
func (m *Manager) Inspect(ctx context.Context, namespace string) (*Inventory, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}
	dir, err := m.store.NamespaceDir(namespace)
	if err != nil {
		return nil, err
	}
	man, status, _ := manifest.Load(dir)

	inv := &Inventory{
		Namespace:      namespace,
		Dir:            dir,
		ManifestStatus: status,
		UpdatedAt:      man.UpdatedAt,
	}
	for _, slot := range man.SlotNames() {
		entry := man.Slots[slot]
		item := InventoryEntry{
			Slot:     slot,
			Kind:     entry.Kind,
			URL:      entry.URL,
			Filename: entry.Filename,
			CachedAt: entry.CachedAt,
		}
		if entry.Signature != nil {
			item.ETag = entry.Signature.ETag
		}
		stat, err := m.store.Stat(ctx, cache.Locator{Namespace: namespace, Filename: entry.Filename})
		switch {
		case err == nil:
			item.Present = true
			item.SizeBytes = stat.SizeBytes
		case errors.Is(err, cache.ErrNotFound), errors.Is(err, cache.ErrInvalidLocator):
		default:
			return nil, err
		}
		inv.Entries = append(inv.Entries, item)
	}
	return inv, nil
}

// tempGrace 内的临时文件可能属于另一个正在下载的进程。
const tempGrace = time.Hour

func staleTemp(de os.DirEntry) bool {
	info, err := de.Info()
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > tempGrace
}

// PruneOptions 控制 Prune 的行为。
type PruneOptions struct {
	DryRun bool
	// ExcludeSuffixes 命中的文件（manifest、props 等元数据）永远不会被删除；nil 时使用默认列表。
	ExcludeSuffixes []string
}

// ErrPruneUnsafe 表示没有可信的 manifest，无法判断哪些文件仍被引用。
var ErrPruneUnsafe = errors.New("refusing to prune without a loaded manifest")

// Prune 删除命名空间目录中 manifest 未引用的缓存文件与遗留临时文件。
// 缓存从不自动清理，Prune 只由显式命令触发；manifest 缺失或被丢弃时拒绝执行。
func (m *Manager) Prune(ctx context.Context, namespace string, opts PruneOptions) ([]string, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}
	dir, err := m.store.NamespaceDir(namespace)
	if err != nil {
		return nil, err
	}
	man, status, loadErr := manifest.Load(dir)
	if status != manifest.StatusLoaded {
		if loadErr != nil {
			return nil, fmt.Errorf("%w (%s): %v", ErrPruneUnsafe, status, loadErr)
		}
		return nil, fmt.Errorf("%w (%s)", ErrPruneUnsafe, status)
	}

	referenced := map[string]struct{}{manifest.FileName: {}}
	for _, entry := range man.Slots {
		referenced[entry.Filename] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read namespace dir: %w", err)
	}
	var removed []string
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		if _, ok := referenced[de.Name()]; ok {
			continue
		}
		if cache.IsTempName(de.Name()) {
			if !staleTemp(de) {
				continue
			}
		} else if cache.HasExcludedSuffix(de.Name(), opts.ExcludeSuffixes) {
			continue
		}
		removed = append(removed, de.Name())
		if opts.DryRun {
			continue
		}
		if err := m.store.Remove(ctx, cache.Locator{Namespace: namespace, Filename: de.Name()}); err != nil {
			return removed, fmt.Errorf("remove %s: %w", de.Name(), err)
		}
		m.logger.WithFields(logrus.Fields{
			"action":    "prune",
			"namespace": namespace,
			"filename":  de.Name(),
		}).Info("asset_pruned")
	}
	sort.Strings(removed)
	return removed, nil
}
