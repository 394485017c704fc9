// Package manifest persists the per-namespace record of cached slots.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/cache"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/fetch"
)

// FileName 位于命名空间目录内；.json 后缀使其在合并公共目录时被排除。
const FileName = "asset-cache.manifest.json"

// SchemaVersion 标识 manifest 结构版本，与当前版本不一致的文件整体丢弃。
type SchemaVersion int

const (
	// SchemaFlat 是早期仅记录 url→文件名 的版本，不再读取。
	SchemaFlat SchemaVersion = 1
	// SchemaSlots 按槽位记录文件名与新鲜度签名。
	SchemaSlots SchemaVersion = 2

	CurrentSchema = SchemaSlots
)

// LoadStatus 描述 Load 的结果来源。
type LoadStatus string

const (
	StatusAbsent    LoadStatus = "absent"
	StatusLoaded    LoadStatus = "loaded"
	StatusDiscarded LoadStatus = "discarded"
)

// Manifest 是一个命名空间的完整缓存记录，每次保存都整体重写。
type Manifest struct {
	Version   SchemaVersion        `json:"version"`
	Namespace string               `json:"namespace"`
	UpdatedAt time.Time            `json:"updated_at"`
	Slots     map[string]SlotEntry `json:"slots"`
}

// SlotEntry 记录单个槽位最近一次缓存的结果。
type SlotEntry struct {
	URL       string           `json:"url"`
	Kind      string           `json:"kind,omitempty"`
	Filename  string           `json:"filename"`
	Signature *fetch.Signature `json:"signature,omitempty"`
	CachedAt  time.Time        `json:"cached_at"`
}

// New 返回空的当前版本 manifest。
func New(namespace string) *Manifest {
	return &Manifest{
		Version:   CurrentSchema,
		Namespace: namespace,
		Slots:     make(map[string]SlotEntry),
	}
}

// Path 返回命名空间目录下 manifest 的路径。
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load 读取 dir 下的 manifest。
// 文件缺失返回 StatusAbsent；解析失败或版本不符返回 StatusDiscarded 与一份空 manifest，
// 此时 error 仅说明丢弃原因，调用方记录后继续即可。
func Load(dir string) (*Manifest, LoadStatus, error) {
	payload, err := os.ReadFile(Path(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(""), StatusAbsent, nil
		}
		return New(""), StatusDiscarded, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(payload, &m); err != nil {
		return New(""), StatusDiscarded, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != CurrentSchema {
		return New(""), StatusDiscarded, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	if m.Slots == nil {
		m.Slots = make(map[string]SlotEntry)
	}
	return &m, StatusLoaded, nil
}

// Save 以临时文件 + rename 的方式整体重写 manifest。
func Save(dir string, m *Manifest) error {
	if m == nil {
		return errors.New("manifest is nil")
	}
	m.Version = CurrentSchema
	m.UpdatedAt = time.Now().UTC()
	if m.Slots == nil {
		m.Slots = make(map[string]SlotEntry)
	}
	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	payload = append(payload, '\n')
	if err := cache.WriteFileAtomic(Path(dir), payload, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Get 返回槽位记录。
func (m *Manifest) Get(slot string) (SlotEntry, bool) {
	if m == nil || m.Slots == nil {
		return SlotEntry{}, false
	}
	entry, ok := m.Slots[slot]
	return entry, ok
}

// Merge 用本次处理的槽位覆盖旧记录，未处理的槽位原样保留。
func (m *Manifest) Merge(updates map[string]SlotEntry) {
	if m.Slots == nil {
		m.Slots = make(map[string]SlotEntry, len(updates))
	}
	for slot, entry := range updates {
		m.Slots[slot] = entry
	}
}

// SlotNames 返回排序后的槽位名。
func (m *Manifest) SlotNames() []string {
	names := make([]string, 0, len(m.Slots))
	for name := range m.Slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
