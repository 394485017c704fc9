package assets

import (
	"errors"
	"time"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/assetkind"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/fetch"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/manifest"
)

var (
	// ErrInvalidNamespace 表示命名空间为空或不是单个路径段。
	ErrInvalidNamespace = errors.New("invalid namespace")
	// ErrDuplicateSlot 表示同一次请求中出现重名槽位。
	ErrDuplicateSlot = errors.New("duplicate slot")
	// ErrUnknownKind 表示描述符引用了未注册的资源类型。
	ErrUnknownKind = errors.New("unknown asset kind")
)

// Descriptor 描述一个待缓存的槽位。Kind 为空且 Slot 恰好是已注册类型时沿用 Slot 作为 Kind。
type Descriptor struct {
	Slot        string
	Kind        string
	URL         string
	FallbackExt string
	// Validation 覆盖类型默认的新鲜度策略，为空时沿用类型默认值。
	Validation assetkind.ValidationMode
}

// Request 是一次 Prepare 调用的输入。
type Request struct {
	Namespace   string
	Descriptors []Descriptor
	// Refresh 强制重新下载所有可获取的槽位。
	Refresh bool
	// Disabled 时不做任何 I/O，每个 URL 映射到自身。
	Disabled bool
}

// Outcome 记录单个槽位在本次运行中的处理结果。
type Outcome string

const (
	OutcomeDownloaded  Outcome = "downloaded"
	OutcomeRefreshed   Outcome = "refreshed"
	OutcomeCached      Outcome = "cached"
	OutcomePassthrough Outcome = "passthrough"
)

// SlotResult 是单个槽位的准备结果。
type SlotResult struct {
	Slot       string           `json:"slot"`
	Kind       string           `json:"kind,omitempty"`
	URL        string           `json:"url"`
	Filename   string           `json:"filename,omitempty"`
	Path       string           `json:"path,omitempty"`
	PublicPath string           `json:"public_path"`
	Signature  *fetch.Signature `json:"signature,omitempty"`
	Outcome    Outcome          `json:"outcome"`
	SizeBytes  int64            `json:"size_bytes,omitempty"`
}

// Result 汇总一次 Prepare。
type Result struct {
	RunID     string `json:"run_id"`
	Namespace string `json:"namespace"`
	Dir       string `json:"dir,omitempty"`
	// Slots 按槽位名排序，不包含被忽略的槽位。
	Slots []SlotResult `json:"slots"`
	// AssetMap 把原始 URL 映射到 "/<filename>"，禁用缓存时映射到自身。
	AssetMap map[string]string `json:"asset_map"`
	// Downloaded 与 Skipped 是本次下载和命中缓存的 URL，均已排序去重。
	Downloaded     []string            `json:"downloaded"`
	Skipped        []string            `json:"skipped"`
	Ignored        []string            `json:"ignored,omitempty"`
	ManifestStatus manifest.LoadStatus `json:"manifest_status,omitempty"`
	Elapsed        time.Duration       `json:"-"`
}

// Slot 按名称查找槽位结果。
func (r *Result) Slot(name string) (SlotResult, bool) {
	for _, slot := range r.Slots {
		if slot.Slot == name {
			return slot, true
		}
	}
	return SlotResult{}, false
}
