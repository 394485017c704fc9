package project

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/assets"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/cache"
)

// Props 是交给 studio/渲染器的输入，字段名沿用渲染端的 camelCase。
type Props struct {
	VideoURL           string            `json:"videoUrl"`
	AlphaURL           string            `json:"alphaUrl,omitempty"`
	Assets             map[string]string `json:"assets,omitempty"`
	TranscriptWords    json.RawMessage   `json:"transcriptWords,omitempty"`
	TranscriptSourceID *string           `json:"transcriptSourceId,omitempty"`
	Storyboard         json.RawMessage   `json:"storyboard,omitempty"`
	AssetMap           map[string]string `json:"assetMap,omitempty"`
	CachedProject      string            `json:"cachedProject,omitempty"`
	CachedAt           string            `json:"cachedAt,omitempty"`
}

// BuildProps 用准备结果重写槽位 URL；res 为 nil 或缓存被禁用时保留远端地址。
func BuildProps(p *Project, res *assets.Result, now time.Time) Props {
	props := Props{
		VideoURL:           p.VideoURL,
		AlphaURL:           p.AlphaURL,
		TranscriptWords:    p.TranscriptWords,
		TranscriptSourceID: p.TranscriptSourceID,
		Storyboard:         p.Storyboard,
	}
	for _, a := range p.Assets {
		if a.Slot == "" || a.URL == "" {
			continue
		}
		if props.Assets == nil {
			props.Assets = make(map[string]string)
		}
		props.Assets[a.Slot] = a.URL
	}
	if res == nil {
		return props
	}

	if slot, ok := res.Slot("video"); ok {
		props.VideoURL = slot.PublicPath
	}
	if slot, ok := res.Slot("alpha"); ok {
		props.AlphaURL = slot.PublicPath
	}
	for name := range props.Assets {
		if slot, ok := res.Slot(name); ok {
			props.Assets[name] = slot.PublicPath
		}
	}
	props.AssetMap = res.AssetMap
	props.CachedProject = p.ID
	props.CachedAt = now.UTC().Format(time.RFC3339)
	return props
}

// WriteProps 以临时文件 + rename 写出带缩进的 props JSON。
func WriteProps(path string, props Props) error {
	payload, err := json.MarshalIndent(props, "", "  ")
	if err != nil {
		return fmt.Errorf("encode props: %w", err)
	}
	payload = append(payload, '\n')
	if err := cache.WriteFileAtomic(path, payload, 0o644); err != nil {
		return fmt.Errorf("write props: %w", err)
	}
	return nil
}
