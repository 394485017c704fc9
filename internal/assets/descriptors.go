package assets

import (
	"fmt"
	"strings"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/assetkind"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/cache"
)

// DescriptorsFromURLs 把平铺 URL 列表转换为描述符：槽位名即 URL，不带类型前缀。
// 重复 URL 只保留第一次出现。
func DescriptorsFromURLs(urls []string) []Descriptor {
	seen := make(map[string]struct{}, len(urls))
	out := make([]Descriptor, 0, len(urls))
	for _, raw := range urls {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, Descriptor{Slot: u, URL: u})
	}
	return out
}

// slotPlan 是规范化后的描述符，文件名只由这里的字段决定。
type slotPlan struct {
	Descriptor
	meta       assetkind.KindMetadata
	validation assetkind.ValidationMode
	filename   string
}

func validateNamespace(namespace string) error {
	if err := cache.ValidateSegment(namespace); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidNamespace, namespace, err)
	}
	return nil
}

// normalize 校验槽位并补全类型、默认扩展名和校验策略。
func normalize(descriptors []Descriptor, hashLength int) ([]slotPlan, error) {
	plans := make([]slotPlan, 0, len(descriptors))
	seen := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		d.Slot = strings.TrimSpace(d.Slot)
		d.URL = strings.TrimSpace(d.URL)
		if d.Slot == "" {
			d.Slot = d.URL
		}
		if d.Slot == "" {
			continue
		}
		if _, dup := seen[d.Slot]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSlot, d.Slot)
		}
		seen[d.Slot] = struct{}{}

		d.Kind = assetkind.NormalizeKey(d.Kind)
		if d.Kind == "" {
			if _, ok := assetkind.Resolve(d.Slot); ok {
				d.Kind = assetkind.NormalizeKey(d.Slot)
			}
		}

		meta, ok := assetkind.Resolve(d.Kind)
		if d.Kind != "" && !ok {
			return nil, fmt.Errorf("%w: slot %s: %s", ErrUnknownKind, d.Slot, d.Kind)
		}
		if !ok {
			meta, _ = assetkind.Resolve(assetkind.DefaultKindKey())
		}
		if d.FallbackExt == "" {
			d.FallbackExt = meta.DefaultExtension
		}

		plans = append(plans, slotPlan{
			Descriptor: d,
			meta:       meta,
			validation: assetkind.ResolveValidation(meta, d.Validation),
			filename:   cache.Filename(d.URL, d.Kind, d.FallbackExt, hashLength),
		})
	}
	return plans, nil
}
