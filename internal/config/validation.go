package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/assetkind"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/cache"
)

const (
	minHashLength = 8
	maxHashLength = 40
)

var supportedLogFormats = map[string]struct{}{
	"json": {},
	"text": {},
	"auto": {},
}

// Validate 针对语义级别做进一步校验，防止非法配置进入缓存流程。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.CacheDir == "" {
		return newFieldError("Global.CacheDir", "不能为空")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", err.Error())
	}
	if _, ok := supportedLogFormats[g.LogFormat]; !ok {
		return newFieldError("Global.LogFormat", "仅支持 json|text|auto")
	}
	if g.FetchTimeout.DurationValue() <= 0 {
		return newFieldError("Global.FetchTimeout", "必须大于 0")
	}
	if g.ProbeTimeout.DurationValue() <= 0 {
		return newFieldError("Global.ProbeTimeout", "必须大于 0")
	}
	if g.Concurrency < 1 {
		return newFieldError("Global.Concurrency", "必须大于 0")
	}
	if g.HashLength != 0 && (g.HashLength < minHashLength || g.HashLength > maxHashLength) {
		return newFieldError("Global.HashLength", fmt.Sprintf("必须为 0（完整摘要）或 %d-%d", minHashLength, maxHashLength))
	}
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	for _, suffix := range g.ExcludeSuffixes {
		if suffix == "" {
			return newFieldError("Global.ExcludeSuffixes", "不允许空后缀")
		}
	}

	if c.S3.Enabled && strings.TrimSpace(c.S3.Region) == "" && strings.TrimSpace(c.S3.Endpoint) == "" {
		return newFieldError("S3.Region", "启用 S3 时需要 Region 或 Endpoint")
	}

	seenNames := map[string]struct{}{}
	for i := range c.Namespaces {
		ns := &c.Namespaces[i]
		if ns.Name == "" {
			return newFieldError("Namespace[].Name", "不能为空")
		}
		if err := cache.ValidateSegment(ns.Name); err != nil {
			return newFieldError(namespaceField(ns.Name, "Name"), err.Error())
		}
		if _, exists := seenNames[ns.Name]; exists {
			return newFieldError(namespaceField(ns.Name, "Name"), "重复")
		}
		seenNames[ns.Name] = struct{}{}

		if err := validateSlots(ns); err != nil {
			return err
		}
	}

	return nil
}

func validateSlots(ns *NamespaceConfig) error {
	seen := map[string]struct{}{}
	for i := range ns.Slots {
		slot := &ns.Slots[i]
		if slot.Name == "" {
			return newFieldError(namespaceField(ns.Name, "Slot[].Name"), "不能为空")
		}
		if _, exists := seen[slot.Name]; exists {
			return newFieldError(slotField(ns.Name, slot.Name, "Name"), "重复")
		}
		seen[slot.Name] = struct{}{}

		if slot.Kind != "" {
			if _, ok := assetkind.Resolve(slot.Kind); !ok {
				return newFieldError(slotField(ns.Name, slot.Name, "Kind"),
					"仅支持 "+strings.Join(assetkind.Keys(), "|"))
			}
		}
		mode, err := assetkind.ParseValidationMode(slot.Validation)
		if err != nil {
			return newFieldError(slotField(ns.Name, slot.Name, "Validation"), err.Error())
		}
		slot.Validation = string(mode)
		if slot.FallbackExt != "" && !strings.HasPrefix(slot.FallbackExt, ".") {
			return newFieldError(slotField(ns.Name, slot.Name, "FallbackExt"), "必须以 . 开头")
		}
	}
	return nil
}
