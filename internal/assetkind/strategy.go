package assetkind

import (
	"fmt"
	"strings"
)

// ResolveValidation 将类型默认策略与槽位/全局覆盖合并，空覆盖沿用默认值。
func ResolveValidation(meta KindMetadata, override ValidationMode) ValidationMode {
	if override != "" {
		return override
	}
	if meta.Validation == "" {
		return ValidationModeSignature
	}
	return meta.Validation
}

// ParseValidationMode 解析配置中的校验策略字符串。
func ParseValidationMode(raw string) (ValidationMode, error) {
	switch mode := ValidationMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return "", nil
	case ValidationModeSignature, ValidationModeNever:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported validation mode %q (signature|never)", raw)
	}
}
