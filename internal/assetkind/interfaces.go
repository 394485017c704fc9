package assetkind

// ValidationMode 描述缓存命中后的新鲜度校验策略。
type ValidationMode string

const (
	ValidationModeSignature ValidationMode = "signature"
	ValidationModeNever     ValidationMode = "never"
)

// KindMetadata 记录一个资源类型的静态信息，供配置校验与缓存管理器使用。
type KindMetadata struct {
	Key              string
	Description      string
	DefaultExtension string
	Validation       ValidationMode
}

// DefaultKindKey 返回平铺 URL 列表使用的类型键。
func DefaultKindKey() string {
	return defaultKindKey
}
