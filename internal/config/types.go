package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/assetkind"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述全局运行时行为，所有命名空间共享同一份参数。
type GlobalConfig struct {
	CacheDir        string   `mapstructure:"CacheDir"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFormat       string   `mapstructure:"LogFormat"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	FetchTimeout    Duration `mapstructure:"FetchTimeout"`
	ProbeTimeout    Duration `mapstructure:"ProbeTimeout"`
	EnableHeadCheck bool     `mapstructure:"EnableHeadCheck"`
	Concurrency     int      `mapstructure:"Concurrency"`
	HashLength      int      `mapstructure:"HashLength"`
	ExcludeSuffixes []string `mapstructure:"ExcludeSuffixes"`
	ListenPort      int      `mapstructure:"ListenPort"`
	Refresh         bool     `mapstructure:"Refresh"`
	DisableCache    bool     `mapstructure:"DisableCache"`
}

// S3Config 控制 s3:// 资源的读取；未启用时 s3 URL 与其他非 http 地址一样被跳过。
type S3Config struct {
	Enabled      bool   `mapstructure:"Enabled"`
	Region       string `mapstructure:"Region"`
	Endpoint     string `mapstructure:"Endpoint"`
	UsePathStyle bool   `mapstructure:"UsePathStyle"`
}

// SlotConfig 描述命名空间内的一个具名资源槽位。
type SlotConfig struct {
	Name        string `mapstructure:"Name"`
	Kind        string `mapstructure:"Kind"`
	URL         string `mapstructure:"URL"`
	FallbackExt string `mapstructure:"FallbackExt"`
	Validation  string `mapstructure:"Validation"`
}

// NamespaceConfig 将一组槽位与静态目录、合并目录绑定在一起。
type NamespaceConfig struct {
	Name      string       `mapstructure:"Name"`
	PublicDir string       `mapstructure:"PublicDir"`
	MergedDir string       `mapstructure:"MergedDir"`
	Slots     []SlotConfig `mapstructure:"Slot"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global     GlobalConfig      `mapstructure:",squash"`
	S3         S3Config          `mapstructure:"S3"`
	Namespaces []NamespaceConfig `mapstructure:"Namespace"`
}

// Namespace 按名称查找命名空间配置。
func (c *Config) Namespace(name string) (NamespaceConfig, bool) {
	if c == nil {
		return NamespaceConfig{}, false
	}
	for _, ns := range c.Namespaces {
		if ns.Name == name {
			return ns, true
		}
	}
	return NamespaceConfig{}, false
}

// NamespaceNames 返回所有命名空间名称，供日志字段使用。
func NamespaceNames(namespaces []NamespaceConfig) []string {
	if len(namespaces) == 0 {
		return nil
	}
	result := make([]string, len(namespaces))
	for i, ns := range namespaces {
		result[i] = fmt.Sprintf("%s:%d", ns.Name, len(ns.Slots))
	}
	return result
}

// EffectiveKind 返回槽位最终使用的类型键：显式 Kind 优先，否则槽位名恰好是已注册类型时沿用槽位名。
func (s SlotConfig) EffectiveKind() string {
	if kind := assetkind.NormalizeKey(s.Kind); kind != "" {
		return kind
	}
	if _, ok := assetkind.Resolve(s.Name); ok {
		return assetkind.NormalizeKey(s.Name)
	}
	return ""
}
