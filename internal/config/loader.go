package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// DefaultPath 是未显式指定配置文件时尝试读取的路径，文件不存在时只使用默认值。
	DefaultPath = "asset-cache.toml"

	// EnvCacheDir 覆盖缓存根目录；EnvLegacyCacheDir 兼容旧脚本使用的变量名。
	EnvCacheDir       = "ASSET_CACHE_DIR"
	EnvLegacyCacheDir = "WIN_REMOTION_ASSET_CACHE"
	EnvRefresh        = "ASSET_CACHE_REFRESH"
	EnvDisable        = "ASSET_CACHE_DISABLE"

	defaultCacheDirName = "win-remotion-assets"
)

// Load 读取并解析 TOML 配置文件，同时注入环境变量覆盖、默认值与校验逻辑。
// path 为空时尝试 DefaultPath 且允许缺失；显式路径不存在则报错。
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if _, statErr := os.Stat(path); statErr == nil || explicit {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("读取配置失败: %w", statErr)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := applyGlobalDefaults(&cfg.Global); err != nil {
		return nil, err
	}
	for i := range cfg.Namespaces {
		applyNamespaceDefaults(&cfg.Namespaces[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absCache, err := filepath.Abs(cfg.Global.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.Global.CacheDir = absCache

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("CacheDir", "")
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "auto")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("FetchTimeout", "10m")
	v.SetDefault("ProbeTimeout", "15s")
	v.SetDefault("EnableHeadCheck", true)
	v.SetDefault("Concurrency", 2)
	v.SetDefault("HashLength", 0)
	v.SetDefault("ExcludeSuffixes", []string{".json"})
	v.SetDefault("ListenPort", 3000)
	v.SetDefault("Refresh", false)
	v.SetDefault("DisableCache", false)
}

// bindEnv 只负责进程边界的环境变量适配，核心逻辑只接收显式配置值。
func bindEnv(v *viper.Viper) error {
	bindings := [][]string{
		{"CacheDir", EnvCacheDir, EnvLegacyCacheDir},
		{"Refresh", EnvRefresh},
		{"DisableCache", EnvDisable},
	}
	for _, binding := range bindings {
		if err := v.BindEnv(binding...); err != nil {
			return fmt.Errorf("绑定环境变量失败: %w", err)
		}
	}
	return nil
}

func applyGlobalDefaults(g *GlobalConfig) error {
	g.CacheDir = strings.TrimSpace(g.CacheDir)
	if g.CacheDir == "" {
		dir, err := DefaultCacheDir()
		if err != nil {
			return err
		}
		g.CacheDir = dir
	}
	if g.FetchTimeout.DurationValue() == 0 {
		g.FetchTimeout = Duration(10 * time.Minute)
	}
	if g.ProbeTimeout.DurationValue() == 0 {
		g.ProbeTimeout = Duration(15 * time.Second)
	}
	if g.Concurrency == 0 {
		g.Concurrency = 1
	}
	g.LogFormat = strings.ToLower(strings.TrimSpace(g.LogFormat))
	if g.LogFormat == "" {
		g.LogFormat = "auto"
	}
	for i, suffix := range g.ExcludeSuffixes {
		g.ExcludeSuffixes[i] = strings.TrimSpace(suffix)
	}
	return nil
}

func applyNamespaceDefaults(ns *NamespaceConfig) {
	ns.Name = strings.TrimSpace(ns.Name)
	for i := range ns.Slots {
		slot := &ns.Slots[i]
		slot.Name = strings.TrimSpace(slot.Name)
		slot.URL = strings.TrimSpace(slot.URL)
		slot.Kind = slot.EffectiveKind()
	}
}

// DefaultCacheDir 返回用户缓存目录下的默认缓存根目录。
func DefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("无法定位用户目录: %w", err)
	}
	return filepath.Join(home, ".cache", defaultCacheDirName), nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
