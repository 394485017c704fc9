package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	clearCacheEnv(t)
	cfg, err := Load(testConfigPath(t, "valid.toml"))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if !filepath.IsAbs(cfg.Global.CacheDir) {
		t.Fatalf("CacheDir 应转换为绝对路径: %s", cfg.Global.CacheDir)
	}
	if cfg.Global.FetchTimeout.DurationValue() != 2*time.Minute {
		t.Fatalf("FetchTimeout 解析错误: %s", cfg.Global.FetchTimeout.DurationValue())
	}
	if cfg.Global.ProbeTimeout.DurationValue() != 10*time.Second {
		t.Fatalf("纯数字应按秒解析: %s", cfg.Global.ProbeTimeout.DurationValue())
	}
	if !cfg.Global.EnableHeadCheck {
		t.Fatalf("EnableHeadCheck 默认应开启")
	}
	if len(cfg.Global.ExcludeSuffixes) != 1 || cfg.Global.ExcludeSuffixes[0] != ".json" {
		t.Fatalf("ExcludeSuffixes 默认值错误: %v", cfg.Global.ExcludeSuffixes)
	}

	ns, ok := cfg.Namespace("text-effects")
	if !ok {
		t.Fatalf("缺少命名空间 text-effects")
	}
	if len(ns.Slots) != 3 {
		t.Fatalf("槽位数量错误: %d", len(ns.Slots))
	}
	if ns.Slots[0].Kind != "video" || ns.Slots[1].Kind != "alpha" {
		t.Fatalf("槽位名为已注册类型时应沿用为 Kind: %+v", ns.Slots)
	}
	if ns.Slots[1].Validation != "never" {
		t.Fatalf("Validation 覆盖丢失: %+v", ns.Slots[1])
	}
}

func TestValidateRejectsUnknownKind(t *testing.T) {
	clearCacheEnv(t)
	if _, err := Load(testConfigPath(t, "invalid.toml")); err == nil {
		t.Fatalf("未注册的 Kind 应返回错误")
	}
}

func TestValidateEnforcesHashLength(t *testing.T) {
	cfg := validConfig()
	cfg.Global.HashLength = 4
	if err := cfg.Validate(); err == nil {
		t.Fatalf("过短的 HashLength 应当报错")
	}
	cfg.Global.HashLength = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("HashLength=0 表示完整摘要: %v", err)
	}
}

func TestValidateNamespaceNames(t *testing.T) {
	testCases := []struct {
		name      string
		namespace string
		shouldErr bool
	}{
		{"plain", "text-effects", false},
		{"empty", "", true},
		{"traversal", "..", true},
		{"nested", "a/b", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Namespaces[0].Name = tc.namespace
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error for namespace %q", tc.namespace)
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error for namespace %q: %v", tc.namespace, err)
			}
		})
	}
}

func TestValidateRejectsDuplicateSlots(t *testing.T) {
	cfg := validConfig()
	cfg.Namespaces[0].Slots = append(cfg.Namespaces[0].Slots, cfg.Namespaces[0].Slots[0])
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("重复槽位应报错")
	}
	fieldErr, ok := err.(FieldError)
	if !ok || fieldErr.Field != "Namespace[demo].Slot[video].Name" {
		t.Fatalf("字段路径不符合预期: %v", err)
	}
}

func TestValidateRequiresS3Location(t *testing.T) {
	cfg := validConfig()
	cfg.S3.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatalf("启用 S3 但未配置 Region/Endpoint 应报错")
	}
	cfg.S3.Region = "auto"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			CacheDir:     "./data",
			LogLevel:     "info",
			LogFormat:    "json",
			FetchTimeout: Duration(time.Minute),
			ProbeTimeout: Duration(time.Second),
			Concurrency:  1,
			ListenPort:   3000,
		},
		Namespaces: []NamespaceConfig{
			{
				Name: "demo",
				Slots: []SlotConfig{
					{Name: "video", Kind: "video", URL: "https://example.com/video.mp4"},
				},
			},
		},
	}
}
