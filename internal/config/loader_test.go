package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingDefaultFileUsesDefaults(t *testing.T) {
	clearCacheEnv(t)
	dir := t.TempDir()
	prev, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
	t.Setenv("HOME", dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("缺省配置文件不存在时不应报错: %v", err)
	}
	want := filepath.Join(dir, ".cache", defaultCacheDirName)
	if cfg.Global.CacheDir != want {
		t.Fatalf("默认缓存目录应为 %s，得到 %s", want, cfg.Global.CacheDir)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	clearCacheEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("显式指定的配置文件不存在应报错")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	clearCacheEnv(t)
	path := writeTempConfig(t, `
CacheDir = "./data"
FetchTimeout = "boom"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("无效 Duration 应失败")
	}
}

func TestEnvOverridesCacheDir(t *testing.T) {
	clearCacheEnv(t)
	path := writeTempConfig(t, `CacheDir = "/from/file"`)

	legacy := filepath.Join(t.TempDir(), "legacy")
	t.Setenv(EnvLegacyCacheDir, legacy)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.CacheDir != legacy {
		t.Fatalf("旧变量名应覆盖配置文件，得到 %s", cfg.Global.CacheDir)
	}

	primary := filepath.Join(t.TempDir(), "primary")
	t.Setenv(EnvCacheDir, primary)
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.CacheDir != primary {
		t.Fatalf("%s 优先级应高于旧变量名，得到 %s", EnvCacheDir, cfg.Global.CacheDir)
	}
}

func TestEnvFlagsForRefreshAndDisable(t *testing.T) {
	clearCacheEnv(t)
	path := writeTempConfig(t, `CacheDir = "./data"`)
	t.Setenv(EnvRefresh, "true")
	t.Setenv(EnvDisable, "1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if !cfg.Global.Refresh || !cfg.Global.DisableCache {
		t.Fatalf("环境变量开关未生效: %+v", cfg.Global)
	}
}
