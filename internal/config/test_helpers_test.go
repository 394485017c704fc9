package config

import (
	"os"
	"path/filepath"
	"testing"
)

func testConfigPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join("testdata", name)
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "asset-cache.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

// clearCacheEnv 清空会影响 Load 结果的环境变量。
func clearCacheEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvCacheDir, EnvLegacyCacheDir, EnvRefresh, EnvDisable} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}
