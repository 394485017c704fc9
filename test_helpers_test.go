package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var repoRoot string

func init() {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return
	}
	dir := filepath.Dir(file)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			repoRoot = dir
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func configFixture(t *testing.T, name string) string {
	t.Helper()
	if repoRoot == "" {
		t.Fatal("无法定位项目根目录")
	}
	return filepath.Join(repoRoot, "internal", "config", "testdata", name)
}

// useBufferWriters 在测试期间把 stdOut/stdErr 替换为内存缓冲。
func useBufferWriters(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	prevOut, prevErr := stdOut, stdErr
	stdOut, stdErr = outBuf, errBuf

	t.Cleanup(func() {
		stdOut = prevOut
		stdErr = prevErr
	})
	return outBuf, errBuf
}

// isolateEnv 清除会影响配置加载的环境变量。
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{envConfigPath, "ASSET_CACHE_DIR", "WIN_REMOTION_ASSET_CACHE", "ASSET_CACHE_REFRESH", "ASSET_CACHE_DISABLE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// runCLI 以隔离的缓存目录执行一次命令并返回 stdout。
func runCLI(t *testing.T, cacheDir string, args ...string) (int, string, string) {
	t.Helper()
	out, errOut := useBufferWriters(t)
	full := append([]string{"--cache-dir", cacheDir, "--log-level", "error"}, args...)
	code := run(context.Background(), full)
	return code, out.String(), errOut.String()
}

// fakeCDN 返回固定内容并统计 GET 次数。
type fakeCDN struct {
	mu   sync.Mutex
	gets map[string]int
	srv  *httptest.Server
}

func newFakeCDN(t *testing.T) *fakeCDN {
	t.Helper()
	cdn := &fakeCDN{gets: map[string]int{}}
	cdn.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		if r.Method == http.MethodGet {
			cdn.mu.Lock()
			cdn.gets[r.URL.Path]++
			cdn.mu.Unlock()
			_, _ = w.Write([]byte("payload:" + strings.TrimPrefix(r.URL.Path, "/")))
		}
	}))
	t.Cleanup(cdn.srv.Close)
	return cdn
}

func (c *fakeCDN) url(path string) string {
	return c.srv.URL + path
}

func (c *fakeCDN) getCount(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets[path]
}
