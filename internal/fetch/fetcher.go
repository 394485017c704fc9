package fetch

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Download 是一次成功 GET 的结果，调用方负责关闭 Body。
type Download struct {
	Body      io.ReadCloser
	Signature Signature
	// ModTime 来自 Last-Modified，缺失时为零值。
	ModTime time.Time
}

// Fetcher 抽象远端资源的下载与探测。
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Download, error)
	Probe(ctx context.Context, rawURL string) (Signature, error)
}

func parseModTime(lastModified string) time.Time {
	if lastModified == "" {
		return time.Time{}
	}
	if parsed, err := http.ParseTime(lastModified); err == nil {
		return parsed.UTC()
	}
	return time.Time{}
}
