package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Router 按 URL scheme 把请求分发给具体 Fetcher。
type Router struct {
	http Fetcher
	s3   Fetcher
}

var _ Fetcher = (*Router)(nil)

// NewRouter 创建 Router；s3 为 nil 时 s3:// 地址视为不可获取。
func NewRouter(httpFetcher, s3Fetcher Fetcher) *Router {
	return &Router{http: httpFetcher, s3: s3Fetcher}
}

// Supports 判断 URL 是否可被获取；不支持的地址由调用方跳过而不是报错。
func (r *Router) Supports(rawURL string) bool {
	return r.pick(rawURL) != nil
}

func (r *Router) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	f := r.pick(rawURL)
	if f == nil {
		return nil, &DownloadError{URL: rawURL, Reason: unsupportedReason(rawURL)}
	}
	return f.Fetch(ctx, rawURL)
}

func (r *Router) Probe(ctx context.Context, rawURL string) (Signature, error) {
	f := r.pick(rawURL)
	if f == nil {
		return Signature{}, &ProbeError{URL: rawURL, Reason: unsupportedReason(rawURL)}
	}
	return f.Probe(ctx, rawURL)
}

func (r *Router) pick(rawURL string) Fetcher {
	switch {
	case IsHTTPURL(rawURL):
		return r.http
	case IsS3URL(rawURL):
		return r.s3
	default:
		return nil
	}
}

func unsupportedReason(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return "unsupported url"
	}
	return fmt.Sprintf("unsupported scheme %q", u.Scheme)
}
