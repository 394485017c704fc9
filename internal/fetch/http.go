package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/version"
)

const (
	defaultFetchTimeout = 10 * time.Minute
	defaultProbeTimeout = 15 * time.Second
)

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   16,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// HTTPOptions 控制 GET 与 HEAD 的超时；零值使用默认值。
type HTTPOptions struct {
	FetchTimeout time.Duration
	ProbeTimeout time.Duration
	UserAgent    string
	// Client 允许测试注入自定义 client，为空时基于共享 transport 创建。
	Client *http.Client
}

// HTTPFetcher 通过 http(s) 下载资源并用 HEAD 探测新鲜度。
type HTTPFetcher struct {
	client       *http.Client
	fetchTimeout time.Duration
	probeTimeout time.Duration
	userAgent    string
}

// NewHTTPFetcher 返回使用共享 transport 的 HTTPFetcher。
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	probeTimeout := opts.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Transport: defaultTransport.Clone()}
	}
	return &HTTPFetcher{
		client:       client,
		fetchTimeout: fetchTimeout,
		probeTimeout: probeTimeout,
		userAgent:    userAgent,
	}
}

// Fetch 发起 GET。超时覆盖整个响应体的读取，因此由 Body 的 Close 负责释放 context。
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	ctx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	req, err := f.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		cancel()
		return nil, &DownloadError{URL: rawURL, Reason: "invalid request", Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		return nil, &DownloadError{URL: rawURL, Reason: transportReason(err), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, &DownloadError{URL: rawURL, Status: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		cancel()
		return nil, &DownloadError{URL: rawURL, Status: resp.StatusCode, Reason: "empty response body"}
	}

	sig := SignatureFromHeader(resp.Header)
	if sig.ContentLength == nil && resp.ContentLength >= 0 {
		sig.ContentLength = int64Ptr(resp.ContentLength)
	}
	return &Download{
		Body:      &cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
		Signature: sig,
		ModTime:   parseModTime(sig.LastModified),
	}, nil
}

// Probe 发起 HEAD 并返回签名；任何失败都以 *ProbeError 返回。
func (f *HTTPFetcher) Probe(ctx context.Context, rawURL string) (Signature, error) {
	ctx, cancel := context.WithTimeout(ctx, f.probeTimeout)
	defer cancel()

	req, err := f.newRequest(ctx, http.MethodHead, rawURL)
	if err != nil {
		return Signature{}, &ProbeError{URL: rawURL, Reason: "invalid request", Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Signature{}, &ProbeError{URL: rawURL, Reason: transportReason(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Signature{}, &ProbeError{URL: rawURL, Status: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}
	sig := SignatureFromHeader(resp.Header)
	if sig.ContentLength == nil && resp.ContentLength >= 0 {
		sig.ContentLength = int64Ptr(resp.ContentLength)
	}
	if sig.Empty() {
		return Signature{}, &ProbeError{URL: rawURL, Status: resp.StatusCode, Reason: "no freshness headers"}
	}
	return sig, nil
}

func (f *HTTPFetcher) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	return req, nil
}

func transportReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "timeout"
	}
	return fmt.Sprintf("transport error: %v", err)
}

// IsHTTPURL 判断 URL 是否为可下载的 http(s) 地址。
func IsHTTPURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
