package fetch

import "fmt"

// DownloadError 表示初次下载失败：传输错误、非 2xx 状态或响应体缺失。
// 对单个资源是致命错误，调用方应直接上报。
type DownloadError struct {
	URL    string
	Status int
	Reason string
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download %s: status %d: %s", e.URL, e.Status, e.Reason)
	}
	return fmt.Sprintf("download %s: %s", e.URL, e.Reason)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ProbeError 表示新鲜度探测失败。它从不致命，调用方据此保留已有缓存。
type ProbeError struct {
	URL    string
	Status int
	Reason string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("probe %s: status %d: %s", e.URL, e.Status, e.Reason)
	}
	return fmt.Sprintf("probe %s: %s", e.URL, e.Reason)
}

func (e *ProbeError) Unwrap() error { return e.Err }
