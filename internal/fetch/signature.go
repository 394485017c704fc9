package fetch

import (
	"net/http"
	"strconv"
	"strings"
)

// Signature 是远端资源的新鲜度指纹，来自 ETag / Last-Modified / Content-Length。
type Signature struct {
	ETag          string `json:"etag,omitempty"`
	LastModified  string `json:"last_modified,omitempty"`
	ContentLength *int64 `json:"content_length,omitempty"`
}

// Empty 表示三个字段都缺失，此时签名不能用于判定新鲜度。
func (s Signature) Empty() bool {
	return s.ETag == "" && s.LastModified == "" && s.ContentLength == nil
}

// SignatureFromHeader 从响应头提取签名；无法解析或为负数的 Content-Length 视为缺失。
func SignatureFromHeader(header http.Header) Signature {
	sig := Signature{
		ETag:         normalizeETag(header.Get("Etag")),
		LastModified: strings.TrimSpace(header.Get("Last-Modified")),
	}
	if raw := strings.TrimSpace(header.Get("Content-Length")); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n >= 0 {
			sig.ContentLength = &n
		}
	}
	return sig
}

// Stale 逐字段比较两份签名：只有双方都存在的字段才参与比较，任一字段不同即判定过期。
func Stale(prior, remote Signature) bool {
	if prior.ETag != "" && remote.ETag != "" && prior.ETag != remote.ETag {
		return true
	}
	if prior.LastModified != "" && remote.LastModified != "" && prior.LastModified != remote.LastModified {
		return true
	}
	if prior.ContentLength != nil && remote.ContentLength != nil &&
		*prior.ContentLength >= 0 && *remote.ContentLength >= 0 &&
		*prior.ContentLength != *remote.ContentLength {
		return true
	}
	return false
}

func normalizeETag(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return strings.Trim(value, "\"")
}

func int64Ptr(v int64) *int64 {
	return &v
}
