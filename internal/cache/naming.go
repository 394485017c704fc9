package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// maxExtLen 包含前导点。
const maxExtLen = 8

// Filename 计算 URL 对应的缓存文件名：[kind-]<sha1(url)[:hashLen]><ext>。
// 结果只取决于入参，跨进程、跨机器都稳定；hashLen<=0 时使用完整摘要。
func Filename(rawURL, kind, fallbackExt string, hashLen int) string {
	sum := sha1.Sum([]byte(rawURL))
	digest := hex.EncodeToString(sum[:])
	if hashLen > 0 && hashLen < len(digest) {
		digest = digest[:hashLen]
	}

	ext := ExtFromURL(rawURL)
	if ext == "" {
		ext = fallbackExt
	}

	name := digest + ext
	if kind != "" {
		name = kind + "-" + name
	}
	return name
}

// ExtFromURL 返回 URL 路径中的扩展名；解析失败、无扩展名或过长时返回空串。
func ExtFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := path.Ext(u.Path)
	if len(ext) <= 1 || len(ext) > maxExtLen {
		return ""
	}
	return ext
}

// PublicPath 返回文件在合并目录中被静态服务器暴露时的路径。
func PublicPath(filename string) string {
	return "/" + filename
}

// DefaultExcludeSuffixes 是元数据文件后缀：manifest、props 等 sidecar 都以 .json 结尾，
// 它们不属于可公开的资源。
var DefaultExcludeSuffixes = []string{".json"}

// HasExcludedSuffix 判断文件名是否以任一后缀结尾（忽略大小写）；suffixes 为 nil 时使用默认列表。
func HasExcludedSuffix(name string, suffixes []string) bool {
	if suffixes == nil {
		suffixes = DefaultExcludeSuffixes
	}
	lower := strings.ToLower(name)
	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}
