package assetkind

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	defaultKindKey = "generic"

	// maxExtensionLen 与 URL 扩展名的长度上限一致，含前导点。
	maxExtensionLen = 8
)

var globalRegistry = newRegistry()

// registry 以规范化后的类型键索引 KindMetadata。类型键同时是缓存文件名前缀，
// 因此注册时就要保证它能安全地拼进文件名。
type registry struct {
	mu    sync.RWMutex
	kinds map[string]KindMetadata
}

func newRegistry() *registry {
	return &registry{kinds: make(map[string]KindMetadata)}
}

// Register 注册一个资源类型；键重复、键不能作为文件名前缀或扩展名不合法时返回错误。
func Register(meta KindMetadata) error {
	return globalRegistry.register(meta)
}

// MustRegister 是 Register 的 init() 版本。
func MustRegister(meta KindMetadata) {
	if err := Register(meta); err != nil {
		panic(err)
	}
}

// Resolve 按类型键查找，大小写与首尾空白不敏感。
func Resolve(key string) (KindMetadata, bool) {
	return globalRegistry.resolve(key)
}

// List 按键排序返回全部类型，/-/kinds 与 ls 依赖这个顺序稳定。
func List() []KindMetadata {
	return globalRegistry.list()
}

// Keys 返回排序后的类型键，用于 "仅支持 a|b|c" 形式的配置报错。
func Keys() []string {
	kinds := List()
	keys := make([]string, 0, len(kinds))
	for _, meta := range kinds {
		keys = append(keys, meta.Key)
	}
	return keys
}

// NormalizeKey 统一类型键的大小写与空白。
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *registry) register(meta KindMetadata) error {
	meta.Key = NormalizeKey(meta.Key)
	if err := checkKind(meta); err != nil {
		return err
	}
	if meta.Validation == "" {
		meta.Validation = ValidationModeSignature
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.kinds[meta.Key]; dup {
		return fmt.Errorf("kind %s already registered", meta.Key)
	}
	r.kinds[meta.Key] = meta
	return nil
}

// checkKind 校验类型键可作为 "<kind>-<sha1>" 的前缀，以及默认扩展名与校验策略。
func checkKind(meta KindMetadata) error {
	switch {
	case meta.Key == "":
		return fmt.Errorf("kind key is required")
	case strings.ContainsAny(meta.Key, "/\\. \t"):
		return fmt.Errorf("kind key %q cannot be used as a filename prefix", meta.Key)
	}
	if ext := meta.DefaultExtension; ext != "" {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 || len(ext) > maxExtensionLen || strings.ContainsAny(ext[1:], "./\\") {
			return fmt.Errorf("kind %s: default extension %q must look like .mp4", meta.Key, ext)
		}
	}
	switch meta.Validation {
	case "", ValidationModeSignature, ValidationModeNever:
		return nil
	default:
		return fmt.Errorf("kind %s: unknown validation mode %q", meta.Key, meta.Validation)
	}
}

func (r *registry) resolve(key string) (KindMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.kinds[NormalizeKey(key)]
	return meta, ok
}

func (r *registry) list() []KindMetadata {
	r.mu.RLock()
	out := make([]KindMetadata, 0, len(r.kinds))
	for _, meta := range r.kinds {
		out = append(out, meta)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
