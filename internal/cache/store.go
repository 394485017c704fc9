package cache

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责管理缓存根目录下的资源文件。磁盘布局遵循：
//
//	<CacheRoot>/<Namespace>/<kind->?<sha1><ext>
//
// 每个条目仅由正文文件组成，尺寸与修改时间由文件系统提供。
type Store interface {
	// Stat 返回条目信息；缺失、目录或空文件均返回 ErrNotFound。
	Stat(ctx context.Context, locator Locator) (*Entry, error)

	// Open 返回可流式读取的缓存条目。
	Open(ctx context.Context, locator Locator) (*ReadResult, error)

	// Put 将 body 写入临时文件并 rename 到最终路径；失败时清理临时文件，最终路径保持不变。
	Put(ctx context.Context, locator Locator, body io.Reader, opts PutOptions) (*Entry, error)

	// Remove 删除正文文件，文件不存在时视为成功。
	Remove(ctx context.Context, locator Locator) error

	// NamespaceDir 返回命名空间目录的绝对路径，必要时创建。
	NamespaceDir(namespace string) (string, error)

	// Root 返回缓存根目录。
	Root() string
}

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	ModTime time.Time
}

// Locator 唯一定位一个缓存条目（命名空间 + 平铺文件名）。
type Locator struct {
	Namespace string
	Filename  string
}

// Entry 描述一个已落盘的缓存条目。
type Entry struct {
	Locator   Locator   `json:"locator"`
	FilePath  string    `json:"file_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// ReadResult 组合 Entry 与正文 Reader。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")

// ErrInvalidLocator 表示命名空间或文件名无法安全地映射到缓存根目录内。
var ErrInvalidLocator = errors.New("invalid cache locator")
