package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// NewStore 以 root 为缓存根目录构建磁盘缓存，整个进程复用一份实例。
func NewStore(root string) (Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("cache root required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}

	return &fileStore{
		basePath: abs,
		locks:    make(map[string]*entryLock),
	}, nil
}

// fileStore 通过 entryLock 避免同进程内同一 Locator 并发写入；跨进程依赖原子 rename。
type fileStore struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Root() string {
	return s.basePath
}

func (s *fileStore) NamespaceDir(namespace string) (string, error) {
	dir, err := s.namespacePath(namespace)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create namespace dir: %w", err)
	}
	return dir, nil
}

func (s *fileStore) Stat(ctx context.Context, locator Locator) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := s.entryPath(locator)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() || info.Size() == 0 {
		return nil, ErrNotFound
	}

	return &Entry{
		Locator:   locator,
		FilePath:  filePath,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

func (s *fileStore) Open(ctx context.Context, locator Locator) (*ReadResult, error) {
	entry, err := s.Stat(ctx, locator)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(entry.FilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ReadResult{
		Entry:  *entry,
		Reader: f,
	}, nil
}

func (s *fileStore) Put(ctx context.Context, locator Locator, body io.Reader, opts PutOptions) (*Entry, error) {
	target, err := s.entryPath(locator)
	if err != nil {
		return nil, err
	}

	release := s.lockEntry(locator)
	defer release()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("create namespace dir: %w", err)
	}

	tmp := TempPath(target)
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	// 任一步失败都只清理临时文件，target 上的旧内容保持不动。
	discard := func(cause error) (*Entry, error) {
		_ = os.Remove(tmp)
		return nil, cause
	}

	size, copyErr := copyWithContext(ctx, out, body)
	if copyErr == nil {
		copyErr = out.Sync()
	}
	if closeErr := out.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return discard(copyErr)
	}
	if err := ctx.Err(); err != nil {
		return discard(err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return discard(fmt.Errorf("publish %s: %w", locator.Filename, err))
	}

	stamp := opts.ModTime
	if stamp.IsZero() {
		stamp = time.Now().UTC()
	}
	if err := os.Chtimes(target, stamp, stamp); err != nil {
		return nil, fmt.Errorf("set mod time: %w", err)
	}

	return &Entry{
		Locator:   locator,
		FilePath:  target,
		SizeBytes: size,
		ModTime:   stamp,
	}, nil
}

func (s *fileStore) Remove(ctx context.Context, locator Locator) error {
	unlock := s.lockEntry(locator)
	defer unlock()

	filePath, err := s.entryPath(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) lockEntry(locator Locator) func() {
	key := locatorKey(locator)
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// namespacePath 只接受单段命名空间，拒绝 ".."、分隔符等可能逃出根目录的写法。
func (s *fileStore) namespacePath(namespace string) (string, error) {
	if err := ValidateSegment(namespace); err != nil {
		return "", fmt.Errorf("%w: namespace %q", ErrInvalidLocator, namespace)
	}
	return filepath.Join(s.basePath, namespace), nil
}

func (s *fileStore) entryPath(locator Locator) (string, error) {
	dir, err := s.namespacePath(locator.Namespace)
	if err != nil {
		return "", err
	}
	if err := ValidateSegment(locator.Filename); err != nil {
		return "", fmt.Errorf("%w: filename %q", ErrInvalidLocator, locator.Filename)
	}
	return filepath.Join(dir, locator.Filename), nil
}

// ValidateSegment 检查名称能否作为单个路径段使用。
func ValidateSegment(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("empty name")
	case name == "." || name == "..":
		return errors.New("relative name")
	case strings.ContainsAny(name, `/\`):
		return errors.New("name contains path separator")
	case strings.ContainsRune(name, 0):
		return errors.New("name contains NUL")
	}
	return nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}

func locatorKey(locator Locator) string {
	return locator.Namespace + "::" + locator.Filename
}
