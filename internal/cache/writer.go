package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// tempMarker 出现在所有临时文件名中，合并目录与列表命令据此跳过未完成的写入。
const tempMarker = ".tmp-"

// TempPath 返回与 final 同目录的临时文件路径，后缀包含 pid 与纳秒时间戳，
// 保证并发进程写同一目标时不会共用临时文件。
func TempPath(final string) string {
	return fmt.Sprintf("%s%s%d-%d", final, tempMarker, os.Getpid(), time.Now().UnixNano())
}

// IsTempName 判断文件名是否为 TempPath 生成的临时文件。
func IsTempName(name string) bool {
	return strings.Contains(filepath.Base(name), tempMarker)
}

// WriteFileAtomic 先创建目录，再写临时文件并 rename，供 manifest/props 等小文件复用。
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	tmp := TempPath(path)
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
