//go:build unix

package publicdir

import (
	"errors"

	"golang.org/x/sys/unix"
)

// copyFallback 判断链接失败是否可以退回复制：跨设备、权限、链接数上限或文件系统不支持。
func copyFallback(err error) bool {
	for _, errno := range []unix.Errno{unix.EXDEV, unix.EPERM, unix.EACCES, unix.EMLINK, unix.ENOTSUP, unix.EOPNOTSUPP} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
