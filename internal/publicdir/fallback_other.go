//go:build !unix

package publicdir

// copyFallback 在非 unix 平台上对任何链接错误都退回复制。
func copyFallback(err error) bool {
	return err != nil
}
