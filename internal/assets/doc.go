// Package assets 负责把远端素材准备到本地缓存：
// 计算确定性文件名，按需下载或探测新鲜度，并整体重写命名空间 manifest。
// Prepare 的结果包含槽位到本地路径的映射，以及可交给静态服务器的 URL 重写表。
package assets
