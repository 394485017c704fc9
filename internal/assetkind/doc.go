// Package assetkind 维护资源类型（video、alpha 等）的注册表。
//
// 每个类型声明：
//   1. 默认扩展名，URL 路径没有可用扩展名时作为文件名后缀；
//   2. 默认的新鲜度校验策略（signature 通过 HEAD 比较 ETag/Last-Modified/Content-Length，
//      never 仅依赖 URL 哈希）；
//   3. 文件名前缀，即类型键本身，保证不同槽位即便指向同一 URL 也不会冲突。
//
// 新类型在 init() 中通过 MustRegister 注册，调用方通过 Resolve 查询。
package assetkind
