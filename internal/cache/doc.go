// Package cache owns the on-disk layout of the asset cache: one directory per
// namespace under the cache root, holding flat files whose names are a pure
// function of the source URL (see Filename). Writes go through a temp file in
// the same directory followed by an atomic rename, so a reader of the final
// path sees either the previous complete file or the new complete file.
// Higher layers (assets, publicdir) depend on this package for path
// resolution and never write into a namespace directory themselves.
package cache
