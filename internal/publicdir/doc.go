// Package publicdir rebuilds the directory a static file server exposes to the renderer.
//
// Every Merge deletes the merged directory and assembles it again from the static source
// tree plus the flat files of one cache namespace. Files are hard-linked when possible and
// byte-copied otherwise; sources are never modified.
package publicdir
