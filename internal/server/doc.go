// Package server hosts the Fiber HTTP service that exposes one cache namespace to a
// renderer or studio preview. It serves files (from a merged public directory or straight
// from the cache store), the URL rewrite map, a resolve redirect and Prometheus metrics.
// Diagnostics live under /-/ so they never collide with cached filenames.
package server
