// Package fetch retrieves remote assets and their freshness signatures.
//
// HTTPFetcher talks to plain http(s) origins over a shared transport, S3Fetcher reads
// s3://bucket/key objects through aws-sdk-go-v2, and Router dispatches by URL scheme.
// Downloads fail with *DownloadError; freshness probes fail with *ProbeError, which callers
// treat as "keep the cached copy".
package fetch
