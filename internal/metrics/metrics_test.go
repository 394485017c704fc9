package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderExposesCounters(t *testing.T) {
	r := NewRecorder()
	r.ObserveSlot("video", "download")
	r.ObserveSlot("", "keep")
	r.AddDownloadedBytes("video", 2048)
	r.ObserveProbeFailure("alpha")
	r.ObserveMergePlacement("link", 3)
	r.ObservePrepareSeconds(0.2)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `asset_cache_slots_total{kind="video",outcome="download"} 1`)
	assert.Contains(t, text, `asset_cache_slots_total{kind="none",outcome="keep"} 1`)
	assert.Contains(t, text, `asset_cache_downloaded_bytes_total{kind="video"} 2048`)
	assert.Contains(t, text, `asset_cache_probe_failures_total{kind="alpha"} 1`)
	assert.Contains(t, text, `asset_cache_merge_placements_total{mode="link"} 3`)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveSlot("video", "keep")
	r.ObserveDownloadFailure("video")
	r.AddDownloadedBytes("video", 1)
	r.ObserveMergePlacement("copy", 1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
