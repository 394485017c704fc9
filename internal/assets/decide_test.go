package assets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/fetch"
)

func TestDecide(t *testing.T) {
	testCases := []struct {
		name     string
		exists   bool
		refresh  bool
		validate bool
		want     action
	}{
		{"missing file", false, false, true, actionDownload},
		{"missing file with refresh", false, true, true, actionDownload},
		{"refresh", true, true, true, actionRefresh},
		{"hash only", true, false, false, actionKeep},
		{"revalidate", true, false, true, actionRevalidate},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decide(tc.exists, tc.refresh, tc.validate))
		})
	}
}

func TestAssess(t *testing.T) {
	prior := &fetch.Signature{ETag: "v1"}

	v := assess(prior, fetch.Signature{}, errors.New("boom"))
	assert.False(t, v.redownload)
	assert.Same(t, prior, v.signature)

	v = assess(nil, fetch.Signature{ETag: "v2"}, nil)
	assert.False(t, v.redownload)
	assert.Equal(t, "v2", v.signature.ETag)

	v = assess(prior, fetch.Signature{ETag: "v2"}, nil)
	assert.True(t, v.redownload)

	v = assess(prior, fetch.Signature{ETag: "v1"}, nil)
	assert.False(t, v.redownload)
	assert.Same(t, prior, v.signature)
}

func TestDescriptorsFromURLs(t *testing.T) {
	got := DescriptorsFromURLs([]string{" https://x.test/a.mp4 ", "", "https://x.test/a.mp4", "https://x.test/b.mp4"})
	assert.Equal(t, []Descriptor{
		{Slot: "https://x.test/a.mp4", URL: "https://x.test/a.mp4"},
		{Slot: "https://x.test/b.mp4", URL: "https://x.test/b.mp4"},
	}, got)
}

func TestNormalizeFillsKindDefaults(t *testing.T) {
	plans, err := normalize([]Descriptor{
		{Slot: "alpha", URL: "https://x.test/matte"},
		{Slot: "hero", Kind: "VIDEO", URL: "https://x.test/hero"},
	}, 12)
	assert.NoError(t, err)
	assert.Equal(t, "alpha", plans[0].Kind)
	assert.Equal(t, ".webm", plans[0].FallbackExt)
	assert.Regexp(t, `^alpha-[0-9a-f]{12}\.webm$`, plans[0].filename)
	assert.Equal(t, "video", plans[1].Kind)
	assert.Regexp(t, `^video-[0-9a-f]{12}\.mp4$`, plans[1].filename)
}
