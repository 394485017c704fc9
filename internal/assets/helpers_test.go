package assets

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/cache"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/fetch"
)

// origin is a fake CDN that counts requests per method and path.
type origin struct {
	mu       sync.Mutex
	bodies   map[string]string
	etags    map[string]string
	gets     map[string]int
	heads    map[string]int
	failHead bool
	// bareHead answers HEAD with 200 and no freshness headers.
	bareHead bool
	srv      *httptest.Server
}

func newOrigin(t *testing.T) *origin {
	t.Helper()
	o := &origin{
		bodies: map[string]string{},
		etags:  map[string]string{},
		gets:   map[string]int{},
		heads:  map[string]int{},
	}
	o.srv = httptest.NewServer(http.HandlerFunc(o.serve))
	t.Cleanup(o.srv.Close)
	return o
}

func (o *origin) set(path, body, etag string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bodies[path] = body
	o.etags[path] = etag
}

func (o *origin) setFailHead(fail bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failHead = fail
}

func (o *origin) setBareHead(bare bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bareHead = bare
}

func (o *origin) url(path string) string {
	return o.srv.URL + path
}

func (o *origin) getCount(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gets[path]
}

func (o *origin) headCount(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.heads[path]
}

func (o *origin) serve(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	body, ok := o.bodies[r.URL.Path]
	etag := o.etags[r.URL.Path]
	failHead := o.failHead
	bareHead := o.bareHead
	if r.Method == http.MethodHead {
		o.heads[r.URL.Path]++
	} else {
		o.gets[r.URL.Path]++
	}
	o.mu.Unlock()

	if r.Method == http.MethodHead && failHead {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if r.Method == http.MethodHead && bareHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	if etag != "" {
		w.Header().Set("ETag", `"`+etag+`"`)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = io.WriteString(w, body)
	}
}

type testEnv struct {
	manager *Manager
	store   cache.Store
	logs    *bytes.Buffer
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(logs)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	opts := Options{
		Store:       store,
		Source:      fetch.NewRouter(fetch.NewHTTPFetcher(fetch.HTTPOptions{}), nil),
		Logger:      logger,
		Concurrency: 2,
		HeadCheck:   true,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	manager, err := NewManager(opts)
	require.NoError(t, err)
	return &testEnv{manager: manager, store: store, logs: logs}
}
