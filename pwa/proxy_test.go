package pwa

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type origin struct {
	*httptest.Server
	hits atomic.Int32
}

func newOrigin(t *testing.T) *origin {
	t.Helper()
	o := &origin{}
	mux := http.NewServeMux()
	mux.HandleFunc("/static/style.css", func(w http.ResponseWriter, r *http.Request) {
		o.hits.Add(1)
		w.Header().Set("Content-Type", "text/css")
		io.WriteString(w, "body{}")
	})
	mux.HandleFunc("/static/missing.png", func(w http.ResponseWriter, r *http.Request) {
		o.hits.Add(1)
		http.NotFound(w, r)
	})
	mux.HandleFunc("/api/comments/game", func(w http.ResponseWriter, r *http.Request) {
		o.hits.Add(1)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"success":true}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"data":[]}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		o.hits.Add(1)
		io.WriteString(w, "<html>home</html>")
	})
	o.Server = httptest.NewServer(mux)
	t.Cleanup(o.Close)
	return o
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func newProxy(t *testing.T, o *origin, cache Cache) *Proxy {
	t.Helper()
	p, err := New(Options{
		Origin:  o.URL,
		Version: "1.0.4",
		Static:  []string{"static/style.css"},
		Cache:   cache,
	})
	require.NoError(t, err)
	return p
}

func TestStaticIsCacheFirst(t *testing.T) {
	o := newOrigin(t)
	p := newProxy(t, o, nil)

	first := get(t, p, "/static/style.css")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "miss", first.Header().Get("X-Cache"))

	second := get(t, p, "/static/style.css")
	assert.Equal(t, "body{}", second.Body.String())
	assert.Equal(t, "hit", second.Header().Get("X-Cache"))
	assert.Equal(t, "text/css", second.Header().Get("Content-Type"))
	assert.Equal(t, int32(1), o.hits.Load())
}

func TestNonOKIsNotCached(t *testing.T) {
	o := newOrigin(t)
	p := newProxy(t, o, nil)

	assert.Equal(t, http.StatusNotFound, get(t, p, "/static/missing.png").Code)
	assert.Equal(t, http.StatusNotFound, get(t, p, "/static/missing.png").Code)
	assert.Equal(t, int32(2), o.hits.Load())
}

func TestNetworkFirstFallsBackToCache(t *testing.T) {
	o := newOrigin(t)
	p := newProxy(t, o, nil)

	assert.Equal(t, "<html>home</html>", get(t, p, "/").Body.String())
	assert.Equal(t, `{"success":true,"data":[]}`, get(t, p, "/api/comments/game").Body.String())
	assert.Equal(t, int32(2), o.hits.Load())

	o.Close()

	home := get(t, p, "/")
	assert.Equal(t, http.StatusOK, home.Code)
	assert.Equal(t, "hit", home.Header().Get("X-Cache"))
	assert.Equal(t, "<html>home</html>", home.Body.String())

	offline := get(t, p, "/never-seen")
	assert.Equal(t, http.StatusServiceUnavailable, offline.Code)
	assert.Contains(t, offline.Body.String(), "Offline")

	static := get(t, p, "/static/other.css")
	assert.Equal(t, http.StatusServiceUnavailable, static.Code)
	assert.Contains(t, static.Body.String(), "Resource not available")
}

func TestPostPassesThroughUncached(t *testing.T) {
	o := newOrigin(t)
	cache := NewMemoryCache()
	p := newProxy(t, o, cache)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/comments/game", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))

	names, err := cache.Names(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestInstallAndActivate(t *testing.T) {
	o := newOrigin(t)
	cache := NewMemoryCache()
	ctx := context.Background()

	old, err := New(Options{Origin: o.URL, Version: "1.0.3", Static: []string{"/static/style.css"}, Cache: cache})
	require.NoError(t, err)
	require.NoError(t, old.Install(ctx))

	p := newProxy(t, o, cache)
	require.NoError(t, p.Install(ctx))
	get(t, p, "/")

	deleted, err := p.Activate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sprunki-static-v1.0.3"}, deleted)

	names, err := cache.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sprunki-dynamic-v1.0.4", "sprunki-static-v1.0.4"}, names)

	hits := o.hits.Load()
	assert.Equal(t, "hit", get(t, p, "/static/style.css").Header().Get("X-Cache"))
	assert.Equal(t, hits, o.hits.Load(), "precached files are served without the network")
}

func TestInstallReportsFailures(t *testing.T) {
	o := newOrigin(t)
	p, err := New(Options{Origin: o.URL, Version: "1", Static: []string{"/static/missing.png", "/static/style.css"}})
	require.NoError(t, err)

	err = p.Install(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/static/missing.png")
	assert.Equal(t, "hit", get(t, p, "/static/style.css").Header().Get("X-Cache"), "later files are still cached")
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	o := newOrigin(t)
	cache := NewRedisCache(rdb)
	p := newProxy(t, o, cache)

	get(t, p, "/static/style.css")
	assert.True(t, mr.Exists(RedisKeyPrefix+"sprunki-static-v1.0.4"))

	// a second instance over the same Redis serves the cached copy
	other := newProxy(t, o, NewRedisCache(rdb))
	rec := get(t, other, "/static/style.css")
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))
	assert.Equal(t, "body{}", rec.Body.String())

	require.NoError(t, cache.Put(context.Background(), "sprunki-static-v0", "/x", &Entry{Status: 200}))
	deleted, err := p.Activate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"sprunki-static-v0"}, deleted)
}

func TestNewRejectsBadOrigin(t *testing.T) {
	_, err := New(Options{Origin: "not-a-url"})
	assert.Error(t, err)
}

func TestIsStatic(t *testing.T) {
	assert.True(t, IsStatic("/static/js/game.js"))
	assert.True(t, IsStatic("/manifest.json"))
	assert.True(t, IsStatic("/favicon.ico"))
	assert.False(t, IsStatic("/api/comments/game"))
}
