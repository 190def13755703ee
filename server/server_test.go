package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/njyeung/sprunki/backend"
	"github.com/njyeung/sprunki/comments"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, fallback http.Handler) (*Server, *backend.Memory, map[string]*comments.MemoryFlags) {
	t.Helper()
	mem := backend.NewMemory()
	mem.Seed("/games/sprunki", backend.SampleComments(25, time.Now())...)

	flags := make(map[string]*comments.MemoryFlags)
	s := New(Options{
		API:      mem,
		Fallback: fallback,
		Flags: func(visitor string) comments.FlagStore {
			if flags[visitor] == nil {
				flags[visitor] = comments.NewMemoryFlags()
			}
			return flags[visitor]
		},
	})
	return s, mem, flags
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _, _ := newServer(t, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestWidget(t *testing.T) {
	s, _, _ := newServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/widget/games/sprunki", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `id="comment-stats"`)
	assert.Equal(t, 10, strings.Count(body, `class="comment-item"`))
	assert.Contains(t, body, "Load more comments (15 remaining)")

	cookie := rec.Result().Cookies()
	require.NotEmpty(t, cookie)
	assert.Equal(t, VisitorCookie, cookie[0].Name)

	more := serve(s, httptest.NewRequest(http.MethodGet, "/widget/games/sprunki?pages=3", nil))
	assert.Equal(t, 25, strings.Count(more.Body.String(), `class="comment-item"`))
	assert.NotContains(t, more.Body.String(), "load-more-btn")
}

func TestWidgetMarksVisitorLikes(t *testing.T) {
	s, _, flags := newServer(t, nil)
	visitor := "5b7f0b9e-3c1a-4b7e-9d0e-2f6a3b1c4d5e"
	flags[visitor] = comments.NewMemoryFlags()
	require.NoError(t, flags[visitor].Set(comments.LikeKey("c1", "")))

	req := httptest.NewRequest(http.MethodGet, "/widget/games/sprunki", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: visitor})
	rec := serve(s, req)

	assert.Equal(t, 1, strings.Count(rec.Body.String(), "like-btn liked"))
	assert.Empty(t, rec.Result().Cookies(), "a valid visitor cookie is kept")
}

func TestWidgetErrors(t *testing.T) {
	s, mem, _ := newServer(t, nil)
	mem.Fail("ListComments", &backend.NetworkError{Op: "list comments"})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/widget/games/sprunki", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), backend.NetworkErrorMessage)
}

func TestWidgetStats(t *testing.T) {
	s, _, _ := newServer(t, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/widget-stats/games/sprunki", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="total-comments">25<`)
}

func TestFallback(t *testing.T) {
	fallback := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	s, _, _ := newServer(t, fallback)
	assert.Equal(t, http.StatusTeapot, serve(s, httptest.NewRequest(http.MethodGet, "/static/app.js", nil)).Code)

	bare, _, _ := newServer(t, nil)
	assert.Equal(t, http.StatusNotFound, serve(bare, httptest.NewRequest(http.MethodGet, "/nope", nil)).Code)
}

func TestCORS(t *testing.T) {
	s := New(Options{API: backend.NewMemory(), AllowedOrigins: []string{"https://sprunki.example/"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://sprunki.example")
	assert.Equal(t, "https://sprunki.example", serve(s, req).Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, serve(s, req).Code)
}
