package pwa

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	StaticCachePrefix  = "sprunki-static-v"
	DynamicCachePrefix = "sprunki-dynamic-v"

	offlineText     = "Offline"
	unavailableText = "Resource not available"

	maxCachedBody  = 4 << 20
	defaultTimeout = 20 * time.Second
)

// hop-by-hop headers are not forwarded in either direction
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Connection",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Options configures a Proxy
type Options struct {
	Origin  string   // site the proxy fronts, e.g. http://localhost:5000
	Version string   // cache generation; Activate drops other generations
	Static  []string // paths precached by Install
	Cache   Cache
	Client  *http.Client
	Logger  *zap.Logger
}

// Proxy serves the site through an offline cache. Static assets are served
// cache-first; everything else is fetched network-first and falls back to
// the cache. Only GET requests are cached.
type Proxy struct {
	origin  *url.URL
	version string
	static  []string
	cache   Cache
	client  *http.Client
	logger  *zap.Logger
}

// New validates the origin and fills defaults
func New(opts Options) (*Proxy, error) {
	origin, err := url.Parse(opts.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, errors.Errorf("invalid origin %q", opts.Origin)
	}
	p := &Proxy{
		origin:  origin,
		version: opts.Version,
		cache:   opts.Cache,
		client:  opts.Client,
		logger:  opts.Logger,
	}
	for _, s := range opts.Static {
		p.static = append(p.static, normalizePath(s))
	}
	if p.cache == nil {
		p.cache = NewMemoryCache()
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: defaultTimeout}
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p, nil
}

// StaticCache is the name of this version's static cache
func (p *Proxy) StaticCache() string { return StaticCachePrefix + p.version }

// DynamicCache is the name of this version's dynamic cache
func (p *Proxy) DynamicCache() string { return DynamicCachePrefix + p.version }

// IsStatic reports whether a path is served cache-first
func IsStatic(path string) bool {
	return strings.Contains(path, "/static/") ||
		strings.Contains(path, "manifest.json") ||
		strings.Contains(path, "favicon.ico")
}

// Install precaches the static list. Every path is attempted; the first
// failure is returned.
func (p *Proxy) Install(ctx context.Context) error {
	p.logger.Info("pwa install", zap.String("version", p.version), zap.Int("files", len(p.static)))

	var first error
	for _, path := range p.static {
		entry, err := p.fetch(ctx, http.MethodGet, path, nil, nil)
		if err == nil && !ok(entry.Status) {
			err = errors.Errorf("status %d", entry.Status)
		}
		if err == nil {
			err = p.cache.Put(ctx, p.StaticCache(), path, entry)
		}
		if err != nil {
			p.logger.Warn("pwa precache failed", zap.String("path", path), zap.Error(err))
			if first == nil {
				first = errors.Wrapf(err, "precache %s", path)
			}
		}
	}
	return first
}

// Activate deletes every cache that does not belong to this version and
// returns the names it removed
func (p *Proxy) Activate(ctx context.Context) ([]string, error) {
	names, err := p.cache.Names(ctx)
	if err != nil {
		return nil, err
	}
	var deleted []string
	for _, name := range names {
		if name == p.StaticCache() || name == p.DynamicCache() {
			continue
		}
		if err := p.cache.Delete(ctx, name); err != nil {
			return deleted, err
		}
		p.logger.Info("pwa deleted old cache", zap.String("cache", name))
		deleted = append(deleted, name)
	}
	return deleted, nil
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		p.passThrough(w, r)
		return
	}
	if IsStatic(r.URL.Path) {
		p.cacheFirst(w, r)
		return
	}
	p.networkFirst(w, r)
}

func (p *Proxy) cacheFirst(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := r.URL.RequestURI()

	if e, hit := p.match(ctx, key); hit {
		write(w, e, "hit")
		return
	}

	e, err := p.fetch(ctx, http.MethodGet, key, r.Header, nil)
	if err != nil {
		p.logger.Debug("pwa static fetch failed", zap.String("path", key), zap.Error(err))
		http.Error(w, unavailableText, http.StatusServiceUnavailable)
		return
	}
	if ok(e.Status) {
		p.store(ctx, p.StaticCache(), key, e)
	}
	write(w, e, "miss")
}

func (p *Proxy) networkFirst(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := r.URL.RequestURI()

	e, err := p.fetch(ctx, http.MethodGet, key, r.Header, nil)
	if err == nil {
		if ok(e.Status) {
			p.store(ctx, p.DynamicCache(), key, e)
		}
		write(w, e, "miss")
		return
	}

	p.logger.Debug("pwa network failed, trying cache", zap.String("path", key), zap.Error(err))
	if cached, hit := p.match(ctx, key); hit {
		write(w, cached, "hit")
		return
	}
	http.Error(w, offlineText, http.StatusServiceUnavailable)
}

func (p *Proxy) passThrough(w http.ResponseWriter, r *http.Request) {
	e, err := p.fetch(r.Context(), r.Method, r.URL.RequestURI(), r.Header, r.Body)
	if err != nil {
		p.logger.Debug("pwa pass-through failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, offlineText, http.StatusServiceUnavailable)
		return
	}
	write(w, e, "")
}

// match looks the key up in this version's caches, static first
func (p *Proxy) match(ctx context.Context, key string) (*Entry, bool) {
	for _, name := range []string{p.StaticCache(), p.DynamicCache()} {
		e, hit, err := p.cache.Get(ctx, name, key)
		if err != nil {
			p.logger.Warn("pwa cache read failed", zap.String("cache", name), zap.Error(err))
			continue
		}
		if hit {
			return e, true
		}
	}
	return nil, false
}

func (p *Proxy) store(ctx context.Context, cache, key string, e *Entry) {
	if len(e.Body) > maxCachedBody {
		return
	}
	if err := p.cache.Put(ctx, cache, key, e); err != nil {
		p.logger.Warn("pwa cache write failed", zap.String("cache", cache), zap.Error(err))
	}
}

func (p *Proxy) fetch(ctx context.Context, method, requestURI string, header http.Header, body io.Reader) (*Entry, error) {
	ref, err := url.ParseRequestURI(requestURI)
	if err != nil {
		return nil, errors.Wrap(err, "parse request uri")
	}
	target := *p.origin
	target.Path = strings.TrimRight(p.origin.Path, "/") + ref.Path
	target.RawQuery = ref.RawQuery

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if header != nil {
		req.Header = header.Clone()
		for _, h := range hopHeaders {
			req.Header.Del(h)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "origin request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read origin response")
	}

	h := resp.Header.Clone()
	for _, name := range hopHeaders {
		h.Del(name)
	}
	h.Del("Content-Length")
	return &Entry{Status: resp.StatusCode, Header: h, Body: raw}, nil
}

func write(w http.ResponseWriter, e *Entry, cacheState string) {
	for k, vs := range e.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if cacheState != "" {
		w.Header().Set("X-Cache", cacheState)
	}
	w.WriteHeader(e.Status)
	_, _ = io.Copy(w, bytes.NewReader(e.Body))
}

func ok(status int) bool { return status >= 200 && status < 300 }

func normalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}
