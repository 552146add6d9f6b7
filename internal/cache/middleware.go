package cache

import (
	"bytes"
	"net/http"
	"time"

	"antmaps-api/internal/config"
	"antmaps-api/internal/metrics"
)

const defaultTTL = 10 * time.Minute

// recorder：透传写出的同时保留副本，供写入缓存
type recorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *recorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Middleware：按配置缓存 GET 请求的 200 响应
// 约束：cfg.Enabled=false 或 s 为 nil 时原样返回 next；bypass 返回 true 的请求不读不写缓存
func Middleware(cfg config.Cache, s Store, bypass func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || s == nil {
			return next
		}
		ttl := cfg.TTL
		if ttl <= 0 {
			ttl = defaultTTL
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || (bypass != nil && bypass(r)) {
				next.ServeHTTP(w, r)
				return
			}
			key := Key(cfg.KeyPrefix, r)
			if e, ok := s.Get(r.Context(), key); ok {
				metrics.CacheHitsTotal.WithLabelValues(s.Name()).Inc()
				h := w.Header()
				h.Set("content-type", e.ContentType)
				if e.Disposition != "" {
					h.Set("content-disposition", e.Disposition)
				}
				h.Set("X-Cache", "HIT")
				_, _ = w.Write(e.Body)
				return
			}
			metrics.CacheMissesTotal.WithLabelValues(s.Name()).Inc()
			w.Header().Set("X-Cache", "MISS")
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status != http.StatusOK {
				return
			}
			s.Set(r.Context(), key, &Entry{
				ContentType: w.Header().Get("content-type"),
				Disposition: w.Header().Get("content-disposition"),
				Body:        rec.buf.Bytes(),
			}, ttl)
		})
	}
}
