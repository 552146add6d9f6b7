package middleware

import (
	"net/http"
	"runtime/debug"

	"antmaps-api/internal/config"
	"antmaps-api/internal/logger"
)

// CORS：前端地图页面可能与数据服务不同源，所有响应附带允许来源头
func CORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("access-control-allow-origin", origin)
		h.Set("access-control-allow-methods", "GET, POST, OPTIONS")
		h.Set("access-control-allow-headers", "content-type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Recover：处理函数 panic 时记录堆栈并返回 500，不中断进程
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.L().Error("handler_panic", "path", r.URL.Path, "panic", v, "stack", string(debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Wrap：按配置组装入口中间件；顺序为 恢复 → 跨域 → 限流 → next
func Wrap(cfg config.Config, next http.Handler) http.Handler {
	h := next
	if cfg.RateLimitEnabled {
		h = NewRateLimiter(cfg.RateLimitQPS).Wrap(h)
	}
	if cfg.CORSOrigin != "" {
		h = CORS(cfg.CORSOrigin, h)
	}
	return Recover(h)
}
