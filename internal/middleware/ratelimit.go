// 包 middleware：入口中间件（按访问者限流、跨域头、异常恢复）
package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"antmaps-api/internal/logger"
	"antmaps-api/internal/metrics"
)

// idleAfter：访问者闲置超过该时长后其令牌桶可被回收
const idleAfter = 10 * time.Minute

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// RateLimiter：按访问者 IP 的令牌桶限流（每秒 qps，突发同 qps）
// 背景：数据接口无鉴权，防止单一来源压垮数据库
// 约束：不做排队，超限直接返回 429；闲置桶在请求路径上顺带清理，不启动后台协程
type RateLimiter struct {
	qps      int
	mu       sync.Mutex
	visitors map[string]*visitor
	lastGC   time.Time
	now      func() time.Time
}

func NewRateLimiter(qps int) *RateLimiter {
	if qps <= 0 {
		qps = 50
	}
	return &RateLimiter{qps: qps, visitors: map[string]*visitor{}, now: time.Now}
}

// Allow：为 ip 消耗一个令牌
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	if now.Sub(rl.lastGC) > idleAfter {
		for k, v := range rl.visitors {
			if now.Sub(v.seen) > idleAfter {
				delete(rl.visitors, k)
			}
		}
		rl.lastGC = now
	}
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.qps), rl.qps)}
		rl.visitors[ip] = v
	}
	v.seen = now
	return v.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := VisitorIP(r)
		if !rl.Allow(ip) {
			metrics.RateLimitedTotal.Inc()
			logger.L().Debug("rate_limited", "ip", ip, "path", r.URL.Path)
			w.Header().Set("retry-after", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
