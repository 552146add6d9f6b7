// 包 cache：整响应缓存，后端为 Redis（多实例共享）或进程内 go-cache（单机开发）
package cache

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"antmaps-api/internal/logger"
)

// Entry：一次成功响应的快照
type Entry struct {
	ContentType string `json:"content_type"`
	Disposition string `json:"disposition,omitempty"`
	Body        []byte `json:"body"`
}

// Store：缓存后端；Get 未命中或后端异常时返回 false，不向调用方传播错误
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, e *Entry, ttl time.Duration)
	Name() string
}

type Redis struct {
	rc *redis.Client
}

func NewRedis(rc *redis.Client) *Redis { return &Redis{rc: rc} }

func (c *Redis) Name() string { return "redis" }

func (c *Redis) Get(ctx context.Context, key string) (*Entry, bool) {
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn("cache_get_error", "backend", "redis", "err", err)
		}
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		logger.L().Warn("cache_decode_error", "key", key, "err", err)
		return nil, false
	}
	return &e, true
}

func (c *Redis) Set(ctx context.Context, key string, e *Entry, ttl time.Duration) {
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.rc.Set(ctx, key, b, ttl).Err(); err != nil {
		logger.L().Warn("cache_set_error", "backend", "redis", "err", err)
	}
}

// Memory：进程内缓存；过期清理周期为 TTL 的两倍
type Memory struct {
	c *gocache.Cache
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{c: gocache.New(ttl, 2*ttl)}
}

func (c *Memory) Name() string { return "memory" }

func (c *Memory) Get(_ context.Context, key string) (*Entry, bool) {
	v, ok := c.c.Get(key)
	if !ok {
		return nil, false
	}
	e, ok := v.(*Entry)
	return e, ok
}

func (c *Memory) Set(_ context.Context, key string, e *Entry, ttl time.Duration) {
	c.c.Set(key, e, ttl)
}

// Key：前缀 + 方法 + 路径 + 排序后的查询串
// 约束：同名参数的多个取值也排序，参数顺序不同的请求命中同一条目
func Key(prefix string, r *http.Request) string {
	q := r.URL.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(r.Method)
	sb.WriteByte(' ')
	sb.WriteString(r.URL.Path)
	for i, k := range keys {
		vs := append([]string(nil), q[k]...)
		sort.Strings(vs)
		for j, v := range vs {
			if i == 0 && j == 0 {
				sb.WriteByte('?')
			} else {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}
