package utils

import (
	"github.com/redis/go-redis/v9"

	"antmaps-api/internal/config"
	"antmaps-api/internal/logger"
)

// OpenRedis：按配置打开 Redis 客户端；未配置主机时返回 nil
func OpenRedis(c config.Redis) *redis.Client {
	if c.Host == "" {
		return nil
	}
	addr := c.Host + ":" + c.Port
	logger.L().Debug("redis_open", "addr", addr, "db", c.DB)
	return redis.NewClient(&redis.Options{Addr: addr, Password: c.Pass, DB: c.DB})
}
