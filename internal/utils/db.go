// 包 utils：由配置构造数据库与 Redis 连接参数
package utils

import (
	"net/url"

	"antmaps-api/internal/config"
)

// PostgresDSN：以 URL 形式拼装 DSN，并附带会话参数
// 约束：会话固定为 UTC、UTF8、读已提交且只读；数据服务从不写库
func PostgresDSN(c config.DB) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	q.Set("timezone", "UTC")
	q.Set("client_encoding", "UTF8")
	q.Set("default_transaction_isolation", "read committed")
	q.Set("default_transaction_read_only", "on")
	u.RawQuery = q.Encode()
	return u.String()
}

// WritableDSN：开发库建表与写入夹具使用，去掉只读会话参数
func WritableDSN(c config.DB) string {
	u, _ := url.Parse(PostgresDSN(c))
	q := u.Query()
	q.Del("default_transaction_read_only")
	u.RawQuery = q.Encode()
	return u.String()
}
