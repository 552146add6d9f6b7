// 包 store: 提供与 PostgreSQL 的只读数据访问层，每种结果形状对应一个具名参数化查询
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"antmaps-api/internal/logger"
	"antmaps-api/internal/metrics"
	"antmaps-api/internal/params"
)

// Store: 数据库访问入口，持有连接池；标识符规范大小写沿用数据服务约定
type Store struct {
	params.DefaultCasing

	db *sql.DB
}

// AttachDB: 复用已打开的连接（测试中可为任意兼容 $N 占位符的驱动）
func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Open: 使用 DSN 打开数据库连接并配置连接池参数
func Open(dsn string, maxOpen, maxIdle int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return &Store{db: db}, nil
}

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping: 健康检查
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// query: 执行只读查询并记录耗时与失败；调用方负责关闭 rows
func (s *Store) query(ctx context.Context, name, q string, args []any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	ms := float64(time.Since(start).Microseconds()) / 1000
	metrics.StoreQueryDurationMs.WithLabelValues(name).Observe(ms)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues(name).Inc()
		logger.L().Error("db_query_error", "query", name, "err", err)
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	logger.L().Debug("db_query", "query", name, "args", len(args), "ms", ms)
	return rows, nil
}

// collect: 逐行扫描并关闭结果集；空结果返回非 nil 的空切片
func collect[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
