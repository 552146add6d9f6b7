// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"antmaps-api/internal/api"
	"antmaps-api/internal/cache"
	"antmaps-api/internal/config"
	"antmaps-api/internal/engine"
	"antmaps-api/internal/logger"
	"antmaps-api/internal/memstore"
	"antmaps-api/internal/metrics"
	"antmaps-api/internal/middleware"
	"antmaps-api/internal/migrate"
	"antmaps-api/internal/report"
	"antmaps-api/internal/store"
	"antmaps-api/internal/utils"
	"antmaps-api/internal/version"
)

func main() {
	for _, f := range config.EnvFiles() {
		_ = godotenv.Load(f)
	}
	cfg := config.Load()
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	l.Debug("log_init_ok", "commit", version.Commit)
	l.Debug("config_api_base", "base", cfg.APIBase)

	backend, closeBackend, err := openBackend(cfg, l)
	if err != nil {
		l.Error("backend_open_error", "err", err)
		os.Exit(1)
	}
	defer closeBackend()
	e := engine.New(backend)

	deps := api.Deps{Engine: e, Reports: report.NewService(openSender(cfg, l)), Debug: cfg.Debug}
	apiMux := api.BuildRoutes(deps)
	cached := cache.Middleware(cfg.Cache, openCache(cfg, l), api.Uncached)

	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", cached(http.StripPrefix(cfg.APIBase, apiMux)))
	// 背景：前端旧版本仍使用 /api/v01 前缀
	if cfg.APIBase != "/api/v01" {
		mux.Handle("/api/v01/", cached(http.StripPrefix("/api/v01", apiMux)))
	}
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", api.Health(e))
	mux.HandleFunc("/config.js", api.ConfigJS(cfg.APIBase))
	if cfg.StaticDir != "" {
		l.Debug("config_static_dir", "dir", cfg.StaticDir)
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(cfg, handler)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			l.Error("shutdown_error", "err", err)
		}
	}()
	l.Info("listening", "addr", cfg.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
	l.Info("shutdown_ok")
}

// openBackend：DATA_FIXTURE 非空时使用内存数据集，否则连接 PostgreSQL
func openBackend(cfg config.Config, l *slog.Logger) (engine.Backend, func(), error) {
	if cfg.Fixture != "" {
		ms, err := memstore.Open(cfg.Fixture)
		if err != nil {
			return nil, nil, err
		}
		l.Info("fixture_loaded", "path", cfg.Fixture, "stats", ms.Stats())
		return ms, func() {}, nil
	}
	if cfg.EnsureDDL || cfg.SeedFixture != "" {
		if err := prepareDB(cfg, l); err != nil {
			return nil, nil, err
		}
	}
	st, err := store.Open(utils.PostgresDSN(cfg.DB), cfg.DB.MaxOpen, cfg.DB.MaxIdle)
	if err != nil {
		return nil, nil, err
	}
	l.Info("db_open_ok", "host", cfg.DB.Host, "db", cfg.DB.Name)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Ping(ctx); err != nil {
		l.Error("db_ping_error", "err", err)
	} else {
		l.Info("db_ping_ok")
	}
	return st, func() { _ = st.Close() }, nil
}

// prepareDB：开发库建表并按需写入夹具；使用可写会话
func prepareDB(cfg config.Config, l *slog.Logger) error {
	db, err := sql.Open("postgres", utils.WritableDSN(cfg.DB))
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := context.Background()
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		return err
	}
	l.Info("schema_ok")
	if cfg.SeedFixture == "" {
		return nil
	}
	ms, err := memstore.Open(cfg.SeedFixture)
	if err != nil {
		return err
	}
	return migrate.Seed(ctx, db, ms.Snapshot())
}

// openCache：按后端配置选择缓存；Redis 不可达时回退到进程内缓存
func openCache(cfg config.Config, l *slog.Logger) cache.Store {
	if !cfg.Cache.Enabled {
		l.Info("cache_disabled")
		return nil
	}
	if cfg.Cache.Backend == "memory" {
		l.Info("cache_ready", "backend", "memory", "ttl", cfg.Cache.TTL)
		return cache.NewMemory(cfg.Cache.TTL)
	}
	rc := utils.OpenRedis(cfg.Redis)
	if rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := rc.Ping(ctx).Err()
		if err == nil {
			l.Info("redis_ping_ok")
			return cache.NewRedis(rc)
		}
		l.Error("redis_ping_error", "err", err)
		_ = rc.Close()
	}
	l.Warn("cache_fallback", "backend", "memory")
	return cache.NewMemory(cfg.Cache.TTL)
}

// openSender：配置投递地址时使用 shoutrrr，否则仅写日志
func openSender(cfg config.Config, l *slog.Logger) report.Sender {
	if cfg.Report.URL == "" {
		return report.LogSender{}
	}
	s, err := report.NewShoutrrr(cfg.Report.URL, cfg.Report.Timeout)
	if err != nil {
		l.Error("report_sender_error", "err", err)
		return report.LogSender{}
	}
	return s
}
