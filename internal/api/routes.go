// 包 api：集中注册数据服务路由以解耦主入口；每个操作一个路径，兼容旧名与 .csv/.json 后缀
package api

import (
	"net/http"
	"path"
	"strings"

	"antmaps-api/internal/engine"
	"antmaps-api/internal/params"
	"antmaps-api/internal/report"
	"antmaps-api/internal/version"
)

// Deps：路由所需依赖
type Deps struct {
	Engine  *engine.Engine
	Reports *report.Service
	// Debug=true 时投递失败返回 500 并附带错误原文
	Debug bool
}

var suffixes = []string{"", ".csv", ".json"}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(d Deps) *http.ServeMux {
	if d.Reports == nil {
		d.Reports = report.NewService(nil)
	}
	mux := http.NewServeMux()
	names := map[string]params.Op{}
	for _, op := range params.Ops() {
		names[string(op)] = op
	}
	for name, op := range params.LegacyNames() {
		names[name] = op
	}
	for name, op := range names {
		for _, sfx := range suffixes {
			mux.Handle("/"+name+sfx, d.serveOp(op, strings.TrimPrefix(sfx, ".")))
		}
	}
	mux.HandleFunc("/error-report", d.errorReport)
	return mux
}

// RouteOp：按请求路径最后一段解析操作（含旧名与格式后缀）
func RouteOp(p string) (params.Op, string, bool) {
	name := path.Base(p)
	format := ""
	for _, sfx := range suffixes[1:] {
		if strings.HasSuffix(name, sfx) {
			name = strings.TrimSuffix(name, sfx)
			format = sfx[1:]
			break
		}
	}
	op, ok := params.ParseOp(name)
	return op, format, ok
}

// Uncached：自动补全与纠错表单不走整响应缓存
func Uncached(r *http.Request) bool {
	if path.Base(r.URL.Path) == "error-report" {
		return true
	}
	op, _, ok := RouteOp(r.URL.Path)
	if !ok {
		return false
	}
	rule, _ := params.Lookup(op)
	return rule.Uncached
}

// Health：后端连通性检查
func Health(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("cache-control", "no-store")
		if err := e.Backend().Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unavailable\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	}
}

// ConfigJS：向前端暴露 API 基础路径，避免硬编码
func ConfigJS(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("window.__API_BASE__='" + apiBase + "'\n"))
		_, _ = w.Write([]byte("window.__COMMIT_SHA__='" + version.Commit + "'\n"))
	}
}
