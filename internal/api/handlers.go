package api

import (
	"errors"
	"net/http"
	"time"

	"antmaps-api/internal/filter"
	"antmaps-api/internal/logger"
	"antmaps-api/internal/metrics"
	"antmaps-api/internal/params"
	"antmaps-api/internal/render"
)

// serveOp：解析参数 → 组合过滤 → 执行 → 渲染
// 约束：参数校验失败以 200 返回错误载荷；后端失败返回 500，错误详情仅写日志
func (d Deps) serveOp(op params.Op, suffixFormat string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		raw := r.URL.Query()
		if suffixFormat != "" {
			raw.Set(params.ParamFormat, suffixFormat)
		}
		format := params.ParseFormat(raw.Get(params.ParamFormat))
		defer func() {
			metrics.RequestsTotal.WithLabelValues(string(op), format.String()).Inc()
			metrics.RequestDurationMs.WithLabelValues(string(op)).Observe(float64(time.Since(start).Microseconds()) / 1000)
		}()

		pc, err := params.Resolve(op, raw, d.Engine.Backend())
		if err != nil {
			var ve *params.ValidationError
			if errors.As(err, &ve) {
				metrics.ValidationErrorsTotal.WithLabelValues(string(op)).Inc()
				logger.L().Debug("validation_error", "op", op, "msg", ve.Message)
				if err := render.WriteError(w, op, format, ve.Message); err != nil {
					logger.L().Warn("write_error", "op", op, "err", err)
				}
				return
			}
			internalError(w, op, err)
			return
		}
		q, err := filter.Compose(pc)
		if err != nil {
			internalError(w, op, err)
			return
		}
		res, err := d.Engine.Run(r.Context(), q)
		if err != nil {
			internalError(w, op, err)
			return
		}
		if err := render.Write(w, op, format, res); err != nil {
			logger.L().Warn("write_error", "op", op, "err", err)
		}
	}
}

func internalError(w http.ResponseWriter, op params.Op, err error) {
	logger.L().Error("query_error", "op", op, "err", err)
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("internal server error\n"))
}
