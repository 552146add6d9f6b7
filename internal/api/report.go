package api

import (
	"net/http"

	json "github.com/goccy/go-json"

	"antmaps-api/internal/logger"
	"antmaps-api/internal/report"
)

const reportThanks = "Thank you! Your report has been received."

// reportResponse：纠错表单结果
type reportResponse struct {
	Submitted bool              `json:"submitted"`
	Valid     bool              `json:"valid"`
	Errors    map[string]string `json:"errors,omitempty"`
	Message   string            `json:"message,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// errorReport：GET 返回空表单状态；POST 校验并投递
// 约束：投递失败时仅 Debug 配置返回 500 与错误原文；生产环境记录日志，调用方只看到通用提示
func (d Deps) errorReport(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, reportResponse{})
		return
	case http.MethodPost:
	default:
		w.Header().Set("allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	f := report.Form{
		Name:      r.FormValue("name"),
		Email:     r.FormValue("email"),
		Message:   r.FormValue("message"),
		HumanTest: r.FormValue("humantest"),
	}
	out := d.Reports.Submit(r.Context(), f)
	switch {
	case out.Errors != nil:
		writeJSON(w, http.StatusOK, reportResponse{Submitted: true, Errors: out.Errors})
	case out.Err != nil && d.Debug:
		writeJSON(w, http.StatusInternalServerError, reportResponse{Submitted: true, Valid: true, Error: out.Err.Error()})
	default:
		writeJSON(w, http.StatusOK, reportResponse{Submitted: true, Valid: true, Message: reportThanks})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.L().Error("json_encode_error", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}
