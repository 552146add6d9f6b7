// 包 render：响应序列化
// 同一份内部结果由两个独立渲染器输出：结构化对象（JSON，字段按声明顺序）与表格（CSV，附下载提示）
package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"antmaps-api/internal/engine"
	"antmaps-api/internal/params"
)

// ErrorColumn：表格格式错误响应的唯一列名
const ErrorColumn = "errormessage"

// Encode：按格式写出结果
func Encode(w io.Writer, f params.Format, res *engine.Result) error {
	if f == params.FormatTable {
		return Table(w, res.View.Table, res.Records)
	}
	return Object(w, res.View.Key, res.View.Object, res.Records)
}

// Object：{"<key>": [ {field: value, ...}, ... ]}，字段顺序与列声明一致
func Object(w io.Writer, key string, cols []engine.Column, recs []engine.Record) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeKey(&buf, key); err != nil {
		return err
	}
	if err := writeList(&buf, cols, recs); err != nil {
		return err
	}
	buf.WriteString("}\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// Table：表头即列声明，随后每条记录一行
func Table(w io.Writer, cols []engine.Column, recs []engine.Record) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for _, r := range recs {
		for i, c := range cols {
			row[i] = cell(r[c.Field])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeError：结构化格式在安全默认（空列表）上合并 error 与 errormessage；表格格式为单列单行
func EncodeError(w io.Writer, f params.Format, op params.Op, msg string) error {
	if f == params.FormatTable {
		return Table(w, []engine.Column{{Name: ErrorColumn, Field: ErrorColumn}}, []engine.Record{{ErrorColumn: msg}})
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeKey(&buf, engine.SafeDefault(op)); err != nil {
		return err
	}
	buf.WriteString(`[],"error":true,"errormessage":`)
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteString("}\n")
	_, err = w.Write(buf.Bytes())
	return err
}

// Write：写出 HTTP 响应（状态 200）
func Write(w http.ResponseWriter, op params.Op, f params.Format, res *engine.Result) error {
	headers(w, op, f)
	w.WriteHeader(http.StatusOK)
	return Encode(w, f, res)
}

// WriteError：校验失败同样以 200 返回，客户端按 error 字段区分
func WriteError(w http.ResponseWriter, op params.Op, f params.Format, msg string) error {
	headers(w, op, f)
	w.WriteHeader(http.StatusOK)
	return EncodeError(w, f, op, msg)
}

// ContentType：格式对应的媒体类型
func ContentType(f params.Format) string {
	if f == params.FormatTable {
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

func headers(w http.ResponseWriter, op params.Op, f params.Format) {
	w.Header().Set("content-type", ContentType(f))
	if f == params.FormatTable {
		w.Header().Set("content-disposition", fmt.Sprintf("attachment; filename=%q", string(op)+".csv"))
	}
}

func writeKey(buf *bytes.Buffer, key string) error {
	b, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}

func writeList(buf *bytes.Buffer, cols []engine.Column, recs []engine.Record) error {
	buf.WriteByte('[')
	for i, r := range recs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, c := range cols {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(buf, c.Name); err != nil {
				return err
			}
			b, err := json.Marshal(r[c.Field])
			if err != nil {
				return fmt.Errorf("encode %s: %w", c.Field, err)
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return nil
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}
