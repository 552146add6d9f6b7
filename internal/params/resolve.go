package params

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// 规范参数名
const (
	ParamSpecies   = "species"
	ParamGenus     = "genus"
	ParamSubfamily = "subfamily"
	ParamUnit      = "bentity_id"
	ParamUnit2     = "bentity2_id"
	ParamAccession = "accession_id"
	ParamLat       = "lat"
	ParamLon       = "lon"
	ParamMinLat    = "min_lat"
	ParamMaxLat    = "max_lat"
	ParamMinLon    = "min_lon"
	ParamMaxLon    = "max_lon"
	ParamStatus    = "status"
	ParamQuery     = "q"
	ParamTaxonCode = "taxon_code"
	ParamGenusName = "genus_name"
	ParamFormat    = "format"
)

// Kind：参数值的归一化类别
type Kind int

const (
	KindText Kind = iota
	KindTaxon
	KindUnit
	KindAccession
	KindStatus
	KindNumber
)

var kinds = map[string]Kind{
	ParamSpecies:   KindTaxon,
	ParamGenus:     KindTaxon,
	ParamSubfamily: KindTaxon,
	ParamTaxonCode: KindTaxon,
	ParamGenusName: KindTaxon,
	ParamUnit:      KindUnit,
	ParamUnit2:     KindUnit,
	ParamAccession: KindAccession,
	ParamStatus:    KindStatus,
	ParamLat:       KindNumber,
	ParamLon:       KindNumber,
	ParamMinLat:    KindNumber,
	ParamMaxLat:    KindNumber,
	ParamMinLon:    KindNumber,
	ParamMaxLon:    KindNumber,
	ParamQuery:     KindText,
}

// 参数别名：对外文档名与数据服务历史名均可用
var aliases = map[string]string{
	"unit":            ParamUnit,
	"unit_id":         ParamUnit,
	"bentity":         ParamUnit,
	"unit2":           ParamUnit2,
	"unit2_id":        ParamUnit2,
	"bentity2":        ParamUnit2,
	"gabi_acc_number": ParamAccession,
}

// Casing：标识符规范大小写，由存储层决定
type Casing interface {
	Canonical(kind Kind, v string) string
}

// DefaultCasing：分类名首字母大写其余小写；地理单元与馆藏号全大写；状态取首字母大写
type DefaultCasing struct{}

func (DefaultCasing) Canonical(kind Kind, v string) string {
	switch kind {
	case KindTaxon:
		return capitalize(v)
	case KindUnit, KindAccession:
		return strings.ToUpper(v)
	case KindStatus:
		r, _ := utf8.DecodeRuneInString(v)
		if r == utf8.RuneError {
			return ""
		}
		return string(unicode.ToUpper(r))
	}
	return v
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}

// Format：输出格式
type Format int

const (
	FormatObject Format = iota
	FormatTable
)

// ParseFormat：csv 选择表格格式，其余（含缺省与未知值）为结构化对象
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "csv") {
		return FormatTable
	}
	return FormatObject
}

func (f Format) String() string {
	if f == FormatTable {
		return "csv"
	}
	return "json"
}

// ValidationError：缺少必需参数或参数非法；面向用户的提示与"无结果"不同
type ValidationError struct {
	Op      Op
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Context：解析后的过滤上下文，仅包含生效的参数
type Context struct {
	Op     Op
	Format Format
	Groups []string
	values map[string]string
}

// Get：生效参数值，未生效返回空串
func (c *Context) Get(name string) string { return c.values[name] }

func (c *Context) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Float：数值参数；解析阶段已校验，未生效时返回 false
func (c *Context) Float(name string) (float64, bool) {
	v, ok := c.values[name]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

// Applied：指定参数组是否生效
func (c *Context) Applied(group string) bool {
	for _, g := range c.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Resolve：按操作声明解析原始参数
// 流程：别名归并 → 去空白与空值 → 数值校验 → 规范大小写 → 互斥组自上而下取首个完整组 → 叠加组 → 必需校验
func Resolve(op Op, raw url.Values, casing Casing) (*Context, error) {
	rule, ok := rules[op]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	if casing == nil {
		casing = DefaultCasing{}
	}
	ctx := &Context{Op: op, Format: ParseFormat(raw.Get(ParamFormat)), values: map[string]string{}}

	wanted := rule.params()
	present := collect(raw, wanted)
	for name, v := range present {
		kind := kinds[name]
		if kind == KindNumber {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return nil, &ValidationError{Op: op, Message: fmt.Sprintf("The '%s' argument must be a number.", name)}
			}
			continue
		}
		present[name] = casing.Canonical(kind, v)
	}

	apply := func(g Group) bool {
		for _, p := range g.Params {
			if _, ok := present[p]; !ok {
				return false
			}
		}
		for _, p := range g.Params {
			ctx.values[p] = present[p]
		}
		ctx.Groups = append(ctx.Groups, g.Name)
		return true
	}
	for _, g := range rule.Exclusive {
		if apply(g) {
			break
		}
	}
	for _, g := range rule.Additive {
		apply(g)
	}
	for _, p := range rule.Optional {
		if v, ok := present[p]; ok {
			ctx.values[p] = v
		}
	}

	if rule.Required && len(ctx.Groups) == 0 {
		return nil, &ValidationError{Op: op, Message: rule.Message}
	}
	return ctx, nil
}

// collect：只收集操作涉及的参数；规范名优先于别名，别名按字典序取第一个非空值
func collect(raw url.Values, wanted map[string]struct{}) map[string]string {
	out := map[string]string{}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := wanted[k]; !ok {
			continue
		}
		if v := strings.TrimSpace(raw.Get(k)); v != "" {
			out[k] = v
		}
	}
	for _, k := range keys {
		name, ok := aliases[k]
		if !ok {
			continue
		}
		if _, ok := wanted[name]; !ok {
			continue
		}
		if _, done := out[name]; done {
			continue
		}
		if v := strings.TrimSpace(raw.Get(k)); v != "" {
			out[name] = v
		}
	}
	return out
}
