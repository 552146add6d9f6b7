// 包 filter：过滤组合器
// 将解析后的参数上下文翻译为作用于只读数据模式的类型化谓词集合；SQL 后端与内存后端共用同一套谓词
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"antmaps-api/internal/params"
)

// Field：逻辑字段，由各后端映射到具体列
type Field int

const (
	FieldSubfamily Field = iota
	FieldGenus
	FieldTaxonCode
	FieldSpeciesName
	FieldUnitID
	FieldUnitName
	FieldCategory
	FieldAccession
	FieldLat
	FieldLon
	FieldStatus
	FieldRecordCount
)

var fieldNames = [...]string{
	FieldSubfamily:   "subfamily",
	FieldGenus:       "genus",
	FieldTaxonCode:   "taxon_code",
	FieldSpeciesName: "species_name",
	FieldUnitID:      "unit_id",
	FieldUnitName:    "unit_name",
	FieldCategory:    "category",
	FieldAccession:   "accession",
	FieldLat:         "lat",
	FieldLon:         "lon",
	FieldStatus:      "status",
	FieldRecordCount: "record_count",
}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return "field(" + strconv.Itoa(int(f)) + ")"
}

// Numeric：数值字段以 Num 绑定，其余以 Text 绑定
func (f Field) Numeric() bool {
	return f == FieldLat || f == FieldLon || f == FieldRecordCount
}

// Op：谓词运算
type Op int

const (
	Eq Op = iota
	Gte
	Lte
	NotNull
	// PrefixAny：词元是任一字段的前缀（大小写不敏感）
	PrefixAny
	// Contains：词元是字段的子串（大小写不敏感）
	Contains
	// InSubfamily：属归属于给定亚科（层级过滤）
	InSubfamily
	// NativeIn：物种在给定地理单元存在本土汇总行（集合成员关系，半连接）
	NativeIn
)

var opNames = [...]string{Eq: "=", Gte: ">=", Lte: "<=", NotNull: "not-null", PrefixAny: "prefix-any", Contains: "contains", InSubfamily: "in-subfamily", NativeIn: "native-in"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// Predicate：单个谓词；Fields 仅 PrefixAny 可有多个
type Predicate struct {
	Op     Op
	Fields []Field
	Text   string
	Num    float64
}

func (p Predicate) String() string {
	names := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		names[i] = f.String()
	}
	val := p.Text
	if len(p.Fields) == 1 && p.Fields[0].Numeric() {
		val = strconv.FormatFloat(p.Num, 'f', -1, 64)
	}
	if p.Op == NotNull {
		return fmt.Sprintf("%s %s", strings.Join(names, "|"), p.Op)
	}
	return fmt.Sprintf("%s %s %s", strings.Join(names, "|"), p.Op, val)
}

func EqText(f Field, v string) Predicate {
	return Predicate{Op: Eq, Fields: []Field{f}, Text: v}
}

func EqNum(f Field, v float64) Predicate {
	return Predicate{Op: Eq, Fields: []Field{f}, Num: v}
}

func AtLeast(f Field, v float64) Predicate {
	return Predicate{Op: Gte, Fields: []Field{f}, Num: v}
}

func AtMost(f Field, v float64) Predicate {
	return Predicate{Op: Lte, Fields: []Field{f}, Num: v}
}

func Present(f Field) Predicate {
	return Predicate{Op: NotNull, Fields: []Field{f}}
}

func Prefix(token string, fields ...Field) Predicate {
	return Predicate{Op: PrefixAny, Fields: fields, Text: token}
}

func Substring(f Field, token string) Predicate {
	return Predicate{Op: Contains, Fields: []Field{f}, Text: token}
}

func GenusInSubfamily(subfamily string) Predicate {
	return Predicate{Op: InSubfamily, Fields: []Field{FieldGenus}, Text: subfamily}
}

func NativeInUnit(unit string) Predicate {
	return Predicate{Op: NativeIn, Fields: []Field{FieldTaxonCode}, Text: unit}
}

// Set：合取谓词集合
type Set []Predicate

// Has：是否含有作用于字段 f 的运算 op
func (s Set) Has(op Op, f Field) bool {
	for _, p := range s {
		if p.Op != op {
			continue
		}
		for _, pf := range p.Fields {
			if pf == f {
				return true
			}
		}
	}
	return false
}

func (s Set) String() string {
	parts := make([]string, len(s))
	for i, p := range s {
		parts[i] = p.String()
	}
	return strings.Join(parts, " AND ")
}

// Richness：丰富度查询模式；无分类过滤时直接使用预聚合表
type Richness struct {
	Precomputed bool
	Where       Set
}

// Overlap：共有物种查询；两侧均限定为 Category
type Overlap struct {
	Reference string
	Category  string
}

// Query：一次后端查询的完整描述
type Query struct {
	Op       params.Op
	Format   params.Format
	Where    Set
	Richness Richness
	Overlap  Overlap

	// Empty：无需访问后端即可确定为空结果（例如无词元的自动补全）
	Empty bool

	// GenusOnly：antweb-links 按属查询
	GenusOnly bool
}
