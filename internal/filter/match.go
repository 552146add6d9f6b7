package filter

import "strings"

// Row：内存求值时的行访问；字段缺失或为空时 ok=false
type Row interface {
	Text(f Field) (string, bool)
	Number(f Field) (float64, bool)
}

// Catalog：层级归属与本土集合成员关系，供 InSubfamily / NativeIn 求值
type Catalog interface {
	SubfamilyOf(genus string) string
	HasNative(taxonCode, unit string) bool
}

// Match：对单行求合取值，语义与 SQL 编译结果一致
func (s Set) Match(r Row, c Catalog) bool {
	for _, p := range s {
		if !p.Match(r, c) {
			return false
		}
	}
	return true
}

func (p Predicate) Match(r Row, c Catalog) bool {
	if len(p.Fields) == 0 {
		return false
	}
	f := p.Fields[0]
	switch p.Op {
	case Eq, Gte, Lte:
		if f.Numeric() {
			v, ok := r.Number(f)
			if !ok {
				return false
			}
			switch p.Op {
			case Gte:
				return v >= p.Num
			case Lte:
				return v <= p.Num
			}
			return v == p.Num
		}
		v, ok := r.Text(f)
		if !ok {
			return false
		}
		switch p.Op {
		case Gte:
			return v >= p.Text
		case Lte:
			return v <= p.Text
		}
		return v == p.Text
	case NotNull:
		if f.Numeric() {
			_, ok := r.Number(f)
			return ok
		}
		_, ok := r.Text(f)
		return ok
	case PrefixAny:
		tok := strings.ToLower(p.Text)
		for _, pf := range p.Fields {
			if v, ok := r.Text(pf); ok && strings.HasPrefix(strings.ToLower(v), tok) {
				return true
			}
		}
		return false
	case Contains:
		v, ok := r.Text(f)
		return ok && strings.Contains(strings.ToLower(v), strings.ToLower(p.Text))
	case InSubfamily:
		g, ok := r.Text(f)
		return ok && c != nil && c.SubfamilyOf(g) == p.Text
	case NativeIn:
		t, ok := r.Text(f)
		return ok && c != nil && c.HasNative(t, p.Text)
	}
	return false
}
