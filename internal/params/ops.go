// 包 params：查询参数解析器
// 将原始查询串按操作声明的优先级表解析为规范化的过滤上下文；缺少必需参数组合时返回校验错误
package params

import "sort"

// Op：对外操作标识，与路由名一致
type Op string

const (
	OpSubfamilies       Op = "subfamilies"
	OpGenera            Op = "genera"
	OpSpecies           Op = "species"
	OpSpeciesSearch     Op = "species-search"
	OpBentities         Op = "bentities"
	OpBentitySearch     Op = "bentity-search"
	OpSpeciesPoints     Op = "species-points"
	OpCitations         Op = "citations"
	OpSpeciesMetadata   Op = "species-metadata"
	OpSpeciesRange      Op = "species-range"
	OpSpeciesPerBentity Op = "species-per-bentity"
	OpSpeciesInCommon   Op = "species-in-common"
	OpAntwebLinks       Op = "antweb-links"
)

// Group：一组须同时出现才生效的参数
type Group struct {
	Name   string
	Params []string
}

// Rule：单个操作的参数声明
// Exclusive 为互斥组，自上而下取第一个完整组；Additive 为叠加组，完整即生效且相互取交集；
// Required 时至少一个组生效，否则返回 Message
type Rule struct {
	Exclusive []Group
	Additive  []Group
	Optional  []string
	Required  bool
	Message   string
	// Uncached：绕过整响应缓存（自动补全必须反映当前数据）
	Uncached bool
}

var (
	genusGroup     = Group{Name: "genus", Params: []string{ParamGenus}}
	subfamilyGroup = Group{Name: "subfamily", Params: []string{ParamSubfamily}}
	speciesGroup   = Group{Name: "species", Params: []string{ParamSpecies}}
	unitGroup      = Group{Name: "unit", Params: []string{ParamUnit}}
)

var rules = map[Op]Rule{
	OpSubfamilies: {},
	OpGenera: {
		Additive: []Group{subfamilyGroup},
	},
	OpSpecies: {
		Exclusive: []Group{genusGroup, subfamilyGroup},
		Additive:  []Group{unitGroup, {Name: "unit2", Params: []string{ParamUnit2}}},
		Required:  true,
		Message:   "Please supply a 'genus', 'subfamily', 'bentity_id', and/or 'bentity2_id' argument.",
	},
	OpSpeciesSearch: {
		Optional: []string{ParamQuery},
		Uncached: true,
	},
	OpBentities: {},
	OpBentitySearch: {
		Optional: []string{ParamQuery},
		Uncached: true,
	},
	OpSpeciesPoints: {
		Additive: []Group{speciesGroup},
		Optional: []string{ParamUnit, ParamLat, ParamLon, ParamMinLat, ParamMaxLat, ParamMinLon, ParamMaxLon},
		Required: true,
		Message:  "Please supply a 'species' argument.",
	},
	OpCitations: {
		Additive: []Group{
			{Name: "accession", Params: []string{ParamAccession}},
			{Name: "species_unit", Params: []string{ParamSpecies, ParamUnit}},
			{Name: "point", Params: []string{ParamLat, ParamLon}},
		},
		Optional: []string{ParamStatus},
		Required: true,
		Message:  "Please supply at least one these argument-combinations: 'accession_id', ('species' and 'bentity_id'), or ('lat' and 'lon').",
	},
	OpSpeciesMetadata: {
		Additive: []Group{{Name: "taxon_code", Params: []string{ParamTaxonCode}}},
		Optional: []string{ParamUnit},
		Required: true,
		Message:  "Please supply a 'taxon_code' argument.",
	},
	OpSpeciesRange: {
		Additive: []Group{speciesGroup},
		Required: true,
		Message:  "Please supply a 'species' argument.",
	},
	OpSpeciesPerBentity: {
		Exclusive: []Group{genusGroup, subfamilyGroup},
	},
	OpSpeciesInCommon: {
		Additive: []Group{unitGroup},
		Required: true,
		Message:  "Please supply a 'bentity_id' argument.",
	},
	OpAntwebLinks: {
		Exclusive: []Group{
			{Name: "taxon_code", Params: []string{ParamTaxonCode}},
			{Name: "genus_name", Params: []string{ParamGenusName}},
		},
	},
}

// 旧路由名，仍对外可用
var legacyOps = map[string]Op{
	"subfamily-list":             OpSubfamilies,
	"genus-list":                 OpGenera,
	"species-list":               OpSpecies,
	"bentity-list":               OpBentities,
	"species-autocomplete":       OpSpeciesSearch,
	"bentity-autocomplete":       OpBentitySearch,
	"species-bentity-categories": OpSpeciesRange,
	"bentity-species-counts":     OpSpeciesPerBentity,
}

// Lookup：返回操作声明
func Lookup(op Op) (Rule, bool) {
	r, ok := rules[op]
	return r, ok
}

// ParseOp：将路由名（含旧名）解析为操作
func ParseOp(name string) (Op, bool) {
	if _, ok := rules[Op(name)]; ok {
		return Op(name), true
	}
	op, ok := legacyOps[name]
	return op, ok
}

// Ops：全部操作，按名称排序
func Ops() []Op {
	out := make([]Op, 0, len(rules))
	for op := range rules {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LegacyNames：旧路由名到操作的映射副本
func LegacyNames() map[string]Op {
	out := make(map[string]Op, len(legacyOps))
	for k, v := range legacyOps {
		out[k] = v
	}
	return out
}

// params 返回操作涉及的全部参数名
func (r Rule) params() map[string]struct{} {
	out := map[string]struct{}{}
	for _, g := range r.Exclusive {
		for _, p := range g.Params {
			out[p] = struct{}{}
		}
	}
	for _, g := range r.Additive {
		for _, p := range g.Params {
			out[p] = struct{}{}
		}
	}
	for _, p := range r.Optional {
		out[p] = struct{}{}
	}
	return out
}
