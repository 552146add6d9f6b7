package filter

import (
	"fmt"

	"antmaps-api/internal/autocomplete"
	"antmaps-api/internal/model"
	"antmaps-api/internal/params"
)

// Compose：将解析后的上下文翻译为查询
// 约束：丰富度、分布与共有物种的谓词恒带本土分类；文献查询仅在提供 status 时按状态过滤
func Compose(ctx *params.Context) (Query, error) {
	if ctx == nil {
		return Query{}, fmt.Errorf("compose: nil context")
	}
	q := Query{Op: ctx.Op, Format: ctx.Format}
	switch ctx.Op {
	case params.OpSubfamilies, params.OpBentities:
	case params.OpGenera:
		if ctx.Has(params.ParamSubfamily) {
			q.Where = append(q.Where, EqText(FieldSubfamily, ctx.Get(params.ParamSubfamily)))
		}
	case params.OpSpecies:
		q.Where = taxon(ctx, q.Where)
		// 两个地理单元各自求本土物种集合后取交集
		for _, p := range []string{params.ParamUnit, params.ParamUnit2} {
			if ctx.Has(p) {
				q.Where = append(q.Where, NativeInUnit(ctx.Get(p)))
			}
		}
	case params.OpSpeciesSearch:
		toks := autocomplete.Tokenize(ctx.Get(params.ParamQuery))
		if len(toks) == 0 {
			q.Empty = true
			break
		}
		for _, t := range toks {
			q.Where = append(q.Where, Prefix(t, FieldSpeciesName, FieldGenus))
		}
	case params.OpBentitySearch:
		toks := autocomplete.Tokenize(ctx.Get(params.ParamQuery))
		if len(toks) == 0 {
			q.Empty = true
			break
		}
		for _, t := range toks {
			q.Where = append(q.Where, Substring(FieldUnitName, t))
		}
	case params.OpSpeciesPoints:
		q.Where = append(q.Where, EqText(FieldTaxonCode, ctx.Get(params.ParamSpecies)))
		if ctx.Has(params.ParamUnit) {
			q.Where = append(q.Where, EqText(FieldUnitID, ctx.Get(params.ParamUnit)))
		}
		q.Where = append(q.Where, Present(FieldLat), Present(FieldLon))
		q.Where = bounds(ctx, q.Where)
	case params.OpCitations:
		if ctx.Applied("accession") {
			q.Where = append(q.Where, EqText(FieldAccession, ctx.Get(params.ParamAccession)))
		}
		if ctx.Applied("species_unit") {
			q.Where = append(q.Where,
				EqText(FieldTaxonCode, ctx.Get(params.ParamSpecies)),
				EqText(FieldUnitID, ctx.Get(params.ParamUnit)))
		}
		if ctx.Applied("point") {
			lat, _ := ctx.Float(params.ParamLat)
			lon, _ := ctx.Float(params.ParamLon)
			q.Where = append(q.Where, EqNum(FieldLat, lat), EqNum(FieldLon, lon))
		}
		if ctx.Has(params.ParamStatus) {
			q.Where = append(q.Where, EqText(FieldStatus, ctx.Get(params.ParamStatus)))
		}
	case params.OpSpeciesMetadata:
		q.Where = append(q.Where, EqText(FieldTaxonCode, ctx.Get(params.ParamTaxonCode)))
		if ctx.Has(params.ParamUnit) {
			q.Where = append(q.Where, EqText(FieldUnitID, ctx.Get(params.ParamUnit)))
		}
	case params.OpSpeciesRange:
		q.Where = append(q.Where,
			EqText(FieldTaxonCode, ctx.Get(params.ParamSpecies)),
			EqText(FieldCategory, model.Native),
			AtLeast(FieldRecordCount, 1))
	case params.OpSpeciesPerBentity:
		where := taxon(ctx, nil)
		if len(where) == 0 {
			q.Richness = Richness{Precomputed: true}
			break
		}
		q.Richness = Richness{Where: append(Set{EqText(FieldCategory, model.Native)}, where...)}
	case params.OpSpeciesInCommon:
		q.Overlap = Overlap{Reference: ctx.Get(params.ParamUnit), Category: model.Native}
	case params.OpAntwebLinks:
		switch {
		case ctx.Has(params.ParamTaxonCode):
			q.Where = append(q.Where, EqText(FieldTaxonCode, ctx.Get(params.ParamTaxonCode)))
		case ctx.Has(params.ParamGenusName):
			q.Where = append(q.Where, EqText(FieldGenus, ctx.Get(params.ParamGenusName)))
			q.GenusOnly = true
		default:
			q.Empty = true
		}
	default:
		return Query{}, fmt.Errorf("compose: unsupported operation %q", ctx.Op)
	}
	return q, nil
}

// taxon：属为直接等值过滤；亚科经属归属层级过滤。解析阶段已保证二者至多一个生效
func taxon(ctx *params.Context, where Set) Set {
	switch {
	case ctx.Has(params.ParamGenus):
		where = append(where, EqText(FieldGenus, ctx.Get(params.ParamGenus)))
	case ctx.Has(params.ParamSubfamily):
		where = append(where, GenusInSubfamily(ctx.Get(params.ParamSubfamily)))
	}
	return where
}

func bounds(ctx *params.Context, where Set) Set {
	if v, ok := ctx.Float(params.ParamLat); ok {
		where = append(where, EqNum(FieldLat, v))
	}
	if v, ok := ctx.Float(params.ParamLon); ok {
		where = append(where, EqNum(FieldLon, v))
	}
	if v, ok := ctx.Float(params.ParamMinLat); ok {
		where = append(where, AtLeast(FieldLat, v))
	}
	if v, ok := ctx.Float(params.ParamMaxLat); ok {
		where = append(where, AtMost(FieldLat, v))
	}
	if v, ok := ctx.Float(params.ParamMinLon); ok {
		where = append(where, AtLeast(FieldLon, v))
	}
	if v, ok := ctx.Float(params.ParamMaxLon); ok {
		where = append(where, AtMost(FieldLon, v))
	}
	return where
}
