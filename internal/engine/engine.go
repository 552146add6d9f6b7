package engine

import (
	"context"
	"fmt"

	"antmaps-api/internal/filter"
	"antmaps-api/internal/metrics"
	"antmaps-api/internal/model"
	"antmaps-api/internal/params"
)

// Record：一条按字段名索引的结果记录；缺失值为 nil
type Record map[string]any

// Result：统一的内部结果表示，两种渲染器共享
type Result struct {
	Op      params.Op
	View    View
	Records []Record
}

// Columns：按格式选择列声明
func (r *Result) Columns(f params.Format) []Column {
	if f == params.FormatTable {
		return r.View.Table
	}
	return r.View.Object
}

type Engine struct {
	backend Backend
}

func New(b Backend) *Engine { return &Engine{backend: b} }

// Backend：底层后端，供健康检查与参数解析取用规范大小写
func (e *Engine) Backend() Backend { return e.backend }

// Run：按操作分派到后端并转换为记录
// 约束：每个操作只访问后端一次；Empty 查询不访问后端
func (e *Engine) Run(ctx context.Context, q filter.Query) (*Result, error) {
	view, ok := views[q.Op]
	if !ok {
		return nil, fmt.Errorf("engine: unsupported operation %q", q.Op)
	}
	if q.Op == params.OpAntwebLinks && q.GenusOnly {
		view = genusView
	}
	res := &Result{Op: q.Op, View: view, Records: []Record{}}
	if q.Empty {
		metrics.EmptyResultsTotal.WithLabelValues(string(q.Op)).Inc()
		return res, nil
	}

	var err error
	switch q.Op {
	case params.OpSubfamilies:
		var rows []model.Subfamily
		if rows, err = e.backend.Subfamilies(ctx); err == nil {
			for _, s := range rows {
				res.add(Record{FieldSubfamily: s.Name})
			}
		}
	case params.OpGenera:
		var rows []model.Genus
		if rows, err = e.backend.Genera(ctx, q.Where); err == nil {
			for _, g := range rows {
				res.add(Record{FieldGenus: g.Name, FieldSubfamily: g.Subfamily})
			}
		}
	case params.OpSpecies, params.OpSpeciesSearch:
		var rows []model.Species
		if rows, err = e.backend.Species(ctx, q.Where); err == nil {
			for _, s := range rows {
				res.add(Record{FieldTaxonCode: s.TaxonCode, FieldDisplay: s.Display(), FieldGenus: s.Genus, FieldSubfamily: s.Subfamily})
			}
		}
	case params.OpBentities, params.OpBentitySearch:
		var rows []model.Bentity
		if rows, err = e.backend.Bentities(ctx, q.Where); err == nil {
			for _, b := range rows {
				res.add(Record{FieldUnitID: b.ID, FieldUnitName: b.Name})
			}
		}
	case params.OpSpeciesPoints:
		var rows []model.Point
		if rows, err = e.backend.Points(ctx, q.Where); err == nil {
			for _, p := range rows {
				r := Record{
					FieldAccession: p.Accession,
					FieldSpecies:   p.Species,
					FieldLat:       p.Lat,
					FieldLon:       p.Lon,
					FieldStatus:    p.Status,
					FieldUnitID:    p.UnitID,
					FieldUnitName:  p.UnitName,
				}
				res.add(r.counts(p.Counts))
			}
		}
	case params.OpCitations, params.OpSpeciesMetadata:
		var rows []model.Citation
		if rows, err = e.backend.Citations(ctx, q.Where); err == nil {
			for _, c := range rows {
				res.add(Record{
					FieldAccession:  c.Accession,
					FieldSpecies:    c.Species,
					FieldUnitID:     c.UnitID,
					FieldUnitName:   c.UnitName,
					FieldLat:        floatOrNil(c.Lat),
					FieldLon:        floatOrNil(c.Lon),
					FieldStatus:     c.Status,
					FieldTypeOfData: c.TypeOfData,
					FieldCitation:   c.Citation,
				})
			}
		}
	case params.OpSpeciesRange:
		var rows []model.RangeEntry
		if rows, err = e.backend.Range(ctx, q.Where); err == nil {
			for _, b := range rows {
				// 零记录单元不出现在分布结果中
				if b.Records < 1 {
					continue
				}
				r := Record{FieldSpecies: b.Species, FieldUnitID: b.UnitID, FieldUnitName: b.UnitName, FieldStatus: b.Category}
				res.add(r.counts(b.Counts))
			}
		}
	case params.OpSpeciesPerBentity:
		var rows []model.UnitCount
		if rows, err = e.backend.Richness(ctx, q.Richness); err == nil {
			for _, u := range rows {
				if u.Species < 1 {
					continue
				}
				r := Record{FieldUnitID: u.UnitID, FieldUnitName: u.UnitName, FieldSpeciesCount: u.Species}
				res.add(r.counts(u.Counts))
			}
		}
	case params.OpSpeciesInCommon:
		var rows []model.UnitCount
		if rows, err = e.backend.Overlap(ctx, q.Overlap); err == nil {
			for _, u := range rows {
				if u.Species < 1 {
					continue
				}
				r := Record{FieldQueryUnit: q.Overlap.Reference, FieldUnitID: u.UnitID, FieldUnitName: u.UnitName, FieldInCommon: u.Species}
				res.add(r.counts(u.Counts))
			}
		}
	case params.OpAntwebLinks:
		var rows []model.TaxonomyEntry
		if rows, err = e.backend.Taxonomy(ctx, q.Where, q.GenusOnly); err == nil {
			for _, t := range rows {
				if q.GenusOnly {
					res.add(Record{FieldKey: t.Genus, FieldSubfamilyName: t.Subfamily})
					continue
				}
				res.add(Record{
					FieldKey:           t.TaxonCode,
					FieldSpeciesName:   t.Species,
					FieldGenusName:     t.Genus,
					FieldSubfamilyName: t.Subfamily,
				})
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("engine %s: %w", q.Op, err)
	}
	if len(res.Records) == 0 {
		metrics.EmptyResultsTotal.WithLabelValues(string(q.Op)).Inc()
	}
	return res, nil
}

func (r *Result) add(rec Record) { r.Records = append(r.Records, rec) }

func (r Record) counts(c model.Counts) Record {
	r[FieldRecordCount] = c.Records
	r[FieldLiterature] = c.Literature
	r[FieldMuseum] = c.Museum
	r[FieldDatabase] = c.Database
	return r
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
