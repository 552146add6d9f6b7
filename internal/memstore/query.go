package memstore

import (
	"context"
	"sort"

	"antmaps-api/internal/filter"
	"antmaps-api/internal/model"
)

// row：内存求值的行视图
type row struct {
	text map[filter.Field]string
	num  map[filter.Field]float64
}

func (r row) Text(f filter.Field) (string, bool) {
	v, ok := r.text[f]
	if !ok {
		return "", false
	}
	return trimmed(v)
}

func (r row) Number(f filter.Field) (float64, bool) {
	v, ok := r.num[f]
	return v, ok
}

func speciesRow(sp model.Species) row {
	return row{text: map[filter.Field]string{
		filter.FieldTaxonCode:   sp.TaxonCode,
		filter.FieldGenus:       sp.Genus,
		filter.FieldSpeciesName: sp.Name,
		filter.FieldSubfamily:   sp.Subfamily,
	}}
}

func pairRow(p model.RangeEntry, genus, subfamily string) row {
	return row{
		text: map[filter.Field]string{
			filter.FieldTaxonCode: p.Species,
			filter.FieldUnitID:    p.UnitID,
			filter.FieldUnitName:  p.UnitName,
			filter.FieldCategory:  p.Category,
			filter.FieldGenus:     genus,
			filter.FieldSubfamily: subfamily,
		},
		num: map[filter.Field]float64{filter.FieldRecordCount: float64(p.Records)},
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Subfamilies(context.Context) ([]model.Subfamily, error) {
	return append([]model.Subfamily{}, s.subfamilies...), nil
}

func (s *Store) Genera(_ context.Context, where filter.Set) ([]model.Genus, error) {
	out := []model.Genus{}
	for _, g := range s.genera {
		r := row{text: map[filter.Field]string{filter.FieldGenus: g.Name, filter.FieldSubfamily: g.Subfamily}}
		if where.Match(r, s) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Store) Species(_ context.Context, where filter.Set) ([]model.Species, error) {
	out := []model.Species{}
	for _, sp := range s.species {
		if where.Match(speciesRow(sp), s) {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (s *Store) Bentities(_ context.Context, where filter.Set) ([]model.Bentity, error) {
	out := []model.Bentity{}
	for _, b := range s.bentities {
		r := row{text: map[filter.Field]string{filter.FieldUnitID: b.ID, filter.FieldUnitName: b.Name}}
		if where.Match(r, s) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) Points(_ context.Context, where filter.Set) ([]model.Point, error) {
	out := []model.Point{}
	for _, p := range s.points {
		r := row{
			text: map[filter.Field]string{
				filter.FieldTaxonCode: p.Species,
				filter.FieldUnitID:    p.UnitID,
				filter.FieldStatus:    p.Status,
				filter.FieldAccession: p.Accession,
			},
			num: map[filter.Field]float64{filter.FieldLat: p.Lat, filter.FieldLon: p.Lon},
		}
		if where.Match(r, s) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) Citations(_ context.Context, where filter.Set) ([]model.Citation, error) {
	out := []model.Citation{}
	for _, c := range s.records {
		r := row{
			text: map[filter.Field]string{
				filter.FieldAccession: c.Accession,
				filter.FieldTaxonCode: c.Species,
				filter.FieldUnitID:    c.UnitID,
				filter.FieldStatus:    c.Status,
			},
			num: map[filter.Field]float64{},
		}
		if c.Lat != nil {
			r.num[filter.FieldLat] = *c.Lat
		}
		if c.Lon != nil {
			r.num[filter.FieldLon] = *c.Lon
		}
		if where.Match(r, s) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) Range(_ context.Context, where filter.Set) ([]model.RangeEntry, error) {
	out := []model.RangeEntry{}
	for _, p := range s.pairs {
		if where.Match(s.pairRow(p), s) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Richness：预聚合模式直接返回单元计数；否则按单元重新计算去重物种数与分项和
func (s *Store) Richness(_ context.Context, r filter.Richness) ([]model.UnitCount, error) {
	if r.Precomputed {
		return append([]model.UnitCount{}, s.unitCounts...), nil
	}
	return s.group(func(p model.RangeEntry) bool { return r.Where.Match(s.pairRow(p), s) }), nil
}

// Overlap：参照单元的本土物种集合与其他单元的本土汇总行按物种相交，按其他单元分组
func (s *Store) Overlap(_ context.Context, o filter.Overlap) ([]model.UnitCount, error) {
	ref := map[string]struct{}{}
	for _, p := range s.pairs {
		if p.UnitID == o.Reference && p.Category == o.Category {
			ref[p.Species] = struct{}{}
		}
	}
	return s.group(func(p model.RangeEntry) bool {
		if p.Category != o.Category {
			return false
		}
		_, ok := ref[p.Species]
		return ok
	}), nil
}

func (s *Store) Taxonomy(_ context.Context, where filter.Set, genusOnly bool) ([]model.TaxonomyEntry, error) {
	out := []model.TaxonomyEntry{}
	seen := map[string]struct{}{}
	for _, sp := range s.species {
		if !where.Match(speciesRow(sp), s) {
			continue
		}
		if genusOnly {
			if _, dup := seen[sp.Genus]; dup {
				continue
			}
			seen[sp.Genus] = struct{}{}
			out = append(out, model.TaxonomyEntry{Genus: sp.Genus, Subfamily: sp.Subfamily})
			continue
		}
		out = append(out, model.TaxonomyEntry{TaxonCode: sp.TaxonCode, Species: sp.Name, Genus: sp.Genus, Subfamily: sp.Subfamily})
	}
	if genusOnly {
		sort.Slice(out, func(i, j int) bool { return out[i].Genus < out[j].Genus })
	}
	return out, nil
}

// group：对满足条件的汇总行按单元聚合；物种数为去重计数
func (s *Store) group(keep func(model.RangeEntry) bool) []model.UnitCount {
	units := map[string]*model.UnitCount{}
	distinct := map[string]map[string]struct{}{}
	for _, p := range s.pairs {
		if !keep(p) {
			continue
		}
		u, ok := units[p.UnitID]
		if !ok {
			u = &model.UnitCount{UnitID: p.UnitID, UnitName: p.UnitName}
			units[p.UnitID] = u
			distinct[p.UnitID] = map[string]struct{}{}
		}
		distinct[p.UnitID][p.Species] = struct{}{}
		u.Add(p.Counts)
	}
	out := make([]model.UnitCount, 0, len(units))
	for id, u := range units {
		u.Species = int64(len(distinct[id]))
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnitID < out[j].UnitID })
	return out
}

func (s *Store) pairRow(p model.RangeEntry) row {
	genus := s.genusOf[p.Species]
	return pairRow(p, genus, s.subfamilyOf[genus])
}
