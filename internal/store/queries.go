package store

import (
	"context"
	"database/sql"

	"antmaps-api/internal/filter"
	"antmaps-api/internal/model"
)

// list: 编译过滤条件并追加排序后执行
func (s *Store) list(ctx context.Context, name, base string, cols columns, where filter.Set, tail string) (*sql.Rows, error) {
	var b builder
	cond, err := b.where(where, cols)
	if err != nil {
		return nil, err
	}
	q := and(base, cond)
	if tail != "" {
		q += " " + tail
	}
	return s.query(ctx, name, q, b.args)
}

func (s *Store) Subfamilies(ctx context.Context) ([]model.Subfamily, error) {
	rows, err := s.query(ctx, "subfamilies", sqlSubfamilies+" ORDER BY subfamily_name", nil)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r *sql.Rows) (model.Subfamily, error) {
		var v model.Subfamily
		err := r.Scan(&v.Name)
		return v, err
	})
}

func (s *Store) Genera(ctx context.Context, where filter.Set) ([]model.Genus, error) {
	rows, err := s.list(ctx, "genera", sqlGenera, genusCols, where, "ORDER BY genus_name")
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r *sql.Rows) (model.Genus, error) {
		var v model.Genus
		err := r.Scan(&v.Name, &v.Subfamily)
		return v, err
	})
}

func (s *Store) Species(ctx context.Context, where filter.Set) ([]model.Species, error) {
	rows, err := s.list(ctx, "species", sqlSpecies, taxonCols, where, "ORDER BY taxon_code")
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r *sql.Rows) (model.Species, error) {
		var v model.Species
		err := r.Scan(&v.TaxonCode, &v.Genus, &v.Name, &v.Subfamily)
		return v, err
	})
}

func (s *Store) Bentities(ctx context.Context, where filter.Set) ([]model.Bentity, error) {
	rows, err := s.list(ctx, "bentities", sqlBentities, unitCols, where, "ORDER BY bentity2_name, bentity2_id")
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r *sql.Rows) (model.Bentity, error) {
		var v model.Bentity
		err := r.Scan(&v.ID, &v.Name)
		return v, err
	})
}

func (s *Store) Points(ctx context.Context, where filter.Set) ([]model.Point, error) {
	rows, err := s.list(ctx, "points", sqlPoints, pointCols, where, "ORDER BY p.gabi_acc_number")
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r *sql.Rows) (model.Point, error) {
		var v model.Point
		err := r.Scan(&v.Accession, &v.Species, &v.Lat, &v.Lon, &v.Status, &v.UnitID, &v.UnitName,
			&v.Records, &v.Literature, &v.Museum, &v.Database)
		return v, err
	})
}

func (s *Store) Citations(ctx context.Context, where filter.Set) ([]model.Citation, error) {
	rows, err := s.list(ctx, "citations", sqlCitations, recordCols, where, "ORDER BY r.gabi_acc_number")
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r *sql.Rows) (model.Citation, error) {
		var v model.Citation
		var lat, lon sql.NullFloat64
		if err := r.Scan(&v.Accession, &v.Species, &v.UnitID, &v.UnitName, &lat, &lon, &v.Status, &v.TypeOfData, &v.Citation); err != nil {
			return v, err
		}
		if lat.Valid {
			v.Lat = &lat.Float64
		}
		if lon.Valid {
			v.Lon = &lon.Float64
		}
		return v, nil
	})
}

func (s *Store) Range(ctx context.Context, where filter.Set) ([]model.RangeEntry, error) {
	rows, err := s.list(ctx, "range", sqlRange, pairCols, where, "ORDER BY p.bentity2_id")
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r *sql.Rows) (model.RangeEntry, error) {
		var v model.RangeEntry
		err := r.Scan(&v.Species, &v.UnitID, &v.UnitName, &v.Category, &v.Records, &v.Literature, &v.Museum, &v.Database)
		return v, err
	})
}

// Richness: 无分类过滤时读取预聚合表，否则在物种×单元汇总上重新计算
func (s *Store) Richness(ctx context.Context, q filter.Richness) ([]model.UnitCount, error) {
	var rows *sql.Rows
	var err error
	if q.Precomputed {
		rows, err = s.query(ctx, "richness_precomputed", sqlRichnessPrecomputed, nil)
	} else {
		rows, err = s.list(ctx, "richness", sqlRichness, pairCols, q.Where, "GROUP BY p.bentity2_id ORDER BY p.bentity2_id")
	}
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUnitCount)
}

func (s *Store) Overlap(ctx context.Context, o filter.Overlap) ([]model.UnitCount, error) {
	rows, err := s.query(ctx, "overlap", sqlOverlap, []any{o.Reference, o.Category, o.Category})
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUnitCount)
}

func (s *Store) Taxonomy(ctx context.Context, where filter.Set, genusOnly bool) ([]model.TaxonomyEntry, error) {
	if genusOnly {
		rows, err := s.list(ctx, "taxonomy_genus", sqlTaxonomyGenus, taxonCols, where, "ORDER BY genus_name")
		if err != nil {
			return nil, err
		}
		return collect(rows, func(r *sql.Rows) (model.TaxonomyEntry, error) {
			var v model.TaxonomyEntry
			err := r.Scan(&v.Genus, &v.Subfamily)
			return v, err
		})
	}
	rows, err := s.list(ctx, "taxonomy", sqlTaxonomy, taxonCols, where, "ORDER BY taxon_code")
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r *sql.Rows) (model.TaxonomyEntry, error) {
		var v model.TaxonomyEntry
		err := r.Scan(&v.TaxonCode, &v.Species, &v.Genus, &v.Subfamily)
		return v, err
	})
}

func scanUnitCount(r *sql.Rows) (model.UnitCount, error) {
	var v model.UnitCount
	err := r.Scan(&v.UnitID, &v.UnitName, &v.Species, &v.Records, &v.Literature, &v.Museum, &v.Database)
	return v, err
}
