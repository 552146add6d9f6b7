package store

import (
	"fmt"
	"strconv"
	"strings"

	"antmaps-api/internal/autocomplete"
	"antmaps-api/internal/filter"
	"antmaps-api/internal/model"
)

// columns: 逻辑字段到本次查询中具体列的映射
type columns map[filter.Field]string

// builder: 按出现顺序分配 $N 占位符
type builder struct {
	args []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// where: 编译合取谓词；空集合返回空串
// 约束：不使用 ILIKE 与 :: 类型转换，PostgreSQL 与 SQLite 均可执行
func (b *builder) where(set filter.Set, cols columns) (string, error) {
	if len(set) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(set))
	for _, p := range set {
		sql, err := b.predicate(p, cols)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return strings.Join(parts, " AND "), nil
}

func (b *builder) predicate(p filter.Predicate, cols columns) (string, error) {
	names := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		c, ok := cols[f]
		if !ok {
			return "", fmt.Errorf("field %s is not available here", f)
		}
		names[i] = c
	}
	if len(names) == 0 {
		return "", fmt.Errorf("predicate %s has no field", p.Op)
	}
	col := names[0]
	value := func() any {
		if p.Fields[0].Numeric() {
			return p.Num
		}
		return p.Text
	}
	switch p.Op {
	case filter.Eq:
		return col + " = " + b.bind(value()), nil
	case filter.Gte:
		return col + " >= " + b.bind(value()), nil
	case filter.Lte:
		return col + " <= " + b.bind(value()), nil
	case filter.NotNull:
		return col + " IS NOT NULL", nil
	case filter.PrefixAny:
		pat := autocomplete.LikeEscape(strings.ToLower(p.Text)) + "%"
		ors := make([]string, len(names))
		for i, c := range names {
			ors[i] = "LOWER(" + c + ") LIKE " + b.bind(pat) + ` ESCAPE '\'`
		}
		return "(" + strings.Join(ors, " OR ") + ")", nil
	case filter.Contains:
		pat := "%" + autocomplete.LikeEscape(strings.ToLower(p.Text)) + "%"
		return "LOWER(" + col + ") LIKE " + b.bind(pat) + ` ESCAPE '\'`, nil
	case filter.InSubfamily:
		return col + " IN (SELECT genus_name FROM genus WHERE subfamily_name = " + b.bind(p.Text) + ")", nil
	case filter.NativeIn:
		return col + " IN (SELECT valid_species_name FROM map_species_bentity_pair WHERE bentity2_id = " +
			b.bind(p.Text) + " AND category = " + b.bind(model.Native) + ")", nil
	}
	return "", fmt.Errorf("unsupported predicate %s", p.Op)
}

// and: 追加 WHERE 子句
func and(base, cond string) string {
	if cond == "" {
		return base
	}
	if strings.Contains(base, " WHERE ") {
		return base + " AND " + cond
	}
	return base + " WHERE " + cond
}

var (
	genusCols = columns{
		filter.FieldGenus:     "genus_name",
		filter.FieldSubfamily: "subfamily_name",
	}
	taxonCols = columns{
		filter.FieldTaxonCode:   "taxon_code",
		filter.FieldGenus:       "genus_name",
		filter.FieldSpeciesName: "species_name",
		filter.FieldSubfamily:   "subfamily_name",
	}
	unitCols = columns{
		filter.FieldUnitID:   "bentity2_id",
		filter.FieldUnitName: "bentity2_name",
	}
	pointCols = columns{
		filter.FieldTaxonCode: "p.valid_species_name",
		filter.FieldUnitID:    "p.bentity2_id",
		filter.FieldAccession: "p.gabi_acc_number",
		filter.FieldStatus:    "p.status",
		filter.FieldLat:       "p.dec_lat",
		filter.FieldLon:       "p.dec_long",
	}
	recordCols = columns{
		filter.FieldAccession: "r.gabi_acc_number",
		filter.FieldTaxonCode: "r.valid_species_name",
		filter.FieldUnitID:    "r.bentity2_id",
		filter.FieldStatus:    "r.status",
		filter.FieldLat:       "r.dec_lat",
		filter.FieldLon:       "r.dec_long",
	}
	pairCols = columns{
		filter.FieldTaxonCode:   "p.valid_species_name",
		filter.FieldUnitID:      "p.bentity2_id",
		filter.FieldUnitName:    "b.bentity2_name",
		filter.FieldCategory:    "p.category",
		filter.FieldRecordCount: "p.num_records",
		filter.FieldGenus:       "p.genus_name",
		filter.FieldSubfamily:   "p.subfamily_name",
	}
)

const (
	sqlSubfamilies = `SELECT subfamily_name FROM subfamily`

	sqlGenera = `SELECT genus_name, COALESCE(subfamily_name, '') FROM genus`

	sqlSpecies = `SELECT taxon_code, genus_name, species_name, COALESCE(subfamily_name, '') FROM map_taxonomy_list`

	sqlBentities = `SELECT bentity2_id, bentity2_name FROM bentity2`

	sqlPoints = `SELECT p.gabi_acc_number, p.valid_species_name, p.dec_lat, p.dec_long, COALESCE(p.status, ''),
	COALESCE(p.bentity2_id, ''), COALESCE(b.bentity2_name, ''),
	p.num_records, p.literature_count, p.museum_count, p.database_count
FROM map_species_points p
LEFT JOIN bentity2 b ON b.bentity2_id = p.bentity2_id`

	sqlCitations = `SELECT r.gabi_acc_number, r.valid_species_name, COALESCE(r.bentity2_id, ''), COALESCE(b.bentity2_name, ''),
	r.dec_lat, r.dec_long, COALESCE(r.status, ''), COALESCE(r.type_of_data, ''), COALESCE(r.citation, '')
FROM map_record r
LEFT JOIN bentity2 b ON b.bentity2_id = r.bentity2_id`

	sqlRange = `SELECT p.valid_species_name, p.bentity2_id, COALESCE(b.bentity2_name, ''), p.category,
	p.num_records, p.literature_count, p.museum_count, p.database_count
FROM map_species_bentity_pair p
LEFT JOIN bentity2 b ON b.bentity2_id = p.bentity2_id`

	sqlRichnessPrecomputed = `SELECT c.bentity2_id, COALESCE(b.bentity2_name, ''), c.species_count,
	c.num_records, c.literature_count, c.museum_count, c.database_count
FROM map_bentity_count c
LEFT JOIN bentity2 b ON b.bentity2_id = c.bentity2_id
WHERE c.species_count > 0
ORDER BY c.bentity2_id`

	sqlRichness = `SELECT p.bentity2_id, COALESCE(MAX(b.bentity2_name), ''), COUNT(DISTINCT p.valid_species_name),
	COALESCE(SUM(p.num_records), 0), COALESCE(SUM(p.literature_count), 0),
	COALESCE(SUM(p.museum_count), 0), COALESCE(SUM(p.database_count), 0)
FROM map_species_bentity_pair p
LEFT JOIN bentity2 b ON b.bentity2_id = p.bentity2_id`

	// r1 为参照单元的本土物种，r2 为其他单元中同一物种的本土汇总行；计数与分项均取 r2
	sqlOverlap = `SELECT r2.bentity2_id, COALESCE(MAX(b.bentity2_name), ''), COUNT(DISTINCT r2.valid_species_name),
	COALESCE(SUM(r2.num_records), 0), COALESCE(SUM(r2.literature_count), 0),
	COALESCE(SUM(r2.museum_count), 0), COALESCE(SUM(r2.database_count), 0)
FROM map_species_bentity_pair r1
INNER JOIN map_species_bentity_pair r2 ON r1.valid_species_name = r2.valid_species_name
LEFT JOIN bentity2 b ON b.bentity2_id = r2.bentity2_id
WHERE r1.bentity2_id = $1 AND r1.category = $2 AND r2.category = $3
GROUP BY r2.bentity2_id
ORDER BY r2.bentity2_id`

	sqlTaxonomy = `SELECT taxon_code, species_name, genus_name, COALESCE(subfamily_name, '') FROM map_taxonomy_list`

	sqlTaxonomyGenus = `SELECT DISTINCT genus_name, COALESCE(subfamily_name, '') FROM map_taxonomy_list`
)
