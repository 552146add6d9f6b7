// 包 memstore：内存数据集后端
// 从 JSON 夹具加载分类、地理单元与原始记录，并在加载时推导点位、物种×单元汇总与单元丰富度预聚合；
// 供开发模式与测试使用，查询语义与 SQL 后端一致
package memstore

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"antmaps-api/internal/filter"
	"antmaps-api/internal/model"
	"antmaps-api/internal/params"
)

// Fixture：夹具文件格式
type Fixture struct {
	Subfamilies []string        `json:"subfamilies"`
	Genera      []FixtureGenus  `json:"genera" validate:"dive"`
	Species     []FixtureTaxon  `json:"species" validate:"dive"`
	Bentities   []FixtureUnit   `json:"bentities" validate:"dive"`
	Records     []FixtureRecord `json:"records" validate:"dive"`
}

type FixtureGenus struct {
	Name      string `json:"name" validate:"required"`
	Subfamily string `json:"subfamily"`
}

type FixtureTaxon struct {
	TaxonCode string `json:"taxon_code" validate:"required"`
	Genus     string `json:"genus" validate:"required"`
	Name      string `json:"name" validate:"required"`
}

type FixtureUnit struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

type FixtureRecord struct {
	Accession  string   `json:"accession" validate:"required"`
	Species    string   `json:"species" validate:"required"`
	UnitID     string   `json:"unit_id"`
	Lat        *float64 `json:"lat" validate:"omitnil,gte=-90,lte=90"`
	Lon        *float64 `json:"lon" validate:"omitnil,gte=-180,lte=180"`
	Status     string   `json:"status" validate:"required"`
	TypeOfData string   `json:"type_of_data" validate:"required"`
	Citation   string   `json:"citation"`
}

type pairKey struct {
	species, unit, category string
}

type pointKey struct {
	species, unit, status string
	lat, lon              float64
}

// Store：加载后只读，可被并发查询
type Store struct {
	params.DefaultCasing

	subfamilies []model.Subfamily
	genera      []model.Genus
	species     []model.Species
	bentities   []model.Bentity
	records     []model.Citation
	points      []model.Point
	pairs       []model.RangeEntry
	unitCounts  []model.UnitCount

	subfamilyOf map[string]string
	genusOf     map[string]string
	unitName    map[string]string
	native      map[pairKey]struct{}
}

// Open：读取夹具文件
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load：解析并校验夹具，推导汇总表
func Load(r io.Reader) (*Store, error) {
	var fx Fixture
	if err := json.NewDecoder(r).Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return New(fx)
}

// New：由内存中的夹具构建数据集
// 约束：馆藏号唯一；type_of_data 必须可归入文献 / 馆藏标本 / 数据库采集之一
func New(fx Fixture) (*Store, error) {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(fx); err != nil {
		return nil, fmt.Errorf("validate fixture: %w", err)
	}
	s := &Store{
		subfamilyOf: map[string]string{},
		genusOf:     map[string]string{},
		unitName:    map[string]string{},
		native:      map[pairKey]struct{}{},
	}
	for _, name := range fx.Subfamilies {
		s.subfamilies = append(s.subfamilies, model.Subfamily{Name: name})
	}
	for _, g := range fx.Genera {
		s.genera = append(s.genera, model.Genus{Name: g.Name, Subfamily: g.Subfamily})
		s.subfamilyOf[g.Name] = g.Subfamily
	}
	for _, t := range fx.Species {
		s.genusOf[t.TaxonCode] = t.Genus
		s.species = append(s.species, model.Species{TaxonCode: t.TaxonCode, Genus: t.Genus, Name: t.Name, Subfamily: s.subfamilyOf[t.Genus]})
	}
	for _, b := range fx.Bentities {
		s.bentities = append(s.bentities, model.Bentity{ID: b.ID, Name: b.Name})
		s.unitName[b.ID] = b.Name
	}

	seen := map[string]struct{}{}
	pairs := map[pairKey]*model.RangeEntry{}
	points := map[pointKey]*model.Point{}
	for _, rec := range fx.Records {
		if _, dup := seen[rec.Accession]; dup {
			return nil, fmt.Errorf("fixture: duplicate accession %q", rec.Accession)
		}
		seen[rec.Accession] = struct{}{}
		prov := model.ParseProvenance(rec.TypeOfData)
		if prov == model.ProvenanceUnknown {
			return nil, fmt.Errorf("fixture: record %s: unknown type_of_data %q", rec.Accession, rec.TypeOfData)
		}
		c := model.CountOf(prov)
		s.records = append(s.records, model.Citation{
			Accession:  rec.Accession,
			Species:    rec.Species,
			UnitID:     rec.UnitID,
			UnitName:   s.unitName[rec.UnitID],
			Lat:        rec.Lat,
			Lon:        rec.Lon,
			Status:     rec.Status,
			TypeOfData: rec.TypeOfData,
			Citation:   rec.Citation,
		})
		if rec.UnitID != "" {
			k := pairKey{rec.Species, rec.UnitID, rec.Status}
			p, ok := pairs[k]
			if !ok {
				p = &model.RangeEntry{Species: rec.Species, UnitID: rec.UnitID, UnitName: s.unitName[rec.UnitID], Category: rec.Status}
				pairs[k] = p
			}
			p.Add(c)
		}
		if rec.Lat != nil && rec.Lon != nil {
			k := pointKey{rec.Species, rec.UnitID, rec.Status, *rec.Lat, *rec.Lon}
			p, ok := points[k]
			if !ok {
				p = &model.Point{Accession: rec.Accession, Species: rec.Species, Lat: *rec.Lat, Lon: *rec.Lon, Status: rec.Status, UnitID: rec.UnitID, UnitName: s.unitName[rec.UnitID]}
				points[k] = p
			} else if rec.Accession < p.Accession {
				p.Accession = rec.Accession
			}
			p.Add(c)
		}
	}

	units := map[string]*model.UnitCount{}
	for k, p := range pairs {
		s.pairs = append(s.pairs, *p)
		if k.category != model.Native {
			continue
		}
		s.native[pairKey{k.species, k.unit, ""}] = struct{}{}
		u, ok := units[k.unit]
		if !ok {
			u = &model.UnitCount{UnitID: k.unit, UnitName: s.unitName[k.unit]}
			units[k.unit] = u
		}
		u.Species++
		u.Add(p.Counts)
	}
	for _, u := range units {
		s.unitCounts = append(s.unitCounts, *u)
	}
	for _, p := range points {
		s.points = append(s.points, *p)
	}

	sort.Slice(s.subfamilies, func(i, j int) bool { return s.subfamilies[i].Name < s.subfamilies[j].Name })
	sort.Slice(s.genera, func(i, j int) bool { return s.genera[i].Name < s.genera[j].Name })
	sort.Slice(s.species, func(i, j int) bool { return s.species[i].TaxonCode < s.species[j].TaxonCode })
	sort.Slice(s.bentities, func(i, j int) bool {
		if s.bentities[i].Name != s.bentities[j].Name {
			return s.bentities[i].Name < s.bentities[j].Name
		}
		return s.bentities[i].ID < s.bentities[j].ID
	})
	sort.Slice(s.records, func(i, j int) bool { return s.records[i].Accession < s.records[j].Accession })
	sort.Slice(s.points, func(i, j int) bool { return s.points[i].Accession < s.points[j].Accession })
	sort.Slice(s.pairs, func(i, j int) bool {
		a, b := s.pairs[i], s.pairs[j]
		if a.UnitID != b.UnitID {
			return a.UnitID < b.UnitID
		}
		if a.Species != b.Species {
			return a.Species < b.Species
		}
		return a.Category < b.Category
	})
	sort.Slice(s.unitCounts, func(i, j int) bool { return s.unitCounts[i].UnitID < s.unitCounts[j].UnitID })
	return s, nil
}

// SubfamilyOf / HasNative 实现 filter.Catalog
func (s *Store) SubfamilyOf(genus string) string { return s.subfamilyOf[genus] }

func (s *Store) HasNative(taxonCode, unit string) bool {
	_, ok := s.native[pairKey{taxonCode, unit, ""}]
	return ok
}

// Stats：数据集规模，用于启动日志
func (s *Store) Stats() map[string]int {
	return map[string]int{
		"species":   len(s.species),
		"bentities": len(s.bentities),
		"records":   len(s.records),
		"points":    len(s.points),
		"pairs":     len(s.pairs),
	}
}

var _ filter.Catalog = (*Store)(nil)

func trimmed(v string) (string, bool) {
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Snapshot：加载并推导后的全部表，供写入开发数据库
type Snapshot struct {
	Subfamilies []model.Subfamily
	Genera      []model.Genus
	Species     []model.Species
	Bentities   []model.Bentity
	Records     []model.Citation
	Points      []model.Point
	Pairs       []model.RangeEntry
	UnitCounts  []model.UnitCount
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Subfamilies: append([]model.Subfamily{}, s.subfamilies...),
		Genera:      append([]model.Genus{}, s.genera...),
		Species:     append([]model.Species{}, s.species...),
		Bentities:   append([]model.Bentity{}, s.bentities...),
		Records:     append([]model.Citation{}, s.records...),
		Points:      append([]model.Point{}, s.points...),
		Pairs:       append([]model.RangeEntry{}, s.pairs...),
		UnitCounts:  append([]model.UnitCount{}, s.unitCounts...),
	}
}
