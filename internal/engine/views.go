package engine

import "antmaps-api/internal/params"

// 记录字段名
const (
	FieldKey           = "key"
	FieldDisplay       = "display"
	FieldSubfamily     = "subfamily"
	FieldGenus         = "genus"
	FieldSpecies       = "species"
	FieldTaxonCode     = "taxon_code"
	FieldUnitID        = "unit_id"
	FieldUnitName      = "unit_name"
	FieldAccession     = "accession_id"
	FieldLat           = "lat"
	FieldLon           = "lon"
	FieldStatus        = "status"
	FieldTypeOfData    = "type_of_data"
	FieldCitation      = "citation"
	FieldRecordCount   = "record_count"
	FieldLiterature    = "literature_count"
	FieldMuseum        = "museum_count"
	FieldDatabase      = "database_count"
	FieldSpeciesCount  = "species_count"
	FieldInCommon      = "species_in_common"
	FieldQueryUnit     = "query_unit_id"
	FieldSpeciesName   = "speciesName"
	FieldGenusName     = "genusName"
	FieldSubfamilyName = "subfamilyName"
)

// Column：视图中的一列；Name 为输出名，Field 为记录字段
type Column struct {
	Name  string
	Field string
}

func same(fields ...string) []Column {
	out := make([]Column, len(fields))
	for i, f := range fields {
		out[i] = Column{Name: f, Field: f}
	}
	return out
}

// View：操作的结构化键与两种格式的列声明
type View struct {
	Key    string
	Object []Column
	Table  []Column
}

var counts = []string{FieldRecordCount, FieldLiterature, FieldMuseum, FieldDatabase}

func withCounts(fields ...string) []string {
	return append(append([]string{}, fields...), counts...)
}

var (
	pointFields    = withCounts(FieldAccession, FieldSpecies, FieldLat, FieldLon, FieldStatus, FieldUnitID, FieldUnitName)
	citationFields = []string{FieldAccession, FieldSpecies, FieldUnitID, FieldUnitName, FieldLat, FieldLon, FieldStatus, FieldTypeOfData, FieldCitation}
	richnessFields = withCounts(FieldUnitID, FieldUnitName, FieldSpeciesCount)
	overlapFields  = withCounts(FieldUnitID, FieldUnitName, FieldInCommon)
	taxonomyFields = []string{FieldKey, FieldSpeciesName, FieldGenusName, FieldSubfamilyName}
	genusFields    = []string{FieldKey, FieldSubfamilyName}
)

var views = map[params.Op]View{
	params.OpSubfamilies: {
		Key:    "subfamilies",
		Object: []Column{{FieldKey, FieldSubfamily}, {FieldDisplay, FieldSubfamily}},
		Table:  same(FieldSubfamily),
	},
	params.OpGenera: {
		Key:    "genera",
		Object: []Column{{FieldKey, FieldGenus}, {FieldDisplay, FieldGenus}},
		Table:  same(FieldGenus),
	},
	params.OpSpecies: {
		Key:    "species",
		Object: []Column{{FieldKey, FieldTaxonCode}, {FieldDisplay, FieldDisplay}},
		Table:  []Column{{FieldSpecies, FieldTaxonCode}},
	},
	params.OpSpeciesSearch: {
		Key:    "species",
		Object: []Column{{"label", FieldDisplay}, {"value", FieldTaxonCode}},
		Table:  []Column{{FieldSpecies, FieldTaxonCode}},
	},
	params.OpBentities: {
		Key:    "bentities",
		Object: []Column{{FieldKey, FieldUnitID}, {FieldDisplay, FieldUnitName}},
		Table:  []Column{{"bentity_id", FieldUnitID}, {"bentity_name", FieldUnitName}},
	},
	params.OpBentitySearch: {
		Key:    "bentities",
		Object: []Column{{"bentity_id", FieldUnitID}, {"bentity_name", FieldUnitName}},
		Table:  []Column{{"bentity_id", FieldUnitID}, {"bentity_name", FieldUnitName}},
	},
	params.OpSpeciesPoints: {
		Key:    "records",
		Object: same(pointFields...),
		Table:  same(pointFields...),
	},
	params.OpCitations: {
		Key:    "records",
		Object: same(citationFields...),
		Table:  same(citationFields...),
	},
	params.OpSpeciesMetadata: {
		Key:    "records",
		Object: same(FieldAccession, FieldTypeOfData, FieldCitation),
		Table:  same(FieldAccession, FieldTypeOfData, FieldCitation),
	},
	params.OpSpeciesRange: {
		Key:    "bentities",
		Object: same(withCounts(FieldUnitID, FieldStatus)...),
		Table:  same(withCounts(FieldSpecies, FieldUnitID, FieldUnitName, FieldStatus)...),
	},
	params.OpSpeciesPerBentity: {
		Key:    "bentities",
		Object: same(richnessFields...),
		Table:  same(richnessFields...),
	},
	params.OpSpeciesInCommon: {
		Key:    "bentities",
		Object: same(overlapFields...),
		Table:  same(append([]string{FieldQueryUnit}, overlapFields...)...),
	},
	params.OpAntwebLinks: {
		Key:    "taxonomy",
		Object: same(taxonomyFields...),
		Table:  same(taxonomyFields...),
	},
}

// genusView：antweb-links 按属查询时的视图
var genusView = View{Key: "taxonomy", Object: same(genusFields...), Table: same(genusFields...)}

// ViewOf：操作声明的视图；未知操作返回 false
func ViewOf(op params.Op) (View, bool) {
	v, ok := views[op]
	return v, ok
}

// SafeDefault：错误时结构化输出中保留的空列表键
func SafeDefault(op params.Op) string {
	if v, ok := views[op]; ok {
		return v.Key
	}
	return "records"
}
