// 包 model：只读数据模式的行结构（分类层级、地理单元、记录与预聚合）
package model

import "strings"

// Native 为本土分类代码；只有该代码参与物种丰富度与重叠计算
const Native = "N"

type Subfamily struct {
	Name string
}

type Genus struct {
	Name      string
	Subfamily string
}

// Species：TaxonCode 是唯一的跨接口标识；Genus/Name 仅用于展示
type Species struct {
	TaxonCode string
	Genus     string
	Name      string
	Subfamily string
}

// Display：展示名，属名 + 种加词
func (s Species) Display() string {
	return s.Genus + " " + s.Name
}

type Bentity struct {
	ID   string
	Name string
}

// Counts：记录数及三类来源分项（文献 / 馆藏标本 / 数据库采集）
type Counts struct {
	Records    int64
	Literature int64
	Museum     int64
	Database   int64
}

// Add：累加分项，用于内存聚合
func (c *Counts) Add(o Counts) {
	c.Records += o.Records
	c.Literature += o.Literature
	c.Museum += o.Museum
	c.Database += o.Database
}

// Point：物种在地图上的一个点位（同点位记录已在视图中汇总）
type Point struct {
	Accession string
	Species   string
	Lat       float64
	Lon       float64
	Status    string
	UnitID    string
	UnitName  string
	Counts
}

// Citation：一条记录的 物种-地点-文献 组合；坐标与地理单元可能为空
type Citation struct {
	Accession  string
	Species    string
	UnitID     string
	UnitName   string
	Lat        *float64
	Lon        *float64
	Status     string
	TypeOfData string
	Citation   string
}

// RangeEntry：物种分布中的一个地理单元
type RangeEntry struct {
	Species  string
	UnitID   string
	UnitName string
	Category string
	Counts
}

// UnitCount：按地理单元聚合的物种数（丰富度或共有物种数）
type UnitCount struct {
	UnitID   string
	UnitName string
	Species  int64
	Counts
}

// TaxonomyEntry：外部交叉引用所需的分类信息；按属查询时 Species/TaxonCode 为空
type TaxonomyEntry struct {
	TaxonCode string
	Species   string
	Genus     string
	Subfamily string
}

// Provenance：记录来源类型
type Provenance int

const (
	ProvenanceUnknown Provenance = iota
	ProvenanceLiterature
	ProvenanceMuseum
	ProvenanceDatabase
)

// ParseProvenance：按 type_of_data 文本前缀归类，大小写不敏感
func ParseProvenance(s string) Provenance {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "lit"):
		return ProvenanceLiterature
	case strings.HasPrefix(s, "mus"):
		return ProvenanceMuseum
	case strings.HasPrefix(s, "dat"):
		return ProvenanceDatabase
	}
	return ProvenanceUnknown
}

// CountOf：单条记录对应的计数
func CountOf(p Provenance) Counts {
	c := Counts{Records: 1}
	switch p {
	case ProvenanceLiterature:
		c.Literature = 1
	case ProvenanceMuseum:
		c.Museum = 1
	case ProvenanceDatabase:
		c.Database = 1
	}
	return c
}
