// 包 engine：聚合引擎
// 通过类型化后端接口执行查询（每种结果形状一个具名操作），并将行转换为有序的字段记录与声明的视图
package engine

import (
	"context"

	"antmaps-api/internal/filter"
	"antmaps-api/internal/model"
	"antmaps-api/internal/params"
)

// Backend：只读数据模式之上的具名参数化查询
// 约束：不存在的物种或地理单元返回空集合而非错误；聚合均为单次查询
type Backend interface {
	params.Casing

	Subfamilies(ctx context.Context) ([]model.Subfamily, error)
	Genera(ctx context.Context, where filter.Set) ([]model.Genus, error)
	Species(ctx context.Context, where filter.Set) ([]model.Species, error)
	Bentities(ctx context.Context, where filter.Set) ([]model.Bentity, error)
	Points(ctx context.Context, where filter.Set) ([]model.Point, error)
	Citations(ctx context.Context, where filter.Set) ([]model.Citation, error)
	Range(ctx context.Context, where filter.Set) ([]model.RangeEntry, error)
	Richness(ctx context.Context, r filter.Richness) ([]model.UnitCount, error)
	Overlap(ctx context.Context, o filter.Overlap) ([]model.UnitCount, error)
	// Taxonomy：genusOnly 时按属去重，仅填充 Genus/Subfamily
	Taxonomy(ctx context.Context, where filter.Set, genusOnly bool) ([]model.TaxonomyEntry, error)

	Ping(ctx context.Context) error
}
