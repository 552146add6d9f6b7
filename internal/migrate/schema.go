// 包 migrate：只读数据模式的建表语句与开发数据写入
// 正式环境的表由数据整理流程维护；此处仅用于开发库与测试库
package migrate

import (
	"context"
	"database/sql"

	"antmaps-api/internal/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS subfamily (
		subfamily_name TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS genus (
		genus_name TEXT PRIMARY KEY,
		subfamily_name TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_genus_subfamily ON genus(subfamily_name)`,
	`CREATE TABLE IF NOT EXISTS map_taxonomy_list (
		taxon_code TEXT PRIMARY KEY,
		genus_name TEXT NOT NULL,
		species_name TEXT NOT NULL,
		subfamily_name TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_taxonomy_genus ON map_taxonomy_list(genus_name)`,
	`CREATE TABLE IF NOT EXISTS bentity2 (
		bentity2_id TEXT PRIMARY KEY,
		bentity2_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS map_record (
		gabi_acc_number TEXT PRIMARY KEY,
		valid_species_name TEXT NOT NULL,
		bentity2_id TEXT,
		dec_lat DOUBLE PRECISION,
		dec_long DOUBLE PRECISION,
		status TEXT,
		type_of_data TEXT,
		citation TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_record_species_unit ON map_record(valid_species_name, bentity2_id)`,
	`CREATE INDEX IF NOT EXISTS idx_record_point ON map_record(dec_lat, dec_long)`,
	`CREATE TABLE IF NOT EXISTS map_species_points (
		gabi_acc_number TEXT PRIMARY KEY,
		valid_species_name TEXT NOT NULL,
		bentity2_id TEXT,
		dec_lat DOUBLE PRECISION,
		dec_long DOUBLE PRECISION,
		status TEXT,
		num_records INTEGER NOT NULL DEFAULT 0,
		literature_count INTEGER NOT NULL DEFAULT 0,
		museum_count INTEGER NOT NULL DEFAULT 0,
		database_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_points_species ON map_species_points(valid_species_name)`,
	`CREATE TABLE IF NOT EXISTS map_species_bentity_pair (
		valid_species_name TEXT NOT NULL,
		bentity2_id TEXT NOT NULL,
		category TEXT NOT NULL,
		num_records INTEGER NOT NULL DEFAULT 0,
		literature_count INTEGER NOT NULL DEFAULT 0,
		museum_count INTEGER NOT NULL DEFAULT 0,
		database_count INTEGER NOT NULL DEFAULT 0,
		genus_name TEXT,
		subfamily_name TEXT,
		PRIMARY KEY (valid_species_name, bentity2_id, category)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pair_unit ON map_species_bentity_pair(bentity2_id, category)`,
	`CREATE INDEX IF NOT EXISTS idx_pair_genus ON map_species_bentity_pair(genus_name)`,
	`CREATE TABLE IF NOT EXISTS map_bentity_count (
		bentity2_id TEXT PRIMARY KEY,
		species_count INTEGER NOT NULL DEFAULT 0,
		num_records INTEGER NOT NULL DEFAULT 0,
		literature_count INTEGER NOT NULL DEFAULT 0,
		museum_count INTEGER NOT NULL DEFAULT 0,
		database_count INTEGER NOT NULL DEFAULT 0
	)`,
}

// 背景：开发环境首次运行时创建只读模式，保障查询可执行
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；语句同时兼容 PostgreSQL 与 SQLite
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range schema {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done", "statements", len(schema))
	return nil
}
