package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"antmaps-api/internal/logger"
	"antmaps-api/internal/memstore"
	"antmaps-api/internal/model"
)

var seedTables = []string{
	"map_bentity_count",
	"map_species_bentity_pair",
	"map_species_points",
	"map_record",
	"bentity2",
	"map_taxonomy_list",
	"genus",
	"subfamily",
}

// Seed：以夹具推导的快照覆盖开发库中的数据；单事务完成
func Seed(ctx context.Context, db *sql.DB, snap memstore.Snapshot) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, t := range seedTables {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}

	taxa := map[string]model.Species{}
	for _, s := range snap.Species {
		taxa[s.TaxonCode] = s
	}

	if err = insert(ctx, tx, "subfamily", `INSERT INTO subfamily(subfamily_name) VALUES($1)`, len(snap.Subfamilies), func(i int) []any {
		return []any{snap.Subfamilies[i].Name}
	}); err != nil {
		return err
	}
	if err = insert(ctx, tx, "genus", `INSERT INTO genus(genus_name, subfamily_name) VALUES($1, $2)`, len(snap.Genera), func(i int) []any {
		g := snap.Genera[i]
		return []any{g.Name, nullable(g.Subfamily)}
	}); err != nil {
		return err
	}
	if err = insert(ctx, tx, "map_taxonomy_list", `INSERT INTO map_taxonomy_list(taxon_code, genus_name, species_name, subfamily_name) VALUES($1, $2, $3, $4)`, len(snap.Species), func(i int) []any {
		s := snap.Species[i]
		return []any{s.TaxonCode, s.Genus, s.Name, nullable(s.Subfamily)}
	}); err != nil {
		return err
	}
	if err = insert(ctx, tx, "bentity2", `INSERT INTO bentity2(bentity2_id, bentity2_name) VALUES($1, $2)`, len(snap.Bentities), func(i int) []any {
		b := snap.Bentities[i]
		return []any{b.ID, b.Name}
	}); err != nil {
		return err
	}
	if err = insert(ctx, tx, "map_record", `INSERT INTO map_record(gabi_acc_number, valid_species_name, bentity2_id, dec_lat, dec_long, status, type_of_data, citation) VALUES($1, $2, $3, $4, $5, $6, $7, $8)`, len(snap.Records), func(i int) []any {
		r := snap.Records[i]
		return []any{r.Accession, r.Species, nullable(r.UnitID), floatPtr(r.Lat), floatPtr(r.Lon), r.Status, r.TypeOfData, r.Citation}
	}); err != nil {
		return err
	}
	if err = insert(ctx, tx, "map_species_points", `INSERT INTO map_species_points(gabi_acc_number, valid_species_name, bentity2_id, dec_lat, dec_long, status, num_records, literature_count, museum_count, database_count) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, len(snap.Points), func(i int) []any {
		p := snap.Points[i]
		return []any{p.Accession, p.Species, nullable(p.UnitID), p.Lat, p.Lon, p.Status, p.Records, p.Literature, p.Museum, p.Database}
	}); err != nil {
		return err
	}
	if err = insert(ctx, tx, "map_species_bentity_pair", `INSERT INTO map_species_bentity_pair(valid_species_name, bentity2_id, category, num_records, literature_count, museum_count, database_count, genus_name, subfamily_name) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`, len(snap.Pairs), func(i int) []any {
		p := snap.Pairs[i]
		sp := taxa[p.Species]
		return []any{p.Species, p.UnitID, p.Category, p.Records, p.Literature, p.Museum, p.Database, nullable(sp.Genus), nullable(sp.Subfamily)}
	}); err != nil {
		return err
	}
	if err = insert(ctx, tx, "map_bentity_count", `INSERT INTO map_bentity_count(bentity2_id, species_count, num_records, literature_count, museum_count, database_count) VALUES($1, $2, $3, $4, $5, $6)`, len(snap.UnitCounts), func(i int) []any {
		u := snap.UnitCounts[i]
		return []any{u.UnitID, u.Species, u.Records, u.Literature, u.Museum, u.Database}
	}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	logger.L().Info("seed_done", "species", len(snap.Species), "records", len(snap.Records), "pairs", len(snap.Pairs))
	return nil
}

func insert(ctx context.Context, tx *sql.Tx, table, stmt string, n int, args func(int) []any) error {
	ps, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", table, err)
	}
	defer ps.Close()
	for i := 0; i < n; i++ {
		if _, err := ps.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	logger.L().Debug("seed_table", "table", table, "rows", n)
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func floatPtr(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
