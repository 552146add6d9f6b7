package engine_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antmaps-api/internal/engine"
	"antmaps-api/internal/filter"
	"antmaps-api/internal/memstore"
	"antmaps-api/internal/params"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	s, err := memstore.Open("../../data/fixture/antmaps.json")
	require.NoError(t, err)
	return engine.New(s)
}

func run(t *testing.T, e *engine.Engine, op params.Op, kv ...string) *engine.Result {
	t.Helper()
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Add(kv[i], kv[i+1])
	}
	ctx, err := params.Resolve(op, v, e.Backend())
	require.NoError(t, err)
	q, err := filter.Compose(ctx)
	require.NoError(t, err)
	res, err := e.Run(context.Background(), q)
	require.NoError(t, err)
	return res
}

func column(res *engine.Result, field string) []any {
	out := make([]any, len(res.Records))
	for i, r := range res.Records {
		out[i] = r[field]
	}
	return out
}

func byUnit(res *engine.Result) map[string]engine.Record {
	out := map[string]engine.Record{}
	for _, r := range res.Records {
		out[r[engine.FieldUnitID].(string)] = r
	}
	return out
}

func TestRangeScenario(t *testing.T) {
	e := newEngine(t)
	res := run(t, e, params.OpSpeciesRange, "species", "solenopsis.invicta")
	units := byUnit(res)
	require.Contains(t, units, "US-48")
	assert.NotContains(t, units, "US-06")
	assert.Equal(t, int64(3), units["US-48"][engine.FieldRecordCount])
	assert.Equal(t, "N", units["US-48"][engine.FieldStatus])
}

func TestRangeEntriesHaveRecordsAndSumToNativeTotal(t *testing.T) {
	e := newEngine(t)
	native := map[string]int64{
		"Solenopsis.invicta":     5,
		"Solenopsis.geminata":    2,
		"Pheidole.megacephala":   1,
		"Camponotus.bicolor":     2,
		"Camponotus.herculeanus": 2,
		"Linepithema.humile":     1,
	}
	for sp, want := range native {
		res := run(t, e, params.OpSpeciesRange, "species", sp)
		var sum int64
		for _, r := range res.Records {
			n := r[engine.FieldRecordCount].(int64)
			assert.GreaterOrEqual(t, n, int64(1), sp)
			sum += n
		}
		assert.Equal(t, want, sum, sp)
	}
}

func TestRangeUnknownSpeciesIsEmpty(t *testing.T) {
	res := run(t, newEngine(t), params.OpSpeciesRange, "species", "Nothing.here")
	assert.NotNil(t, res.Records)
	assert.Empty(t, res.Records)
}

func TestOverlapContainsReferenceWithItsRichness(t *testing.T) {
	e := newEngine(t)
	richness := byUnit(run(t, e, params.OpSpeciesPerBentity))
	for _, u := range []string{"US-48", "US-06", "BRA"} {
		res := run(t, e, params.OpSpeciesInCommon, "bentity_id", u)
		self, ok := byUnit(res)[u]
		require.True(t, ok, u)
		assert.Equal(t, richness[u][engine.FieldSpeciesCount], self[engine.FieldInCommon], u)
		assert.Equal(t, u, self[engine.FieldQueryUnit])
	}
}

func TestOverlapIsSymmetricInMembership(t *testing.T) {
	e := newEngine(t)
	units := []string{"US-48", "US-06", "BRA"}
	overlap := map[string]map[string]engine.Record{}
	for _, u := range units {
		overlap[u] = byUnit(run(t, e, params.OpSpeciesInCommon, "bentity_id", u))
	}
	for _, a := range units {
		for _, b := range units {
			ra, inA := overlap[a][b]
			rb, inB := overlap[b][a]
			assert.Equal(t, inA, inB, "%s/%s", a, b)
			if inA && inB {
				assert.Equal(t, ra[engine.FieldInCommon], rb[engine.FieldInCommon], "%s/%s", a, b)
			}
		}
	}
	// 巴西与加州没有共有的本土物种
	assert.NotContains(t, overlap["BRA"], "US-06")
	// 分项统计来自"其他"单元
	assert.Equal(t, int64(1), overlap["US-48"]["US-06"][engine.FieldRecordCount])
	assert.Equal(t, int64(1), overlap["US-48"]["US-06"][engine.FieldMuseum])
}

func TestRichnessGenusBeatsSubfamily(t *testing.T) {
	e := newEngine(t)
	both := run(t, e, params.OpSpeciesPerBentity, "genus", "Solenopsis", "subfamily", "Formicinae")
	genus := run(t, e, params.OpSpeciesPerBentity, "genus", "Solenopsis")
	if diff := cmp.Diff(genus.Records, both.Records); diff != "" {
		t.Fatalf("genus+subfamily differs from genus alone (-genus +both):\n%s", diff)
	}
}

func TestRichnessGenusScenario(t *testing.T) {
	e := newEngine(t)
	all := byUnit(run(t, e, params.OpSpeciesPerBentity))
	sol := byUnit(run(t, e, params.OpSpeciesPerBentity, "genus", "Solenopsis"))

	assert.Equal(t, int64(3), all["US-48"][engine.FieldSpeciesCount])
	assert.Equal(t, int64(2), sol["US-48"][engine.FieldSpeciesCount])
	assert.Equal(t, int64(4), sol["US-48"][engine.FieldRecordCount])
	assert.NotEqual(t, all["US-48"][engine.FieldRecordCount], sol["US-48"][engine.FieldRecordCount])
	// 无该属物种的单元不出现
	assert.NotContains(t, sol, "US-06")
}

func TestRichnessSubfamilyIsHierarchical(t *testing.T) {
	e := newEngine(t)
	myr := byUnit(run(t, e, params.OpSpeciesPerBentity, "subfamily", "myrmicinae"))
	assert.Equal(t, int64(3), myr["BRA"][engine.FieldSpeciesCount])
	assert.Equal(t, int64(2), myr["US-48"][engine.FieldSpeciesCount])
	assert.NotContains(t, myr, "US-06")
}

func TestRichnessSubCountsSumToTotal(t *testing.T) {
	res := run(t, newEngine(t), params.OpSpeciesPerBentity)
	require.Len(t, res.Records, 3)
	for _, r := range res.Records {
		total := r[engine.FieldLiterature].(int64) + r[engine.FieldMuseum].(int64) + r[engine.FieldDatabase].(int64)
		assert.Equal(t, r[engine.FieldRecordCount], total)
	}
}

func TestSpeciesUnitIntersection(t *testing.T) {
	e := newEngine(t)
	res := run(t, e, params.OpSpecies, "bentity_id", "US-48", "bentity2_id", "BRA")
	assert.Equal(t, []any{"Solenopsis.geminata", "Solenopsis.invicta"}, column(res, engine.FieldTaxonCode))

	res = run(t, e, params.OpSpecies, "genus", "Camponotus")
	assert.Equal(t, []any{"Camponotus bicolor", "Camponotus herculeanus"}, column(res, engine.FieldDisplay))
}

func TestTaxonListsAreOrdered(t *testing.T) {
	e := newEngine(t)
	assert.Equal(t, []any{"Dolichoderinae", "Formicinae", "Myrmicinae"}, column(run(t, e, params.OpSubfamilies), engine.FieldSubfamily))
	assert.Equal(t, []any{"Pheidole", "Solenopsis"}, column(run(t, e, params.OpGenera, "subfamily", "Myrmicinae"), engine.FieldGenus))
	assert.Equal(t, []any{"Brazil", "California", "Texas"}, column(run(t, e, params.OpBentities), engine.FieldUnitName))
}

func TestSpeciesSearchIsConjunctive(t *testing.T) {
	e := newEngine(t)
	res := run(t, e, params.OpSpeciesSearch, "q", "Cam bic")
	assert.Equal(t, []any{"Camponotus.bicolor"}, column(res, engine.FieldTaxonCode))

	res = run(t, e, params.OpSpeciesSearch, "q", "bic CAM")
	assert.Equal(t, []any{"Camponotus.bicolor"}, column(res, engine.FieldTaxonCode))

	res = run(t, e, params.OpSpeciesSearch, "q", "cam")
	assert.Len(t, res.Records, 2)

	res = run(t, e, params.OpSpeciesSearch, "q", "")
	assert.Empty(t, res.Records)
	// 前缀匹配：子串不命中
	res = run(t, e, params.OpSpeciesSearch, "q", "ponotus")
	assert.Empty(t, res.Records)
}

func TestBentitySearchIsSubstring(t *testing.T) {
	e := newEngine(t)
	res := run(t, e, params.OpBentitySearch, "q", "for")
	assert.Equal(t, []any{"US-06"}, column(res, engine.FieldUnitID))
	res = run(t, e, params.OpBentitySearch, "q", "ra.zil")
	assert.Equal(t, []any{"Brazil"}, column(res, engine.FieldUnitName))
	res = run(t, e, params.OpBentitySearch)
	assert.Empty(t, res.Records)
}

func TestPointsFilters(t *testing.T) {
	e := newEngine(t)
	assert.Len(t, run(t, e, params.OpSpeciesPoints, "species", "Solenopsis.invicta").Records, 5)
	assert.Len(t, run(t, e, params.OpSpeciesPoints, "species", "Solenopsis.invicta", "bentity_id", "us-48").Records, 2)
	assert.Len(t, run(t, e, params.OpSpeciesPoints, "species", "Solenopsis.invicta", "min_lat", "0").Records, 3)
	assert.Len(t, run(t, e, params.OpSpeciesPoints, "species", "Solenopsis.invicta", "lat", "29.1", "lon", "-95.1").Records, 1)
	// 无坐标记录不产生点位
	assert.Empty(t, run(t, e, params.OpSpeciesPoints, "species", "Camponotus.bicolor", "max_lat", "30").Records)
}

func TestCitationsGroups(t *testing.T) {
	e := newEngine(t)
	res := run(t, e, params.OpCitations, "gabi_acc_number", "gabi0018")
	require.Len(t, res.Records, 1)
	assert.Nil(t, res.Records[0][engine.FieldLat])
	assert.Equal(t, "", res.Records[0][engine.FieldUnitID])

	res = run(t, e, params.OpCitations, "species", "Solenopsis.invicta", "bentity_id", "US-48")
	assert.Equal(t, []any{"GABI0001", "GABI0002", "GABI0003"}, column(res, engine.FieldAccession))

	// 叠加组取交集
	res = run(t, e, params.OpCitations, "accession_id", "GABI0001", "species", "Solenopsis.invicta", "bentity_id", "US-06")
	assert.Empty(t, res.Records)

	res = run(t, e, params.OpCitations, "lat", "32.7", "lon", "-117.2")
	assert.Equal(t, []any{"GABI0016", "GABI0017"}, column(res, engine.FieldAccession))

	res = run(t, e, params.OpCitations, "species", "Solenopsis.invicta", "bentity_id", "US-06", "status", "introduced")
	assert.Len(t, res.Records, 1)
	res = run(t, e, params.OpCitations, "species", "Solenopsis.invicta", "bentity_id", "US-06", "status", "N")
	assert.Empty(t, res.Records)
}

func TestSpeciesMetadata(t *testing.T) {
	e := newEngine(t)
	assert.Len(t, run(t, e, params.OpSpeciesMetadata, "taxon_code", "Camponotus.bicolor").Records, 3)
	res := run(t, e, params.OpSpeciesMetadata, "taxon_code", "Camponotus.bicolor", "bentity_id", "US-06")
	assert.Equal(t, []any{"Emery 1895", "Wheeler 1910"}, column(res, engine.FieldCitation))
}

func TestAntwebLinks(t *testing.T) {
	e := newEngine(t)
	res := run(t, e, params.OpAntwebLinks, "taxon_code", "Camponotus.bicolor")
	require.Len(t, res.Records, 1)
	assert.Equal(t, engine.Record{
		engine.FieldKey:           "Camponotus.bicolor",
		engine.FieldSpeciesName:   "bicolor",
		engine.FieldGenusName:     "Camponotus",
		engine.FieldSubfamilyName: "Formicinae",
	}, res.Records[0])

	res = run(t, e, params.OpAntwebLinks, "genus_name", "camponotus")
	assert.Equal(t, []engine.Record{{engine.FieldKey: "Camponotus", engine.FieldSubfamilyName: "Formicinae"}}, res.Records)
	assert.Equal(t, []string{"key", "subfamilyName"}, names(res.Columns(params.FormatObject)))

	assert.Empty(t, run(t, e, params.OpAntwebLinks).Records)
}

func TestViewsDeclareFieldOrder(t *testing.T) {
	v, ok := engine.ViewOf(params.OpSpeciesInCommon)
	require.True(t, ok)
	assert.Equal(t, []string{"query_unit_id", "unit_id", "unit_name", "species_in_common", "record_count", "literature_count", "museum_count", "database_count"}, names(v.Table))
	assert.Equal(t, "bentities", engine.SafeDefault(params.OpSpeciesInCommon))
	assert.Equal(t, "records", engine.SafeDefault(params.OpCitations))

	v, _ = engine.ViewOf(params.OpSpeciesSearch)
	assert.Equal(t, []string{"label", "value"}, names(v.Object))
}

func TestRunUnknownOp(t *testing.T) {
	_, err := newEngine(t).Run(context.Background(), filter.Query{Op: "nope"})
	assert.Error(t, err)
}

func names(cols []engine.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}
