package render

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http/httptest"
	"net/url"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antmaps-api/internal/engine"
	"antmaps-api/internal/filter"
	"antmaps-api/internal/memstore"
	"antmaps-api/internal/params"
)

func TestObjectKeepsDeclaredFieldOrder(t *testing.T) {
	cols := []engine.Column{{Name: "key", Field: "taxon_code"}, {Name: "display", Field: "display"}}
	recs := []engine.Record{{"taxon_code": "Camponotus.bicolor", "display": "Camponotus bicolor", "genus": "Camponotus"}}
	var buf bytes.Buffer
	require.NoError(t, Object(&buf, "species", cols, recs))
	assert.Equal(t, `{"species":[{"key":"Camponotus.bicolor","display":"Camponotus bicolor"}]}`+"\n", buf.String())
}

func TestObjectEmptyListIsNotNull(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Object(&buf, "bentities", nil, nil))
	assert.JSONEq(t, `{"bentities":[]}`, buf.String())
}

func TestTableHeaderAndCells(t *testing.T) {
	cols := []engine.Column{{Name: "accession_id", Field: "accession_id"}, {Name: "lat", Field: "lat"}, {Name: "record_count", Field: "record_count"}, {Name: "citation", Field: "citation"}}
	recs := []engine.Record{
		{"accession_id": "GABI0018", "lat": nil, "record_count": int64(2), "citation": "Forel, 1901"},
		{"accession_id": "GABI0001", "lat": 29.1, "record_count": int64(1), "citation": "Smith"},
	}
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, cols, recs))
	assert.Equal(t, "accession_id,lat,record_count,citation\nGABI0018,,2,\"Forel, 1901\"\nGABI0001,29.1,1,Smith\n", buf.String())
}

func TestCitationsValidationErrorInBothFormats(t *testing.T) {
	_, err := params.Resolve(params.OpCitations, url.Values{}, nil)
	var ve *params.ValidationError
	require.True(t, errors.As(err, &ve))

	var obj bytes.Buffer
	require.NoError(t, EncodeError(&obj, params.FormatObject, ve.Op, ve.Message))
	var got map[string]any
	require.NoError(t, json.Unmarshal(obj.Bytes(), &got))
	assert.Equal(t, []any{}, got["records"])
	assert.Equal(t, true, got["error"])
	assert.Equal(t, ve.Message, got["errormessage"])

	var tab bytes.Buffer
	require.NoError(t, EncodeError(&tab, params.FormatTable, ve.Op, ve.Message))
	rows, err := csv.NewReader(&tab).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"errormessage"}, {ve.Message}}, rows)
}

func TestWriteHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	res := &engine.Result{Op: params.OpSubfamilies, Records: []engine.Record{}}
	res.View, _ = engine.ViewOf(params.OpSubfamilies)
	require.NoError(t, Write(rec, params.OpSubfamilies, params.FormatTable, res))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("content-type"))
	assert.Equal(t, `attachment; filename="subfamilies.csv"`, rec.Header().Get("content-disposition"))
	assert.Equal(t, "subfamily\n", rec.Body.String())

	rec = httptest.NewRecorder()
	require.NoError(t, WriteError(rec, params.OpSpecies, params.FormatObject, "nope"))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("content-type"))
	assert.Empty(t, rec.Header().Get("content-disposition"))
	assert.JSONEq(t, `{"species":[],"error":true,"errormessage":"nope"}`, rec.Body.String())
}

// 同一请求两种格式输出的记录逐字段相同
func TestFormatsCarrySameRecords(t *testing.T) {
	s, err := memstore.Open("../../data/fixture/antmaps.json")
	require.NoError(t, err)
	e := engine.New(s)

	cases := []struct {
		op params.Op
		kv url.Values
	}{
		{params.OpSpeciesPoints, url.Values{"species": {"Solenopsis.invicta"}}},
		{params.OpCitations, url.Values{"species": {"Camponotus.bicolor"}, "bentity_id": {"US-06"}}},
		{params.OpCitations, url.Values{"accession_id": {"GABI0018"}}},
		{params.OpSpeciesPerBentity, url.Values{"genus": {"Solenopsis"}}},
		{params.OpBentitySearch, url.Values{"q": {"a"}}},
		{params.OpAntwebLinks, url.Values{"taxon_code": {"Linepithema.humile"}}},
	}
	for _, tc := range cases {
		ctx, err := params.Resolve(tc.op, tc.kv, s)
		require.NoError(t, err)
		q, err := filter.Compose(ctx)
		require.NoError(t, err)
		res, err := e.Run(context.Background(), q)
		require.NoError(t, err)
		require.NotEmpty(t, res.Records, tc.op)

		var obj, tab bytes.Buffer
		require.NoError(t, Encode(&obj, params.FormatObject, res))
		require.NoError(t, Encode(&tab, params.FormatTable, res))

		var decoded map[string][]map[string]any
		require.NoError(t, json.Unmarshal(obj.Bytes(), &decoded))
		objects := decoded[res.View.Key]
		rows, err := csv.NewReader(&tab).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, len(objects)+1, tc.op)

		header := rows[0]
		for i, o := range objects {
			for j, name := range header {
				assert.Equal(t, cell(o[name]), rows[i+1][j], "%s record %d field %s", tc.op, i, name)
			}
		}
	}
}
