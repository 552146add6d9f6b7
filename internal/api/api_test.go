package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"antmaps-api/internal/cache"
	"antmaps-api/internal/config"
	"antmaps-api/internal/engine"
	"antmaps-api/internal/filter"
	"antmaps-api/internal/memstore"
	"antmaps-api/internal/model"
	"antmaps-api/internal/params"
	"antmaps-api/internal/report"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"))
}

func fixture(t *testing.T) *memstore.Store {
	t.Helper()
	ms, err := memstore.Open("../../data/fixture/antmaps.json")
	require.NoError(t, err)
	return ms
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSpeciesFormats(t *testing.T) {
	mux := BuildRoutes(Deps{Engine: engine.New(fixture(t))})

	rec := get(t, mux, "/species?genus=solenopsis")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"species":[{"key":"Solenopsis.geminata","display":"Solenopsis geminata"},{"key":"Solenopsis.invicta","display":"Solenopsis invicta"}]}`+"\n", rec.Body.String())

	legacy := get(t, mux, "/species-list?genus=Solenopsis")
	assert.Equal(t, rec.Body.String(), legacy.Body.String())

	for _, target := range []string{"/species.csv?genus=Solenopsis", "/species?genus=Solenopsis&format=csv"} {
		csv := get(t, mux, target)
		assert.Equal(t, "text/csv; charset=utf-8", csv.Header().Get("Content-Type"), target)
		assert.Equal(t, `attachment; filename="species.csv"`, csv.Header().Get("Content-Disposition"), target)
		assert.Equal(t, "species\nSolenopsis.geminata\nSolenopsis.invicta\n", csv.Body.String(), target)
	}

	js := get(t, mux, "/species.json?genus=Solenopsis&format=csv")
	assert.Equal(t, rec.Body.String(), js.Body.String())
}

func TestValidationErrorIs200(t *testing.T) {
	mux := BuildRoutes(Deps{Engine: engine.New(fixture(t))})

	rec := get(t, mux, "/species-range")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"bentities":[],"error":true,"errormessage":"Please supply a 'species' argument."}`+"\n", rec.Body.String())

	rec = get(t, mux, "/citations.csv?species=Solenopsis.invicta")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "errormessage\n"))
	assert.Contains(t, rec.Body.String(), "'accession_id'")

	rec = get(t, mux, "/species-points?species=Solenopsis.invicta&lat=north")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":true`)
}

func TestAggregationRoutes(t *testing.T) {
	mux := BuildRoutes(Deps{Engine: engine.New(fixture(t))})

	var body struct {
		Bentities []struct {
			UnitID  string `json:"unit_id"`
			Species int64  `json:"species_count"`
			Records int64  `json:"record_count"`
		} `json:"bentities"`
	}
	rec := get(t, mux, "/species-per-bentity?genus=Solenopsis&subfamily=Formicinae")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Bentities)
	for _, b := range body.Bentities {
		if b.UnitID == "US-48" {
			assert.Equal(t, int64(2), b.Species)
			assert.Equal(t, int64(4), b.Records)
		}
	}

	rec = get(t, mux, "/bentity-species-counts.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "unit_id,unit_name,species_count,record_count,literature_count,museum_count,database_count\n"))

	rec = get(t, mux, "/species-in-common.csv?bentity_id=us-48")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Equal(t, "query_unit_id,unit_id,unit_name,species_in_common,record_count,literature_count,museum_count,database_count", lines[0])
	assert.Contains(t, rec.Body.String(), "US-48,US-48,Texas,3,")
}

func TestAutocompleteAndEmptyQuery(t *testing.T) {
	mux := BuildRoutes(Deps{Engine: engine.New(fixture(t))})

	rec := get(t, mux, "/species-autocomplete?q="+url.QueryEscape("cam. bic"))
	assert.Equal(t, `{"species":[{"label":"Camponotus bicolor","value":"Camponotus.bicolor"}]}`+"\n", rec.Body.String())

	rec = get(t, mux, "/species-search?q=+.+")
	assert.Equal(t, `{"species":[]}`+"\n", rec.Body.String())

	rec = get(t, mux, "/bentity-search?q=AL")
	assert.Equal(t, `{"bentities":[{"bentity_id":"US-06","bentity_name":"California"}]}`+"\n", rec.Body.String())
}

// failing：单个查询失败的后端
type failing struct {
	*memstore.Store
}

func (failing) Species(context.Context, filter.Set) ([]model.Species, error) {
	return nil, errors.New("connection refused")
}

func (failing) Ping(context.Context) error { return errors.New("connection refused") }

func TestBackendFailureIs500(t *testing.T) {
	e := engine.New(failing{fixture(t)})
	mux := BuildRoutes(Deps{Engine: e})

	rec := get(t, mux, "/species?genus=Solenopsis")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = get(t, mux, "/genera")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	Health(e)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	Health(engine.New(fixture(t)))(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type stubSender struct{ err error }

func (s stubSender) Send(context.Context, report.Form) error { return s.err }

func postForm(t *testing.T, h http.Handler, v url.Values) (*httptest.ResponseRecorder, reportResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/error-report", strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestErrorReport(t *testing.T) {
	form := url.Values{"name": {"Ada"}, "email": {"ada@example.org"}, "message": {"BRA record is wrong"}, "humantest": {"Ants "}}
	bad := url.Values{"name": {"Ada"}, "email": {"ada@example.org"}, "message": {"m"}, "humantest": {"bee"}}
	e := engine.New(fixture(t))

	mux := BuildRoutes(Deps{Engine: e, Reports: report.NewService(stubSender{})})
	rec := get(t, mux, "/error-report")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"submitted":false,"valid":false}`+"\n", rec.Body.String())

	rec, out := postForm(t, mux, bad)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, out.Valid)
	assert.Equal(t, report.HumanTestMessage, out.Errors["humantest"])

	rec, out = postForm(t, mux, form)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, out.Valid)
	assert.Equal(t, reportThanks, out.Message)

	down := report.NewService(stubSender{err: errors.New("smtp: 421 service not available")})
	rec, out = postForm(t, BuildRoutes(Deps{Engine: e, Reports: down, Debug: true}), form)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, out.Error, "421")

	rec, out = postForm(t, BuildRoutes(Deps{Engine: e, Reports: down}), form)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, out.Error)
	assert.Equal(t, reportThanks, out.Message)

	req := httptest.NewRequest(http.MethodDelete, "/error-report", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouteOpAndUncached(t *testing.T) {
	op, format, ok := RouteOp("/dataserver/species-bentity-categories.csv")
	require.True(t, ok)
	assert.Equal(t, params.OpSpeciesRange, op)
	assert.Equal(t, "csv", format)

	_, _, ok = RouteOp("/dataserver/nothing")
	assert.False(t, ok)

	for target, want := range map[string]bool{
		"/dataserver/species-search?q=a":       true,
		"/dataserver/species-autocomplete.csv": true,
		"/dataserver/bentity-search":           true,
		"/dataserver/error-report":             true,
		"/dataserver/species?genus=Pheidole":   false,
		"/dataserver/species-range":            false,
	} {
		assert.Equal(t, want, Uncached(httptest.NewRequest(http.MethodGet, target, nil)), target)
	}
}

func TestCachedStack(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/dataserver/", http.StripPrefix("/dataserver", BuildRoutes(Deps{Engine: engine.New(fixture(t))})))
	cfg := config.Cache{Enabled: true, TTL: time.Minute, KeyPrefix: "test:"}
	h := cache.Middleware(cfg, cache.NewMemory(time.Minute), Uncached)(mux)

	first := get(t, h, "/dataserver/genera?subfamily=Myrmicinae")
	second := get(t, h, "/dataserver/genera?subfamily=Myrmicinae")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	search := get(t, h, "/dataserver/species-search?q=sol")
	assert.Empty(t, search.Header().Get("X-Cache"))
}

func TestConfigJS(t *testing.T) {
	rec := httptest.NewRecorder()
	ConfigJS("/dataserver")(rec, httptest.NewRequest(http.MethodGet, "/config.js", nil))
	assert.Contains(t, rec.Body.String(), "window.__API_BASE__='/dataserver'")
	assert.Equal(t, "application/javascript; charset=utf-8", rec.Header().Get("Content-Type"))
}
