package reference

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *echo.Echo {
	f := testFixture()
	h := NewHandler(NewService(f, f))
	e := echo.New()
	h.RegisterRoutes(e.Group("/api/v1"))
	return e
}

func get(t *testing.T, e *echo.Echo, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

type envelope struct {
	Data json.RawMessage        `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHandler_ListSites(t *testing.T) {
	rec := get(t, newTestServer(), "/api/v1/reference/sites")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode(t, rec)
	var sites []Site
	require.NoError(t, json.Unmarshal(env.Data, &sites))
	assert.Len(t, sites, 2)
	assert.Equal(t, float64(2), env.Meta["count"])
	assert.Equal(t, "S01", sites[0].Code)
}

func TestHandler_ListSubprograms(t *testing.T) {
	e := newTestServer()

	rec := get(t, e, "/api/v1/reference/subprograms?program_id=6")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec).Meta["count"])

	rec = get(t, e, "/api/v1/reference/subprograms")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec).Meta["count"])

	rec = get(t, e, "/api/v1/reference/subprograms?program_id=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListStaffedBedsDefaultsSchedule(t *testing.T) {
	rec := get(t, newTestServer(), "/api/v1/reference/staffed-beds")
	require.Equal(t, http.StatusOK, rec.Code)

	var beds []StaffedBedsSchedule
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &beds))
	require.Len(t, beds, 1)
	assert.Equal(t, "Sched-A", beds[0].ScheduleCode)
}

func TestHandler_ListBaselines(t *testing.T) {
	e := newTestServer()

	rec := get(t, e, "/api/v1/reference/baselines")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec).Meta["count"])

	rec = get(t, e, "/api/v1/reference/baselines?year=1999")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestHandler_ResolveSeasonality(t *testing.T) {
	e := newTestServer()

	rec := get(t, e, "/api/v1/reference/seasonality/resolved?site_id=1&program_id=6")
	require.Equal(t, http.StatusOK, rec.Code)

	var res ResolvedSeasonality
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1.30, res.Months[0])
	assert.Equal(t, 1.05, res.Months[1])
	assert.InDelta(t, (1.30+1.05+10)/12, res.Mean, 1e-12)

	rec = get(t, e, "/api/v1/reference/seasonality/resolved?site_id=1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListStaffingFactors(t *testing.T) {
	rec := get(t, newTestServer(), "/api/v1/reference/staffing-factors")
	require.Equal(t, http.StatusOK, rec.Code)

	var fs []StaffingFactor
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &fs))
	require.Len(t, fs, 2)
	assert.Nil(t, fs[0].SubprogramID)
	assert.Equal(t, 2, *fs[1].SubprogramID)
}

func TestHandler_ListStaysPaginated(t *testing.T) {
	rec := get(t, newTestServer(), "/api/v1/reference/stays?site_id=2&limit=2&offset=0")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode(t, rec)
	assert.Equal(t, float64(2), env.Meta["count"])
	assert.Equal(t, float64(3), env.Meta["total"])
	assert.Equal(t, true, env.Meta["has_more"])
}
