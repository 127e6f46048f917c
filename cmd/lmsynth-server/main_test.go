package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/lmsynth/lmsynth/internal/config"
	"github.com/lmsynth/lmsynth/internal/domain/scenario"
	"github.com/lmsynth/lmsynth/internal/platform/db"
	"github.com/lmsynth/lmsynth/internal/platform/seed"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                      "test",
		CORSOrigins:              []string{"http://localhost:3000"},
		AuthDisabled:             true,
		ScenarioFetchConcurrency: 4,
	}
}

func testDeps(cfg *config.Config) deps {
	fixture := seed.NewGenerator(seed.Config{Seed: 11, Sites: 3, StayScale: 0.05}).Generate().Fixture()
	return deps{
		Config:   cfg,
		Logger:   zerolog.Nop(),
		Catalog:  fixture,
		Provider: fixture,
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func do(e http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const computeBody = `{"sites":[1,2,3],"program_id":1,"params":{"occupancy_target":0.9,"alc_target":0.1}}`

func TestServer_Health(t *testing.T) {
	e := newServer(testDeps(testConfig()))

	rec := do(e, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), version) {
		t.Errorf("expected version in body, got %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestServer_HealthDB(t *testing.T) {
	d := testDeps(testConfig())
	if rec := do(newServer(d), http.MethodGet, "/health/db", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a database, got %d", rec.Code)
	}

	d.Pinger = fakePinger{}
	d.PoolStats = func() *db.PoolStats { return &db.PoolStats{MaxConns: 20} }
	if rec := do(newServer(d), http.MethodGet, "/health/db", "", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	d.Pinger = fakePinger{err: errors.New("down")}
	if rec := do(newServer(d), http.MethodGet, "/health/db", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestServer_ReferenceRoutes(t *testing.T) {
	e := newServer(testDeps(testConfig()))

	rec := do(e, http.MethodGet, "/api/v1/reference/sites", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 3 {
		t.Errorf("expected 3 sites, got %d", len(body.Data))
	}
}

func TestServer_Compute(t *testing.T) {
	e := newServer(testDeps(testConfig()))

	rec := do(e, http.MethodPost, "/api/v1/scenarios/compute", computeBody, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp scenario.ScenarioResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.BySite) != 3 {
		t.Errorf("expected 3 sites, got %d", len(resp.BySite))
	}
	if resp.KPIs.TotalStaffedBeds <= 0 {
		t.Errorf("expected staffed beds, got %d", resp.KPIs.TotalStaffedBeds)
	}
	if resp.Metadata.ModelVersion != scenario.ModelVersion {
		t.Errorf("expected model version %s, got %s", scenario.ModelVersion, resp.Metadata.ModelVersion)
	}
}

func TestServer_ComputeInvalid(t *testing.T) {
	e := newServer(testDeps(testConfig()))

	rec := do(e, http.MethodPost, "/api/v1/scenarios/compute", `{"sites":[1],"program_id":1,"params":{"occupancy_target":0.5,"alc_target":0.1}}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_SavedWithoutRepository(t *testing.T) {
	e := newServer(testDeps(testConfig()))

	rec := do(e, http.MethodPost, "/api/v1/scenarios/saved", `{"name":"x","request":`+computeBody+`}`, nil)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("expected 501, got %d", rec.Code)
	}
}

func TestServer_JWTAuth(t *testing.T) {
	cfg := testConfig()
	cfg.AuthDisabled = false
	cfg.AuthSigningKey = "test-signing-key"
	e := newServer(testDeps(cfg))

	if rec := do(e, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("expected health to skip auth, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/v1/reference/programs", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "planner-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(cfg.AuthSigningKey))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec := do(e, http.MethodGet, "/api/v1/reference/programs", "", map[string]string{"Authorization": "Bearer " + signed})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rec.Code)
	}
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 1
	e := newServer(testDeps(cfg))

	if rec := do(e, http.MethodGet, "/api/v1/reference/programs", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/v1/reference/programs", "", nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("expected health to bypass the limiter, got %d", rec.Code)
	}
}

func TestReadRequest_Defaults(t *testing.T) {
	req, err := readRequest(strings.NewReader(computeBody), "-")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.HorizonYears != scenario.DefaultHorizonYears {
		t.Errorf("expected default horizon, got %d", req.HorizonYears)
	}
	if req.Params.ScheduleCode != "Sched-A" {
		t.Errorf("expected default schedule, got %q", req.Params.ScheduleCode)
	}
}

func TestReadRequest_BadJSON(t *testing.T) {
	if _, err := readRequest(strings.NewReader("{"), "-"); err == nil {
		t.Error("expected decode error")
	}
	if _, err := readRequest(nil, "/nonexistent/request.json"); err == nil {
		t.Error("expected open error")
	}
}

func TestRunCompute_WritesJSON(t *testing.T) {
	fixture := seed.NewGenerator(seed.Config{Seed: 3, Sites: 2, StayScale: 0.05}).Generate().Fixture()
	req, err := readRequest(strings.NewReader(`{"sites":[1,2],"program_id":4,"params":{"occupancy_target":0.85,"alc_target":0.05,"seasonality":true}}`), "-")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out bytes.Buffer
	if err := runCompute(context.Background(), &out, fixture, req, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), `"by_site"`) {
		t.Errorf("expected by_site in output, got %s", out.String())
	}
}
