package api

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/safescan/internal/jobstore"
	"github.com/sells-group/safescan/internal/model"
	"github.com/sells-group/safescan/internal/research"
	"github.com/sells-group/safescan/internal/scoring"
	"github.com/sells-group/safescan/internal/tierdb"
)

// cannedGenerator returns a report with every section filled.
type cannedGenerator struct{}

func (cannedGenerator) Generate(context.Context, string, string) (string, error) {
	var b strings.Builder
	for _, title := range model.ReportSectionTitles {
		b.WriteString("## " + title + "\n" + title + " text.\n")
	}
	return b.String(), nil
}

type testEnv struct {
	handler http.Handler
	orch    *research.Orchestrator
	store   jobstore.Store
}

func newTestEnv(t *testing.T, store jobstore.Store) *testEnv {
	t.Helper()
	db, err := tierdb.Default()
	require.NoError(t, err)
	engine := scoring.NewEngine(db)
	if store == nil {
		store = jobstore.NewMemory()
	}
	orch := research.NewOrchestrator(context.Background(), store, engine, cannedGenerator{},
		research.Config{RequestsPerMinute: 60000})
	srv := New(Deps{
		Scorer:  engine,
		Jobs:    orch,
		Catalog: db,
		Store:   store,
	})
	return &testEnv{handler: srv.Routes(), orch: orch, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func TestHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	var body map[string]any
	decodeBody(t, rr, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["store"])
	assert.NotEmpty(t, body["tier_db_version"])
}

func TestScan_Valid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodPost, "/api/v4/scan", map[string]any{
		"product_name": "Fruit Punch",
		"brand":        "Kool-Aid",
		"category":     "Food",
		"ingredients":  []string{"water", "high fructose corn syrup", "red 40"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body map[string]any
	decodeBody(t, rr, &body)
	assert.Equal(t, "food", body["category"])
	assert.Contains(t, body, "overall_score")
	assert.Contains(t, body, "grade")
	assert.Contains(t, body, "dimension_scores")
	graded, ok := body["ingredients_graded"].([]any)
	require.True(t, ok)
	assert.Len(t, graded, 3)
	first := graded[0].(map[string]any)
	for _, key := range []string{"name", "grade", "hazard_score", "reason"} {
		assert.Contains(t, first, key)
	}
}

func TestScan_InvalidCategory(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodPost, "/api/v4/scan", map[string]any{
		"product_name": "Widget",
		"category":     "toys",
		"ingredients":  []string{"plastic"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body map[string]string
	decodeBody(t, rr, &body)
	assert.Contains(t, body["error"], "category must be one of")
}

func TestScan_EmptyIngredients(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodPost, "/api/v4/scan", map[string]any{
		"product_name": "Widget",
		"category":     "food",
		"ingredients":  []string{},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "ingredients")
}

func TestScan_BadJSON(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodPost, "/api/v4/scan", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestDeepResearch_RoundTrip(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodPost, "/api/v4/deep-research", map[string]any{
		"product_name": "Cola Classic",
		"brand":        "Coca-Cola",
		"category":     "food",
		"ingredients":  []string{"carbonated water", "caramel color"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var accepted ResearchAccepted
	decodeBody(t, rr, &accepted)
	assert.NotEmpty(t, accepted.JobID)
	assert.Equal(t, model.JobStatusPending, accepted.Status)
	assert.Equal(t, "/api/v4/job/"+accepted.JobID, accepted.CheckStatusURL)
	assert.NotEmpty(t, accepted.Message)

	env.orch.Wait()

	rr = env.do(t, http.MethodGet, accepted.CheckStatusURL, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var job map[string]any
	decodeBody(t, rr, &job)
	assert.Equal(t, "completed", job["status"])
	assert.EqualValues(t, 100, job["progress"])
	assert.Equal(t, "Complete", job["current_step"])
	result, ok := job["result"].(map[string]any)
	require.True(t, ok)
	sections, ok := result["sections"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, sections, 7)
	assert.Equal(t, "Executive Summary text.", sections["Executive Summary"])
}

func TestDeepResearch_Invalid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodPost, "/api/v4/deep-research", map[string]any{
		"brand":       "Nobody",
		"category":    "food",
		"ingredients": []string{"salt"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "product_name is required")
}

func TestDeepResearch_BlankIngredients(t *testing.T) {
	t.Parallel()
	store := jobstore.NewMemory()
	env := newTestEnv(t, store)
	rr := env.do(t, http.MethodPost, "/api/v4/deep-research", map[string]any{
		"product_name": "Cola Classic",
		"category":     "food",
		"ingredients":  []string{"  ", "\t"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "ingredients must contain at least 1 item(s)")
	assert.Equal(t, 0, store.Len())
}

func TestJob_NotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/api/v4/job/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	var body map[string]string
	decodeBody(t, rr, &body)
	assert.Contains(t, body["error"], "job not found")
}

type brokenJobs struct{}

func (brokenJobs) Start(context.Context, model.ResearchRequest) (*model.ResearchJob, error) {
	return nil, errors.New("fallback store unavailable")
}

func (brokenJobs) Get(context.Context, string) (*model.ResearchJob, error) {
	return nil, errors.New("fallback store unavailable")
}

func TestJob_InternalError(t *testing.T) {
	t.Parallel()
	srv := New(Deps{Jobs: brokenJobs{}, Store: jobstore.NewMemory()})
	req := httptest.NewRequest(http.MethodGet, "/api/v4/job/abc", nil)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"fallback store unavailable"}`, rr.Body.String())
}

func TestIngredient(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/api/v1/ingredient/Red%2040", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var info IngredientInfo
	decodeBody(t, rr, &info)
	assert.Equal(t, "red 40", info.MatchedAs)
	assert.Equal(t, model.GradeD, info.Grade)
	assert.NotEmpty(t, info.Reason)

	rr = env.do(t, http.MethodGet, "/api/v1/ingredient/unobtainium", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "ingredient not found")
}

func TestDatabaseStats(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/api/v1/database/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var stats tierdb.Stats
	decodeBody(t, rr, &stats)
	assert.Positive(t, stats.TotalEntries)
	assert.Positive(t, stats.Parents)
	assert.Contains(t, stats.Tiers, "F")
}

func TestCleanup_MemoryIsAutomatic(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodDelete, "/api/v4/admin/cleanup-jobs", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var res CleanupResult
	decodeBody(t, rr, &res)
	assert.Equal(t, "memory", res.Backend)
	assert.Zero(t, res.Deleted)
	assert.Contains(t, res.Message, "automatically")
}

func TestCleanup_SQLiteSweeps(t *testing.T) {
	t.Parallel()
	now := time.Now()
	store, err := jobstore.NewSQLite(t.TempDir()+"/jobs.db", time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Put(context.Background(), model.NewResearchJob("old", now)))
	time.Sleep(10 * time.Millisecond)

	env := newTestEnv(t, store)
	rr := env.do(t, http.MethodDelete, "/api/v4/admin/cleanup-jobs", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res CleanupResult
	decodeBody(t, rr, &res)
	assert.Equal(t, "sqlite", res.Backend)
	assert.Equal(t, 1, res.Deleted)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v4/scan", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestNew_StatusPathNormalized(t *testing.T) {
	t.Parallel()
	srv := New(Deps{StatusPath: "/jobs"})
	assert.Equal(t, "/jobs/", srv.deps.StatusPath)
	assert.Equal(t, []string{"*"}, srv.deps.AllowedOrigins)
}
