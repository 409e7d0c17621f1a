package server_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlint/internal/server"
	"github.com/leapstack-labs/sqlint/internal/state"
	"github.com/leapstack-labs/sqlint/internal/testutil"
	"github.com/leapstack-labs/sqlint/pkg/lint"
	"github.com/leapstack-labs/sqlint/pkg/lint/rules"
)

func newServer(t *testing.T, store state.Store) *server.Server {
	t.Helper()
	reg := lint.NewRegistry()
	require.NoError(t, rules.RegisterRecommended(reg))
	return server.New(server.Config{
		Linter:   lint.NewLinter(lint.WithLogger(testutil.NewTestLogger(t))),
		Registry: reg,
		Lint:     rules.RecommendedConfig(),
		Store:    store,
		Logger:   testutil.NewTestLogger(t),
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(t, nil).Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLint(t *testing.T) {
	h := newServer(t, nil).Handler()

	t.Run("reports messages", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/v1/lint", `{"sql":"SELECT * FROM users","filename":"q.sql"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		result := decode[lint.LintResult](t, rec)
		assert.Equal(t, "q.sql", result.Filename)
		require.Len(t, result.Messages, 1)
		assert.Equal(t, "no-select-star", result.Messages[0].RuleID)
		assert.Equal(t, lint.SeverityWarning, result.Messages[0].Severity)
		assert.Equal(t, 1, result.WarningCount)
	})

	t.Run("default filename", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/v1/lint", `{"sql":"SELECT id FROM users"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, server.DefaultFilename, decode[lint.LintResult](t, rec).Filename)
	})

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"empty sql", `{"sql":""}`, "sql is required"},
		{"malformed json", `{"sql":`, "invalid request body"},
		{"unknown field", `{"query":"SELECT 1"}`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/lint", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[map[string]string](t, rec)["error"], tt.wantErr)
		})
	}

	t.Run("wrong method", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/v1/lint", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestLintBatch(t *testing.T) {
	h := newServer(t, nil).Handler()

	body := `{"files":[
		{"filename":"a.sql","content":"SELECT * FROM a"},
		{"content":"CREATE TABLE UserAccounts (id bigint)"},
		{"filename":"c.sql","content":"SELECT id FROM c"}
	]}`
	rec := do(t, h, http.MethodPost, "/v1/lint/batch", body)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[server.BatchResponse](t, rec)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "a.sql", resp.Results[0].Filename)
	assert.Equal(t, "file2.sql", resp.Results[1].Filename)
	assert.Equal(t, "c.sql", resp.Results[2].Filename)
	assert.Equal(t, "table-naming-convention", resp.Results[1].Messages[0].RuleID)
	assert.Equal(t, 3, resp.Summary.TotalFiles)
	assert.Equal(t, 2, resp.Summary.TotalWarnings)
	assert.Equal(t, 2, resp.Summary.FilesWithIssues)
	assert.Empty(t, resp.RunID)

	rec = do(t, h, http.MethodPost, "/v1/lint/batch", `{"files":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRules(t *testing.T) {
	h := newServer(t, nil).Handler()

	rec := do(t, h, http.MethodGet, "/v1/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	views := decode[[]server.RuleView](t, rec)
	require.Len(t, views, len(rules.All()))

	byName := make(map[string]server.RuleView)
	for _, v := range views {
		byName[v.Name] = v
	}
	assert.True(t, byName["no-select-star"].Enabled)
	assert.True(t, byName["no-select-star"].Recommended)
	assert.False(t, byName["require-primary-key"].Enabled)
	assert.NotEmpty(t, byName["no-select-star"].DocURL)

	rec = do(t, h, http.MethodGet, "/v1/rules/table-naming-convention", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "table-naming-convention", decode[server.RuleView](t, rec).Name)

	rec = do(t, h, http.MethodGet, "/v1/rules/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "rule not found: nope")
}

func TestRuns(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		rec := do(t, newServer(t, nil).Handler(), http.MethodGet, "/v1/runs", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(filepath.Join(t.TempDir(), "history.db")))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())

	h := newServer(t, store).Handler()

	rec := do(t, h, http.MethodGet, "/v1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	// Single-statement requests are not recorded.
	rec = do(t, h, http.MethodPost, "/v1/lint", `{"sql":"SELECT * FROM a"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/v1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/lint/batch", `{"files":[{"filename":"a.sql","content":"SELECT * FROM a"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	runID := decode[server.BatchResponse](t, rec).RunID
	require.NotEmpty(t, runID)

	rec = do(t, h, http.MethodGet, "/v1/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]state.Run](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, 1, runs[0].Warnings)

	rec = do(t, h, http.MethodGet, "/v1/runs/"+runID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[server.RunView](t, rec)
	assert.Equal(t, runID, view.ID)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "no-select-star", view.Messages[0].RuleID)

	rec = do(t, h, http.MethodGet, "/v1/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newServer(t, nil).ServeListener(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
