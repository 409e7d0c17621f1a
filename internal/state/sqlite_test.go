package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlint/internal/testutil"
	"github.com/leapstack-labs/sqlint/pkg/lint"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(filepath.Join(t.TempDir(), "history", "runs.db")))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())
	return store
}

func sampleResults() []lint.LintResult {
	return []lint.LintResult{
		{
			Filename: "a.sql",
			Messages: []lint.LintMessage{
				{RuleID: "no-select-star", Severity: lint.SeverityWarning, Message: "Unexpected SELECT *. Specify explicit column names instead.", Line: 1, Column: 1},
				{RuleID: "broken", Severity: lint.SeverityError, Message: "Rule execution error: boom", Line: 1, Column: 1, NodeType: lint.NodeTypeRuleError},
			},
			ErrorCount:   1,
			WarningCount: 1,
		},
		{Filename: "b.sql"},
	}
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	assert.Equal(t, ":memory:", store.Path())
	require.NoError(t, store.Close())
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Applying again is a no-op.
	require.NoError(t, store.Migrate())

	for _, table := range []string{"runs", "run_messages"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s", table)
		require.NoError(t, rows.Close())
	}
}

func TestSQLiteStore_RecordAndRead(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	first, err := store.RecordRun(ctx, sampleResults(), "rules=2")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 2, first.Files)
	assert.Equal(t, 1, first.Errors)
	assert.Equal(t, 1, first.Warnings)
	assert.Equal(t, 2, first.Problems())

	second, err := store.RecordRun(ctx, nil, "rules=0")
	require.NoError(t, err)

	t.Run("list newest first", func(t *testing.T) {
		runs, err := store.ListRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, second.ID, runs[0].ID)
		assert.Equal(t, first.ID, runs[1].ID)
		assert.Equal(t, "rules=2", runs[1].Config)
		assert.True(t, runs[1].StartedAt.Equal(first.StartedAt))
	})

	t.Run("list respects limit", func(t *testing.T) {
		runs, err := store.ListRuns(ctx, 1)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, second.ID, runs[0].ID)
	})

	t.Run("get run", func(t *testing.T) {
		run, err := store.GetRun(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, run.ID)
		assert.Equal(t, 1, run.Errors)
	})

	t.Run("messages in order", func(t *testing.T) {
		msgs, err := store.GetRunMessages(ctx, first.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "no-select-star", msgs[0].RuleID)
		assert.Equal(t, lint.SeverityWarning, msgs[0].Severity)
		assert.Equal(t, "a.sql", msgs[0].Filename)
		assert.Equal(t, "broken", msgs[1].RuleID)
		assert.Equal(t, lint.SeverityError, msgs[1].Severity)
		assert.Equal(t, lint.NodeTypeRuleError, msgs[1].NodeType)
	})

	t.Run("run without messages", func(t *testing.T) {
		msgs, err := store.GetRunMessages(ctx, second.ID)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("unknown run", func(t *testing.T) {
		_, err := store.GetRun(ctx, "missing")
		require.ErrorIs(t, err, ErrRunNotFound)
		_, err = store.GetRunMessages(ctx, "missing")
		require.ErrorIs(t, err, ErrRunNotFound)
	})
}

func TestSQLiteStore_NotOpen(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(nil)

	require.ErrorIs(t, store.Migrate(), ErrNotOpen)
	_, err := store.RecordRun(ctx, nil, "")
	require.ErrorIs(t, err, ErrNotOpen)
	_, err = store.ListRuns(ctx, 1)
	require.ErrorIs(t, err, ErrNotOpen)
	_, err = store.GetRun(ctx, "x")
	require.ErrorIs(t, err, ErrNotOpen)
	_, err = store.GetRunMessages(ctx, "x")
	require.ErrorIs(t, err, ErrNotOpen)
	_, err = store.GetMigrationVersion()
	require.ErrorIs(t, err, ErrNotOpen)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_RecordRunErrors(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		errMsg    string
	}{
		{
			name: "begin fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(assert.AnError)
			},
			errMsg: "failed to begin transaction",
		},
		{
			name: "run insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO runs").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			errMsg: "failed to create run",
		},
		{
			name: "message insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO runs").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("INSERT INTO run_messages").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			errMsg: "failed to record message",
		},
		{
			name: "commit fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO runs").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("INSERT INTO run_messages").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("INSERT INTO run_messages").WillReturnResult(sqlmock.NewResult(2, 1))
				mock.ExpectCommit().WillReturnError(assert.AnError)
			},
			errMsg: "failed to commit run",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setupMock(mock)

			store := NewWithDB(db, testutil.NewTestLogger(t))
			_, err = store.RecordRun(context.Background(), sampleResults(), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.ErrorIs(t, err, assert.AnError)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLiteStore_ReadErrors(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "started_at", "config", "files", "errors", "warnings", "infos"}

	t.Run("list query fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery("SELECT id, started_at").WillReturnError(assert.AnError)

		_, err = NewWithDB(db, nil).ListRuns(ctx, 5)
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to list runs")
	})

	t.Run("bad timestamp", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery("SELECT id, started_at").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("r1", "yesterday", "", 0, 0, 0, 0))

		_, err = NewWithDB(db, nil).ListRuns(ctx, 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid run timestamp "yesterday"`)
	})

	t.Run("bad stored severity", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery("SELECT id, started_at").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("r1", "2026-01-02T03:04:05.000000000Z", "", 1, 0, 0, 0))
		mock.ExpectQuery("SELECT run_id, filename").
			WillReturnRows(sqlmock.NewRows([]string{"run_id", "filename", "rule_id", "severity", "message", "line", "col", "node_type"}).
				AddRow("r1", "a.sql", "x", "fatal", "m", 1, 1, ""))

		_, err = NewWithDB(db, nil).GetRunMessages(ctx, "r1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid stored severity "fatal"`)
	})
}
