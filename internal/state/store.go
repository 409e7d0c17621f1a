// Package state records lint runs in a SQLite history database.
// Every recorded run keeps its counters and the full list of messages so
// earlier runs can be listed and inspected later.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/sqlint/pkg/lint"
)

// Sentinel errors.
var (
	ErrNotOpen     = errors.New("database not opened")
	ErrRunNotFound = errors.New("run not found")
)

// Store persists lint runs.
type Store interface {
	// Open opens a connection to the database.
	Open(path string) error

	// Close closes the database connection.
	Close() error

	// Migrate applies pending schema migrations.
	Migrate() error

	// RecordRun stores results as a new run. cfgSummary is a short
	// description of the configuration used.
	RecordRun(ctx context.Context, results []lint.LintResult, cfgSummary string) (*Run, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// GetRun returns one run by ID.
	GetRun(ctx context.Context, id string) (*Run, error)

	// GetRunMessages returns the messages of a run in recording order.
	GetRunMessages(ctx context.Context, runID string) ([]StoredMessage, error)
}

// Run is one recorded lint run.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Config    string    `json:"config"`
	Files     int       `json:"files"`
	Errors    int       `json:"errors"`
	Warnings  int       `json:"warnings"`
	Infos     int       `json:"infos"`
}

// Problems returns the total number of messages of the run.
func (r Run) Problems() int {
	return r.Errors + r.Warnings + r.Infos
}

// StoredMessage is a lint message tied to its run and file.
type StoredMessage struct {
	RunID    string        `json:"runId"`
	Filename string        `json:"filename"`
	RuleID   string        `json:"ruleId"`
	Severity lint.Severity `json:"severity"`
	Message  string        `json:"message"`
	Line     int           `json:"line"`
	Column   int           `json:"column"`
	NodeType string        `json:"nodeType,omitempty"`
}
