package lsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlint/internal/testutil"
	"github.com/leapstack-labs/sqlint/pkg/lint"
	"github.com/leapstack-labs/sqlint/pkg/lint/rules"
)

// session accumulates framed client messages for a server run.
type session struct {
	t      *testing.T
	in     bytes.Buffer
	nextID int
}

func (s *session) send(method string, params any, request bool) {
	s.t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	if params != nil {
		msg["params"] = params
	}
	if request {
		s.nextID++
		msg["id"] = s.nextID
	}
	body, err := json.Marshal(msg)
	require.NoError(s.t, err)
	fmt.Fprintf(&s.in, "Content-Length: %d\r\n\r\n%s", len(body), body)
}

func (s *session) request(method string, params any) { s.send(method, params, true) }
func (s *session) notify(method string, params any)  { s.send(method, params, false) }

// run feeds the session to a new server and returns every message it wrote.
func (s *session) run(opts Options) ([]JSONRPCMessage, error) {
	s.t.Helper()
	var out bytes.Buffer
	srv := NewServer(&s.in, &out, opts)
	err := srv.Run()
	return readFrames(s.t, &out), err
}

func readFrames(t *testing.T, out *bytes.Buffer) []JSONRPCMessage {
	t.Helper()
	reader := &Server{reader: bufio.NewReader(out)}
	var msgs []JSONRPCMessage
	for out.Len() > 0 || reader.reader.Buffered() > 0 {
		msg, err := reader.readMessage()
		require.NoError(t, err)
		msgs = append(msgs, *msg)
	}
	return msgs
}

func newOptions(t *testing.T) Options {
	t.Helper()
	reg := lint.NewRegistry()
	require.NoError(t, rules.RegisterRecommended(reg))
	cfg := rules.RecommendedConfig()
	return Options{
		Linter:   lint.NewLinter(),
		Registry: reg,
		Input:    lint.DefaultConfigInput(),
		Config:   cfg,
		Logger:   testutil.NewTestLogger(t),
		Version:  "test",
	}
}

func diagnosticsFor(t *testing.T, msgs []JSONRPCMessage) []PublishDiagnosticsParams {
	t.Helper()
	var out []PublishDiagnosticsParams
	for _, m := range msgs {
		if m.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var p PublishDiagnosticsParams
		require.NoError(t, json.Unmarshal(m.Params, &p))
		out = append(out, p)
	}
	return out
}

func openParams(uri, text string, version int) DidOpenTextDocumentParams {
	return DidOpenTextDocumentParams{TextDocument: TextDocumentItem{
		URI: uri, LanguageID: "sql", Version: version, Text: text,
	}}
}

func TestServer_Initialize(t *testing.T) {
	s := &session{t: t}
	s.request("initialize", InitializeParams{RootURI: PathToURI(t.TempDir())})
	s.notify("initialized", map[string]any{})
	s.request("shutdown", nil)
	s.notify("exit", nil)

	msgs, err := s.run(newOptions(t))
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	var result InitializeResult
	require.NoError(t, json.Unmarshal(msgs[0].Result, &result))
	require.NotNil(t, result.Capabilities.TextDocumentSync)
	assert.True(t, result.Capabilities.TextDocumentSync.OpenClose)
	assert.Equal(t, TextDocumentSyncKindFull, result.Capabilities.TextDocumentSync.Change)
	assert.True(t, result.Capabilities.TextDocumentSync.Save.IncludeText)
	assert.Equal(t, "sqlint", result.ServerInfo.Name)
	assert.Equal(t, "test", result.ServerInfo.Version)

	assert.Equal(t, "2.0", msgs[1].JSONRPC)
	assert.Nil(t, msgs[1].Error)
}

func TestServer_ExitWithoutShutdown(t *testing.T) {
	s := &session{t: t}
	s.notify("exit", nil)

	_, err := s.run(newOptions(t))
	assert.ErrorIs(t, err, ErrExitWithoutShutdown)
}

func TestServer_EOF(t *testing.T) {
	s := &session{t: t}
	s.request("initialize", InitializeParams{})

	msgs, err := s.run(newOptions(t))
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestServer_UnknownMethod(t *testing.T) {
	s := &session{t: t}
	s.request("textDocument/hover", map[string]any{})
	s.notify("$/cancelRequest", map[string]any{"id": 1})

	msgs, err := s.run(newOptions(t))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, CodeMethodNotFound, msgs[0].Error.Code)
	assert.Contains(t, msgs[0].Error.Message, "textDocument/hover")
}

func TestServer_RequestAfterShutdown(t *testing.T) {
	s := &session{t: t}
	s.request("shutdown", nil)
	s.request("textDocument/hover", map[string]any{})

	msgs, err := s.run(newOptions(t))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.NotNil(t, msgs[1].Error)
	assert.Equal(t, CodeInvalidRequest, msgs[1].Error.Code)
}

func TestServer_DocumentLifecycle(t *testing.T) {
	uri := PathToURI(filepath.Join(t.TempDir(), "query.sql"))

	s := &session{t: t}
	s.notify("textDocument/didOpen", openParams(uri, "SELECT * FROM users", 1))
	s.notify("textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument: VersionedTextDocumentIdentifier{TextDocumentIdentifier{URI: uri}, 2},
		ContentChanges: []TextDocumentContentChangeEvent{
			{Text: "SELECT * FROM a"},
			{Text: "SELECT id FROM users"},
		},
	})
	// Stale change is ignored.
	s.notify("textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{TextDocumentIdentifier{URI: uri}, 1},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: "SELECT * FROM old"}},
	})
	text := "CREATE TABLE UserAccounts (id bigint)"
	s.notify("textDocument/didSave", DidSaveTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Text:         &text,
	})
	s.notify("textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})

	msgs, err := s.run(newOptions(t))
	require.NoError(t, err)

	pubs := diagnosticsFor(t, msgs)
	require.Len(t, pubs, 4)
	for _, p := range pubs {
		assert.Equal(t, uri, p.URI)
	}

	// didOpen
	require.Len(t, pubs[0].Diagnostics, 1)
	d := pubs[0].Diagnostics[0]
	assert.Equal(t, "no-select-star", d.Code)
	assert.Equal(t, DiagnosticSeverityWarning, d.Severity)
	assert.Equal(t, "sqlint", d.Source)
	assert.Equal(t, uint32(0), d.Range.Start.Line)
	require.NotNil(t, d.CodeDescription)
	assert.Equal(t, lint.DocURL("no-select-star"), d.CodeDescription.Href)
	require.NotNil(t, pubs[0].Version)
	assert.Equal(t, 1, *pubs[0].Version)

	// didChange applies the last full change.
	assert.Empty(t, pubs[1].Diagnostics)
	require.NotNil(t, pubs[1].Version)
	assert.Equal(t, 2, *pubs[1].Version)

	// didSave with text
	require.Len(t, pubs[2].Diagnostics, 1)
	assert.Equal(t, "table-naming-convention", pubs[2].Diagnostics[0].Code)

	// didClose clears diagnostics.
	assert.Empty(t, pubs[3].Diagnostics)
	assert.Nil(t, pubs[3].Version)
}

func TestServer_Frontmatter(t *testing.T) {
	dir := t.TempDir()
	disabled := PathToURI(filepath.Join(dir, "disabled.sql"))
	skipped := PathToURI(filepath.Join(dir, "skipped.sql"))
	broken := PathToURI(filepath.Join(dir, "broken.sql"))

	s := &session{t: t}
	s.notify("textDocument/didOpen", openParams(disabled,
		"/*---\nrules:\n  no-select-star: off\n---*/\nSELECT * FROM t", 1))
	s.notify("textDocument/didOpen", openParams(skipped,
		"/*---\nskip: true\n---*/\nSELECT * FROM t", 1))
	s.notify("textDocument/didOpen", openParams(broken,
		"/*---\nrules: [unclosed\n---*/\nSELECT * FROM t", 1))

	msgs, err := s.run(newOptions(t))
	require.NoError(t, err)

	pubs := diagnosticsFor(t, msgs)
	require.Len(t, pubs, 3)
	assert.Empty(t, pubs[0].Diagnostics)
	assert.Empty(t, pubs[1].Diagnostics)

	require.Len(t, pubs[2].Diagnostics, 1)
	d := pubs[2].Diagnostics[0]
	assert.Equal(t, "frontmatter", d.Code)
	assert.Equal(t, DiagnosticSeverityError, d.Severity)
	assert.Equal(t, uint32(1), d.Range.Start.Line)
	assert.Nil(t, d.CodeDescription)
}

func TestServer_ProjectConfig(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"sqlint.yaml": "rules:\n  no-select-star: error\n",
	})
	uri := PathToURI(filepath.Join(dir, "q.sql"))

	s := &session{t: t}
	s.request("initialize", InitializeParams{RootURI: PathToURI(dir)})
	s.notify("textDocument/didOpen", openParams(uri, "SELECT * FROM users", 1))

	msgs, err := s.run(newOptions(t))
	require.NoError(t, err)

	pubs := diagnosticsFor(t, msgs)
	require.Len(t, pubs, 1)
	require.Len(t, pubs[0].Diagnostics, 1)
	assert.Equal(t, DiagnosticSeverityError, pubs[0].Diagnostics[0].Severity)
}

func TestServer_BadProjectConfig(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"sqlint.yaml": "rules:\n  no-such-rule: error\n",
	})

	s := &session{t: t}
	s.request("initialize", InitializeParams{RootPath: dir})

	msgs, err := s.run(newOptions(t))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "window/showMessage", msgs[1].Method)

	var params ShowMessageParams
	require.NoError(t, json.Unmarshal(msgs[1].Params, &params))
	assert.Equal(t, MessageTypeError, params.Type)
	assert.Contains(t, params.Message, "no-such-rule")
}

func TestToDiagnostics(t *testing.T) {
	doc := newDocument("file:///q.sql", "SELECT *\nFROM users", 1)
	diags := toDiagnostics(doc, []lint.LintMessage{
		{RuleID: "no-select-star", Severity: lint.SeverityWarning, Message: "star", Line: 2, Column: 6},
		{RuleID: "broken", Severity: lint.SeverityError, Message: "Rule execution error: boom", Line: 1, Column: 1, NodeType: lint.NodeTypeRuleError},
		{RuleID: lint.ParseErrorRuleID, Severity: lint.SeverityError, Message: "bad", Line: 0, Column: 0},
		{RuleID: "custom", Severity: lint.SeverityInfo, Message: "note", Line: 1, Column: 1},
	})
	require.Len(t, diags, 4)

	assert.Equal(t, Range{Start: Position{1, 5}, End: Position{1, 10}}, diags[0].Range)
	assert.NotNil(t, diags[0].CodeDescription)
	assert.Nil(t, diags[1].CodeDescription)
	assert.Equal(t, DiagnosticSeverityError, diags[1].Severity)
	assert.Nil(t, diags[2].CodeDescription)
	assert.Equal(t, Position{}, diags[2].Range.Start)
	assert.Equal(t, DiagnosticSeverityInformation, diags[3].Severity)
}
