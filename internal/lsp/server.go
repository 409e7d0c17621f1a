package lsp

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/leapstack-labs/sqlint/internal/config"
	"github.com/leapstack-labs/sqlint/internal/loader"
	"github.com/leapstack-labs/sqlint/pkg/lint"
)

// ErrExitWithoutShutdown is returned by Run when the client sent exit
// before shutdown.
var ErrExitWithoutShutdown = errors.New("exit received before shutdown")

// Options configures a Server.
type Options struct {
	Linter   *lint.Linter
	Registry *lint.Registry
	// Input and Config are used until initialize finds a project config.
	Input   lint.ConfigInput
	Config  *lint.Config
	Logger  *slog.Logger
	Version string
}

// Server implements the Language Server Protocol for sqlint.
type Server struct {
	documents *DocumentStore

	linter   *lint.Linter
	registry *lint.Registry
	version  string

	cfgMu sync.RWMutex
	input lint.ConfigInput
	cfg   *lint.Config

	projectRoot string
	initialized bool

	// I/O
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex

	logger *slog.Logger

	shutdown bool
	exited   bool
}

// NewServer creates a new LSP server instance.
func NewServer(reader io.Reader, writer io.Writer, opts Options) *Server {
	s := &Server{
		documents: NewDocumentStore(),
		linter:    opts.Linter,
		registry:  opts.Registry,
		version:   opts.Version,
		input:     opts.Input,
		cfg:       opts.Config,
		reader:    bufio.NewReader(reader),
		writer:    writer,
		logger:    opts.Logger,
	}
	if s.linter == nil {
		s.linter = lint.NewLinter()
	}
	if s.registry == nil {
		s.registry = lint.DefaultRegistry()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Run processes JSON-RPC messages until exit or end of input.
func (s *Server) Run() error {
	s.logger.Info("sqlint LSP server starting")

	for !s.exited {
		msg, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Info("client disconnected")
				return nil
			}
			s.logger.Error("error reading message", "error", err)
			var synErr *json.SyntaxError
			if errors.As(err, &synErr) {
				s.sendResponse(nil, nil, &JSONRPCError{Code: CodeParseError, Message: err.Error()})
			}
			continue
		}

		if err := s.handleMessage(msg); err != nil {
			s.logger.Error("error handling message", "method", msg.Method, "error", err)
		}
	}

	if !s.shutdown {
		return ErrExitWithoutShutdown
	}
	return nil
}

// readMessage reads a JSON-RPC message from the input stream.
func (s *Server) readMessage() (*JSONRPCMessage, error) {
	var contentLength int
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break
		}

		if v, ok := strings.CutPrefix(line, "Content-Length: "); ok {
			contentLength, err = strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
		}
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, body); err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}

	var msg JSONRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}
	return &msg, nil
}

// sendResponse sends a JSON-RPC response.
func (s *Server) sendResponse(id *json.RawMessage, result any, rpcErr *JSONRPCError) {
	msg := JSONRPCMessage{JSONRPC: "2.0", ID: id}
	if rpcErr != nil {
		msg.Error = rpcErr
	} else {
		resultBytes, err := json.Marshal(result)
		if err != nil {
			s.logger.Error("error marshaling result", "error", err)
			return
		}
		msg.Result = resultBytes
	}
	s.writeMessage(&msg)
}

// sendNotification sends a JSON-RPC notification (no ID).
func (s *Server) sendNotification(method string, params any) {
	msg := JSONRPCMessage{JSONRPC: "2.0", Method: method}
	if params != nil {
		paramsBytes, err := json.Marshal(params)
		if err != nil {
			s.logger.Error("error marshaling params", "method", method, "error", err)
			return
		}
		msg.Params = paramsBytes
	}
	s.writeMessage(&msg)
}

// writeMessage writes a Content-Length framed message to the output stream.
func (s *Server) writeMessage(msg *JSONRPCMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	body, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("error marshaling message", "error", err)
		return
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	_, _ = io.WriteString(s.writer, header)
	_, _ = s.writer.Write(body)
}

// handleMessage dispatches a message to the appropriate handler.
func (s *Server) handleMessage(msg *JSONRPCMessage) error {
	s.logger.Debug("received", "method", msg.Method)

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		s.initialized = true
		return nil
	case "shutdown":
		s.shutdown = true
		s.sendResponse(msg.ID, nil, nil)
		return nil
	case "exit":
		s.exited = true
		return nil
	}

	if s.shutdown {
		if msg.ID != nil {
			s.sendResponse(msg.ID, nil, &JSONRPCError{Code: CodeInvalidRequest, Message: "server is shutting down"})
		}
		return nil
	}

	switch msg.Method {
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	default:
		if msg.ID != nil {
			s.sendResponse(msg.ID, nil, &JSONRPCError{
				Code:    CodeMethodNotFound,
				Message: "Method not found: " + msg.Method,
			})
		}
		return nil
	}
}

// --- Lifecycle handlers ---

func (s *Server) handleInitialize(msg *JSONRPCMessage) error {
	var params InitializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: CodeInvalidParams, Message: err.Error()})
		return err
	}

	switch {
	case params.RootURI != "":
		s.projectRoot = URIToPath(params.RootURI)
	case params.RootPath != "":
		s.projectRoot = params.RootPath
	}
	s.logger.Info("project root", "path", s.projectRoot)

	s.sendResponse(msg.ID, InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindFull,
				Save:      &SaveOptions{IncludeText: true},
			},
		},
		ServerInfo: &ServerInfo{Name: "sqlint", Version: s.version},
	}, nil)

	if err := s.loadProjectConfig(); err != nil {
		s.sendNotification("window/showMessage", &ShowMessageParams{
			Type:    MessageTypeError,
			Message: "sqlint: " + err.Error(),
		})
	}
	return nil
}

// loadProjectConfig replaces the configuration with the project's config
// file when one is found under the project root.
func (s *Server) loadProjectConfig() error {
	if s.projectRoot == "" || config.FindConfigFile(s.projectRoot) == "" {
		return nil
	}
	fc, err := config.Load(config.LoadOptions{Dir: s.projectRoot})
	if err != nil {
		return err
	}
	cfg, err := fc.Resolve(s.registry)
	if err != nil {
		return err
	}

	s.cfgMu.Lock()
	s.input = fc.Input()
	s.cfg = cfg
	s.cfgMu.Unlock()

	s.logger.Info("loaded project config", "path", fc.Path, "rules", len(cfg.Rules))
	return nil
}

// --- Document handlers ---

func (s *Server) handleDidOpen(msg *JSONRPCMessage) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	doc := params.TextDocument
	s.documents.Open(doc.URI, doc.Text, doc.Version)
	s.publishDiagnostics(doc.URI)
	return nil
}

func (s *Server) handleDidChange(msg *JSONRPCMessage) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}

	// Full sync: the last change holds the whole document.
	last := params.ContentChanges[len(params.ContentChanges)-1]
	if s.documents.Update(params.TextDocument.URI, last.Text, params.TextDocument.Version) {
		s.publishDiagnostics(params.TextDocument.URI)
	}
	return nil
}

func (s *Server) handleDidSave(msg *JSONRPCMessage) error {
	var params DidSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	uri := params.TextDocument.URI
	doc := s.documents.Get(uri)
	if doc == nil {
		return nil
	}
	if params.Text != nil && *params.Text != doc.Content {
		s.documents.Open(uri, *params.Text, doc.Version)
	}
	s.publishDiagnostics(uri)
	return nil
}

func (s *Server) handleDidClose(msg *JSONRPCMessage) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	s.documents.Close(params.TextDocument.URI)
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []Diagnostic{},
	})
	return nil
}

// publishDiagnostics lints an open document and publishes the result.
func (s *Server) publishDiagnostics(uri string) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}
	version := doc.Version
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: s.diagnose(doc),
	})
}

// diagnose lints doc with the project configuration and its frontmatter.
func (s *Server) diagnose(doc *Document) []Diagnostic {
	s.cfgMu.RLock()
	input, base := s.input, s.cfg
	s.cfgMu.RUnlock()

	if base == nil {
		return []Diagnostic{}
	}

	fm, err := loader.ExtractFrontmatter(doc.Content)
	if err != nil {
		return []Diagnostic{frontmatterDiagnostic(doc, err)}
	}
	if fm.Config.Skip {
		return []Diagnostic{}
	}

	path := URIToPath(doc.URI)
	file := &loader.File{Path: path, Content: doc.Content, Frontmatter: fm.Config}
	cfg, err := file.Config(s.registry, input, base)
	if err != nil {
		return []Diagnostic{frontmatterDiagnostic(doc, err)}
	}

	result := s.linter.Lint(doc.Content, cfg, path)
	return toDiagnostics(doc, result.Messages)
}
