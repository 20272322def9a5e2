package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/matkrin/ignorels/internal/buffer"
	"github.com/matkrin/ignorels/internal/document"
	"github.com/matkrin/ignorels/internal/lsp"
)

type queuedMessage struct {
	method   string
	contents []byte
}

// Server reads messages from a queue. Notifications are processed in arrival
// order on a single goroutine; requests that only read documents are answered
// on their own goroutines.
type Server struct {
	name         string
	version      string
	state        *State
	writer       io.Writer
	messageQueue chan queuedMessage
	wg           sync.WaitGroup
	requests     sync.WaitGroup

	mu               sync.Mutex
	diagnosticTimers map[string]*time.Timer
}

func NewServer(name, version string, state *State, writer io.Writer) *Server {
	s := &Server{
		name:             name,
		version:          version,
		state:            state,
		writer:           writer,
		messageQueue:     make(chan queuedMessage),
		diagnosticTimers: make(map[string]*time.Timer),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *Server) run() {
	defer s.wg.Done()
	for msg := range s.messageQueue {
		s.dispatchMessage(msg.method, msg.contents)
	}
}

func (s *Server) HandleMessage(method string, contents []byte) {
	s.messageQueue <- queuedMessage{method: method, contents: contents}
}

// Stop drains the queue, waits for in-flight requests and cancels pending
// diagnostics.
func (s *Server) Stop() {
	close(s.messageQueue)
	s.wg.Wait()
	s.requests.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for uri, timer := range s.diagnosticTimers {
		timer.Stop()
		delete(s.diagnosticTimers, uri)
	}
}

func (s *Server) dispatchMessage(method string, contents []byte) {
	slog.Info("Received message", "method", method)

	switch method {
	case "initialize":
		var request lsp.InitializeRequest
		if err := json.Unmarshal(contents, &request); err != nil {
			s.parseFailed(method, contents, err)
			return
		}

		if info := request.Params.ClientInfo; info != nil {
			slog.Info("Connected to client", "name", info.Name, "version", info.Version)
		}

		s.state.WorkspaceFolders = request.Params.WorkspaceFolders
		s.state.Encoding = negotiateEncoding(request.Params.Capabilities)
		s.state.ApplySettings(request.Params.InitializationOptions)
		slog.Info("Workspace folders set", "workspaceFolders", s.state.WorkspaceFolders)

		capabilities := lsp.ServerCapabilities{
			PositionEncoding: s.state.Encoding.String(),
			TextDocumentSync: lsp.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    lsp.TextDocumentSyncIncremental,
			},
			CompletionProvider: lsp.CompletionOptions{
				TriggerCharacters: []string{"/", "."},
				ResolveProvider:   false,
			},
			HoverProvider:      true,
			DefinitionProvider: true,
		}
		info := lsp.ServerInfo{
			Name:    s.name,
			Version: s.version,
		}

		msg := lsp.NewInitializeResponse(request.ID, &capabilities, &info)
		s.writeResponse(msg)

	case "initialized":
		slog.Info("Client initialized")

	case "shutdown":
		var request lsp.ShutdownRequest
		if err := json.Unmarshal(contents, &request); err != nil {
			s.parseFailed(method, contents, err)
			return
		}

		slog.Info("Received shutdown request")
		s.state.ShutdownRequested = true
		s.writeResponse(lsp.NewShutdownResponse(request.ID))

	case "exit":
		slog.Info("Exiting")
		if s.state.ShutdownRequested {
			os.Exit(0)
		} else {
			slog.Warn("Exiting without preceding shutdown request")
			os.Exit(1)
		}

	case "textDocument/didOpen":
		var request lsp.DidOpenTextDocumentNotification
		if err := json.Unmarshal(contents, &request); err != nil {
			s.parseFailed(method, contents, err)
			return
		}

		item := request.Params.TextDocument
		slog.Info("Opened document", "URI", item.URI)
		doc := s.state.OpenDocument(item.URI, item.Version, item.Text)
		if _, ok := doc.Origin(); !ok {
			s.reportError(method, errors.New("cannot derive a directory from "+item.URI))
		}
		s.pushDiagnostic(doc)

	case "textDocument/didChange":
		var request lsp.DidChangeTextDocumentNotification
		if err := json.Unmarshal(contents, &request); err != nil {
			s.parseFailed(method, contents, err)
			return
		}

		uri := request.Params.TextDocument.URI
		slog.Info("Changed document", "URI", uri)

		doc, err := document.Find(s.state.Documents, uri)
		if err != nil {
			s.reportError(method, err)
			return
		}
		edits := make([]buffer.Edit, 0, len(request.Params.ContentChanges))
		for _, change := range request.Params.ContentChanges {
			edits = append(edits, toEdit(change))
		}
		if err := doc.Apply(request.Params.TextDocument.Version, edits...); err != nil {
			s.reportError(method, err)
		}
		s.scheduleDiagnostics(doc)

	case "textDocument/didClose":
		var request lsp.DidCloseTextDocumentNotification
		if err := json.Unmarshal(contents, &request); err != nil {
			s.parseFailed(method, contents, err)
			return
		}

		uri := request.Params.TextDocument.URI
		slog.Info("Closed document", "URI", uri)
		s.state.Documents.Remove(uri)
		s.cancelDiagnostics(uri)
		s.writeResponse(lsp.NewDiagnosticNotification(uri, nil, []lsp.Diagnostic{}))

	case "textDocument/completion":
		var request lsp.CompletionRequest
		if err := json.Unmarshal(contents, &request); err != nil {
			s.parseFailed(method, contents, err)
			return
		}
		s.goRequest(method, func() (any, error) {
			return handleCompletion(&request, s.state)
		})

	case "textDocument/hover":
		var request lsp.HoverRequest
		if err := json.Unmarshal(contents, &request); err != nil {
			s.parseFailed(method, contents, err)
			return
		}
		s.goRequest(method, func() (any, error) {
			return handleHover(&request, s.state)
		})

	case "textDocument/definition":
		var request lsp.DefinitionRequest
		if err := json.Unmarshal(contents, &request); err != nil {
			s.parseFailed(method, contents, err)
			return
		}
		s.goRequest(method, func() (any, error) {
			return handleDefinition(&request, s.state)
		})

	case "workspace/didChangeConfiguration":
		var request lsp.DidChangeConfigurationNotification
		if err := json.Unmarshal(contents, &request); err != nil {
			s.parseFailed(method, contents, err)
			return
		}
		s.state.ApplySettings(request.Params.Settings.Ignorels)

	default:
		slog.Warn("Method not found", "method", method)
		s.replyError(method, contents, lsp.MethodNotFound, "method not found: "+method)
	}
}

// goRequest answers a request off the dispatch goroutine. The handler always
// returns a response; an error is additionally logged to the client.
func (s *Server) goRequest(method string, handle func() (any, error)) {
	s.requests.Add(1)
	go func() {
		defer s.requests.Done()
		response, err := handle()
		if err != nil {
			s.reportError(method, err)
		}
		s.writeResponse(response)
	}()
}

func (s *Server) parseFailed(method string, contents []byte, err error) {
	slog.Error("Could not parse request", "method", method, "err", err)
	s.replyError(method, contents, lsp.InvalidParams, err.Error())
}

// replyError answers a request with a JSON-RPC error. Notifications have no id
// and get no reply.
func (s *Server) replyError(method string, contents []byte, code int, message string) {
	var request struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(contents, &request); err != nil || len(request.ID) == 0 || string(request.ID) == "null" {
		slog.Debug("Ignoring notification", "method", method)
		return
	}
	s.writeResponse(lsp.NewErrorResponse(request.ID, code, message))
}

func toEdit(change lsp.TextDocumentContentChangeEvent) buffer.Edit {
	edit := buffer.Edit{Text: change.Text}
	if r := change.Range; r != nil {
		edit.Range = &buffer.Range{
			Start: buffer.Position{Line: r.Start.Line, Character: r.Start.Character},
			End:   buffer.Position{Line: r.End.Line, Character: r.End.Character},
		}
	}
	return edit
}

func (s *Server) reportError(method string, err error) {
	slog.Error("Request failed", "method", method, "err", err)
	s.writeResponse(lsp.NewLogMessageNotification(lsp.MessageError, err.Error()))
}

func (s *Server) scheduleDiagnostics(doc *document.Document) {
	debounceTime := s.state.Config.DiagnosticDebounceTime
	if debounceTime <= 0 {
		s.pushDiagnostic(doc)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.diagnosticTimers[doc.URI]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(debounceTime, func() {
		s.mu.Lock()
		if s.diagnosticTimers[doc.URI] == timer {
			delete(s.diagnosticTimers, doc.URI)
		}
		s.mu.Unlock()
		s.pushScheduledDiagnostic(doc)
	})
	s.diagnosticTimers[doc.URI] = timer
}

// pushScheduledDiagnostic publishes diagnostics for doc unless it was closed
// or reopened since they were scheduled.
func (s *Server) pushScheduledDiagnostic(doc *document.Document) {
	if current, ok := s.state.Documents.Get(doc.URI); !ok || current != doc {
		slog.Debug("Dropping diagnostics for closed document", "URI", doc.URI)
		return
	}
	s.pushDiagnostic(doc)
}

func (s *Server) cancelDiagnostics(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.diagnosticTimers[uri]; ok {
		timer.Stop()
		delete(s.diagnosticTimers, uri)
	}
}

func (s *Server) pushDiagnostic(doc *document.Document) {
	diagnostics := findDiagnostics(doc, s.state.Encoding)
	version := doc.Version()
	s.writeResponse(lsp.NewDiagnosticNotification(doc.URI, &version, diagnostics))
}

func (s *Server) writeResponse(msg any) {
	reply, err := lsp.EncodeMessage(msg)
	if err != nil {
		slog.Error("Could not encode message", "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writer.Write([]byte(reply)); err != nil {
		slog.Error("Could not write message", "err", err)
	}
}
