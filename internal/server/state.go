package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/matkrin/ignorels/internal/buffer"
	"github.com/matkrin/ignorels/internal/completion"
	"github.com/matkrin/ignorels/internal/document"
	"github.com/matkrin/ignorels/internal/lsp"
)

type Config struct {
	Completion             completion.Options
	DiagnosticDebounceTime time.Duration
}

type State struct {
	Documents         document.Store
	WorkspaceFolders  []lsp.WorkspaceFolder
	Encoding          buffer.Encoding
	Config            Config
	ShutdownRequested bool

	mu       sync.RWMutex
	resolver *completion.Resolver
}

func NewState(config Config) *State {
	return &State{
		Documents: document.NewMapStore(),
		Encoding:  buffer.UTF16,
		Config:    config,
		resolver:  completion.NewResolver(config.Completion, nil),
	}
}

func (s *State) OpenDocument(uri string, version int, text string) *document.Document {
	doc := document.New(uri, version, text, buffer.WithEncoding(s.Encoding))
	s.Documents.Insert(uri, doc)
	return doc
}

func (s *State) Resolver() *completion.Resolver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolver
}

// ApplySettings overrides the completion options set in settings. A nil
// field keeps the current value.
func (s *State) ApplySettings(settings *lsp.Settings) {
	if settings == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	opts := s.resolver.Options()
	if settings.StripAnchorMarkers != nil {
		opts.StripAnchorMarkers = *settings.StripAnchorMarkers
	}
	if settings.NormalizeBeforeSplit != nil {
		opts.NormalizeBeforeSplit = *settings.NormalizeBeforeSplit
	}
	s.resolver = completion.NewResolver(opts, nil)
	slog.Info("Completion options set",
		"stripAnchorMarkers", opts.StripAnchorMarkers,
		"normalizeBeforeSplit", opts.NormalizeBeforeSplit,
	)
}

// negotiateEncoding picks the first encoding the client offers that the
// buffer understands. Without an offer the protocol default is UTF-16.
func negotiateEncoding(capabilities lsp.ClientCapabilities) buffer.Encoding {
	if capabilities.General == nil {
		return buffer.UTF16
	}
	for _, kind := range capabilities.General.PositionEncodings {
		if enc, ok := buffer.ParseEncoding(kind); ok {
			return enc
		}
	}
	return buffer.UTF16
}
