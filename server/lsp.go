package server

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/arghonaut/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "argh-lsp"

// LspServer provides editor support for Argh! source files: lint
// diagnostics, hover help for the instruction under the cursor and
// completion of the instruction alphabet.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("Argh! LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	return completionItems(), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return hoverAt(text, params.Position), nil
}

// completionItems lists every instruction of the alphabet.
func completionItems() []protocol.CompletionItem {
	kind := protocol.CompletionItemKindKeyword
	var items []protocol.CompletionItem
	for _, ins := range vm.AllInstructions() {
		info, _ := ins.Info()
		detail := info.Name
		items = append(items, protocol.CompletionItem{
			Label:         ins.Symbol(),
			Kind:          &kind,
			Detail:        &detail,
			Documentation: info.Summary,
		})
	}
	return items
}

// hoverAt describes the cell under the cursor.
func hoverAt(text string, pos protocol.Position) *protocol.Hover {
	r, ok := cellAt(text, pos)
	if !ok {
		return nil
	}

	var b strings.Builder
	code := int(r)
	if ins, ok := vm.Decode(code); ok {
		info, _ := ins.Info()
		fmt.Fprintf(&b, "**%s** `%s`\n\n%s", info.Name, ins.Symbol(), info.Summary)
		if info.Pops {
			b.WriteString("\n\nFails with an empty stack.")
		}
	} else {
		fmt.Fprintf(&b, "data `%s` (%d)", vm.ToPrintable(code, true), code)
	}
	if pos.Character >= vm.Width {
		b.WriteString("\n\nBeyond column 80; ignored when the program is loaded.")
	}

	start := pos
	end := protocol.Position{Line: pos.Line, Character: pos.Character + 1}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
		Range: &protocol.Range{Start: start, End: end},
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnosticsFor(text),
	})
}

// diagnosticsFor lints text and converts the issues into LSP diagnostics.
func diagnosticsFor(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	source := lspName
	for _, issue := range vm.Check(vm.ParseSource(text)) {
		severity := lspSeverity(issue.Severity)
		line := protocol.UInteger(issue.Line)
		col := protocol.UInteger(issue.Column)
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: col},
				End:   protocol.Position{Line: line, Character: col + 1},
			},
			Severity: &severity,
			Source:   &source,
			Message:  issue.Message,
		})
	}
	return diagnostics
}

func lspSeverity(s vm.Severity) protocol.DiagnosticSeverity {
	switch s {
	case vm.SeverityError:
		return protocol.DiagnosticSeverityError
	case vm.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	}
	return protocol.DiagnosticSeverityInformation
}

// --- Text extraction helpers ---

// cellAt returns the character at the cursor. Columns count runes, which
// matches LSP's UTF-16 offsets for the ASCII programs Argh! runs.
func cellAt(text string, pos protocol.Position) (rune, bool) {
	lines := vm.ParseSource(text)
	if int(pos.Line) >= len(lines) {
		return 0, false
	}
	col := int(pos.Character)
	i := 0
	for _, r := range lines[pos.Line] {
		if i == col {
			return r, true
		}
		i++
	}
	return 0, false
}

func boolPtr(b bool) *bool {
	return &b
}
