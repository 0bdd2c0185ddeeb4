// Package lsp wires this server's components — qtree's document store,
// metaquery-backed diagnostics and formatting, and the workspace
// configuration — into a github.com/tliron/glsp protocol.Handler.
package lsp

import (
	"context"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/shinyvision/queryls/internal/config"
	"github.com/shinyvision/queryls/internal/diagnostics"
	"github.com/shinyvision/queryls/internal/format"
	"github.com/shinyvision/queryls/internal/loader"
	"github.com/shinyvision/queryls/internal/metaquery"
	"github.com/shinyvision/queryls/internal/positionmap"
	"github.com/shinyvision/queryls/internal/qtree"
	"github.com/shinyvision/queryls/internal/utils"
)

const serverName = "queryls"

var log = commonlog.GetLoggerf("queryls.lsp")

// Server owns every piece of state this language server needs across the
// lifetime of one client connection.
type Server struct {
	config      *config.Config
	store       *qtree.DocumentStore
	loader      loader.LanguageLoader
	diagnostics *diagnostics.Engine
	formatRules *metaquery.Engine
	handler     protocol.Handler
}

// NewServer compiles the fixed query-DSL-facing engines once and wires the
// protocol.Handler. ldr resolves target-grammar names to vocabularies; pass
// loader.NewStaticLanguageLoader() for a deployment with no dynamic grammar
// loading configured.
func NewServer(ldr loader.LanguageLoader) (*Server, error) {
	lang := qtree.QueryLanguage()

	diagEngine, err := diagnostics.New(lang)
	if err != nil {
		return nil, fmt.Errorf("lsp: compile diagnostics engine: %w", err)
	}
	formatRules, err := format.CompileRules(lang)
	if err != nil {
		return nil, fmt.Errorf("lsp: compile format rules: %w", err)
	}

	s := &Server{
		config:      config.New(),
		store:       qtree.NewDocumentStore(),
		loader:      ldr,
		diagnostics: diagEngine,
		formatRules: formatRules,
	}

	s.handler = protocol.Handler{
		Initialize:                      s.initialize,
		Initialized:                     s.initialized,
		Shutdown:                        s.shutdown,
		SetTrace:                        s.setTrace,
		TextDocumentDidOpen:             s.didOpen,
		TextDocumentDidChange:           s.didChange,
		TextDocumentDidClose:            s.didClose,
		TextDocumentFormatting:          s.formatting,
		TextDocumentDefinition:          s.definition,
		TextDocumentReferences:          s.references,
		TextDocumentSemanticTokensFull:  s.semanticTokensFull,
		WorkspaceDidChangeConfiguration: s.didChangeConfiguration,
	}

	return s, nil
}

// Run serves the LSP protocol over stdio until the client disconnects.
func (s *Server) Run() error {
	srv := glspserver.NewServer(&s.handler, serverName, false)
	return srv.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if params.RootURI != nil {
		root := utils.UriToPath(string(*params.RootURI))
		if err := os.Chdir(root); err != nil {
			log.Errorf("failed to set root directory to %s: %v", root, err)
		}
	}
	if opts, ok := params.InitializationOptions.(map[string]any); ok {
		s.config.ApplyWorkspaceConfiguration(opts)
	}

	caps := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindIncremental
	caps.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	caps.DefinitionProvider = true
	caps.ReferencesProvider = true
	caps.DocumentFormattingProvider = true
	caps.SemanticTokensProvider = &protocol.SemanticTokensOptions{
		Legend: protocol.SemanticTokensLegend{
			TokenTypes:     SemanticTokenTypes,
			TokenModifiers: SemanticTokenModifiers,
		},
		Full: true,
	}

	return protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name: serverName,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	for _, uri := range s.store.URIs() {
		s.store.Close(uri)
	}
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) didChangeConfiguration(ctx *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	if settings, ok := params.Settings.(map[string]any); ok {
		s.config.ApplyWorkspaceConfiguration(settings)
	}
	return nil
}

func (s *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	doc, err := s.store.Open(context.Background(), uri, []byte(params.TextDocument.Text))
	if err != nil {
		log.Errorf("didOpen %s: %v", uri, err)
		return nil
	}
	s.resolveLanguage(uri, doc)
	s.publishDiagnostics(ctx, uri)
	return nil
}

func (s *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	changes := make([]qtree.Change, 0, len(params.ContentChanges))
	for _, raw := range params.ContentChanges {
		switch ch := raw.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			changes = append(changes, qtree.Change{NewText: ch.Text})
		case protocol.TextDocumentContentChangeEvent:
			changes = append(changes, qtree.Change{
				Range: &qtree.Range{
					Start: toPMPosition(ch.Range.Start),
					End:   toPMPosition(ch.Range.End),
				},
				NewText: ch.Text,
			})
		}
	}
	if err := s.store.Change(context.Background(), uri, changes); err != nil {
		log.Errorf("didChange %s: %v", uri, err)
		return nil
	}
	s.publishDiagnostics(ctx, uri)
	return nil
}

func (s *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	s.store.Close(uri)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// resolveLanguage looks up the target grammar for doc's URI via the
// configured retrieval patterns, loads its vocabulary, and attaches it to
// the document. A resolution failure leaves the document's language info
// nil, which every downstream consumer (diagnostics, semantic tokens)
// already treats as "no target-grammar checks," not an error.
func (s *Server) resolveLanguage(uri string, doc *qtree.Document) {
	name, ok := s.config.LanguageNameForURI(uri)
	if !ok || s.loader == nil {
		return
	}
	_, info, err := s.loader.ResolveLanguage(context.Background(), name, s.config.ParserInstallDirectories)
	if err != nil {
		log.Warningf("resolve language %q for %s: %v", name, uri, err)
		return
	}
	doc.SetLanguageInfo(info)
}

func (s *Server) publishDiagnostics(ctx *glsp.Context, uri string) {
	snap, ok := s.store.Snapshot(uri)
	if !ok || snap.Tree == nil || snap.Rope == nil {
		return
	}
	diags, err := s.diagnostics.RunLSP(snap.Tree.RootNode(), snap.Rope, snap.Lang)
	if err != nil {
		log.Errorf("diagnostics %s: %v", uri, err)
		return
	}

	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		sev := protocol.DiagnosticSeverity(d.Severity)
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: fromPMPosition(d.Range),
				End:   fromPMPosition(d.EndRange),
			},
			Severity: &sev,
			Message:  d.Message,
		})
	}

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: out,
	})
}

func (s *Server) formatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	uri := string(params.TextDocument.URI)
	snap, ok := s.store.Snapshot(uri)
	if !ok || snap.Tree == nil || snap.Rope == nil {
		return nil, nil
	}

	content := snap.Rope.Bytes()
	rules := format.BuildRuleMap(s.formatRules, snap.Tree.RootNode(), content)
	formatted := format.New().Format(snap.Tree.RootNode(), content, rules)

	edits, err := computeTextEdits(string(content), formatted)
	if err != nil {
		log.Errorf("formatting %s: %v", uri, err)
		return nil, nil
	}
	return edits, nil
}

func (s *Server) definition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := string(params.TextDocument.URI)
	snap, ok := s.store.Snapshot(uri)
	if !ok || snap.Tree == nil || snap.Rope == nil {
		return nil, nil
	}

	off, err := positionmap.LSPToByte(snap.Rope, toPMPosition(params.Position))
	if err != nil {
		return nil, nil
	}
	content := snap.Rope.Bytes()
	ref, ok := captureAt(snap.Tree.RootNode(), uint32(off))
	if !ok {
		return nil, nil
	}
	decl, ok := declarationFor(ref, content)
	if !ok {
		return nil, nil
	}
	loc, err := nodeLocation(snap, uri, decl)
	if err != nil {
		return nil, nil
	}
	return loc, nil
}

func (s *Server) references(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := string(params.TextDocument.URI)
	snap, ok := s.store.Snapshot(uri)
	if !ok || snap.Tree == nil || snap.Rope == nil {
		return nil, nil
	}

	off, err := positionmap.LSPToByte(snap.Rope, toPMPosition(params.Position))
	if err != nil {
		return nil, nil
	}
	content := snap.Rope.Bytes()
	at, ok := captureAt(snap.Tree.RootNode(), uint32(off))
	if !ok {
		return nil, nil
	}
	pattern := enclosingTopLevelPattern(at)
	name := at.Content(content)

	includeDecl := params.Context.IncludeDeclaration
	nodes := referencesFor(pattern, name, content, includeDecl)

	out := make([]protocol.Location, 0, len(nodes))
	for _, n := range nodes {
		loc, err := nodeLocation(snap, uri, n)
		if err != nil {
			continue
		}
		out = append(out, loc)
	}
	return out, nil
}

func (s *Server) semanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	uri := string(params.TextDocument.URI)
	snap, ok := s.store.Snapshot(uri)
	if !ok || snap.Tree == nil || snap.Rope == nil {
		return &protocol.SemanticTokens{Data: []protocol.UInteger{}}, nil
	}
	raw := encodeDelta(computeTokens(snap.Tree.RootNode(), snap.Rope.Bytes(), snap.Lang))
	data := make([]protocol.UInteger, len(raw))
	for i, v := range raw {
		data[i] = protocol.UInteger(v)
	}
	return &protocol.SemanticTokens{Data: data}, nil
}

func boolPtr(b bool) *bool { return &b }

func toPMPosition(p protocol.Position) positionmap.Position {
	return positionmap.Position{Line: uint32(p.Line), Character: uint32(p.Character)}
}

func fromPMPosition(p positionmap.Position) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(p.Line), Character: protocol.UInteger(p.Character)}
}
