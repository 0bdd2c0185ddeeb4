// Package diagnostics interprets a parsed query-language document against
// an optional target-grammar vocabulary and produces LSP diagnostics. One
// fixed meta-query, written in the query DSL itself, captures every node of
// interest; each capture name selects a check below.
package diagnostics

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/shinyvision/queryls/internal/langinfo"
	"github.com/shinyvision/queryls/internal/metaquery"
	"github.com/shinyvision/queryls/internal/positionmap"
	"github.com/shinyvision/queryls/internal/rope"
)

// Severity mirrors the LSP DiagnosticSeverity scale (1 = Error, 2 = Warning).
type Severity int

const (
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
)

// Diagnostic is one reported problem, in byte-offset form; callers convert
// to LSP ranges via internal/positionmap, or use RunLSP below.
type Diagnostic struct {
	StartByte int
	EndByte   int
	Severity  Severity
	Message   string
}

const (
	kindCapture    = "capture"
	kindParameters = "parameters"
)

// diagnosticsQuerySource captures every construct the checks below care
// about: error/missing nodes, node-type names in named/anonymous/missing
// position, supertype identifiers, field names, captures used as predicate
// parameters, and malformed predicate argument lists.
const diagnosticsQuerySource = `
(ERROR) @e
(MISSING) @m
(anonymous_node (string (string_content) @a))
(named_node . name: (identifier) @n)
(named_node . supertype: (identifier) @supertype)
(missing_node name: (identifier) @n)
(missing_node name: (string (string_content) @a))
(field_definition name: (identifier) @f)
(parameters (capture) @c)
(predicate
  name: (identifier) @_name
  (parameters
    .
    [(string) (identifier)] @arg)
    (#any-of? @_name "eq" "not-eq" "any-eq" "any-not-eq"
      "match" "not-match" "any-match" "any-not-match"
      "any-of" "not-any-of"))
(predicate
  name: (identifier) @_name
    (#any-of? @_name "eq" "not-eq" "any-eq" "any-not-eq")
  (parameters
    (capture)
    _
    _+ @bad_eq))
(predicate
  name: (identifier) @_name
    (#any-of? @_name "match" "not-match" "any-match" "any-not-match")
  (parameters
    (capture)
    _
    _+ @bad_match))
`

// Engine compiles the diagnostics query once; the query-DSL grammar never
// changes, so one Engine is shared across documents.
type Engine struct {
	query *metaquery.Engine
}

// New compiles the diagnostics engine against the query-DSL grammar lang.
func New(lang *sitter.Language) (*Engine, error) {
	q, err := metaquery.Compile("diagnostics", lang, diagnosticsQuerySource)
	if err != nil {
		return nil, err
	}
	return &Engine{query: q}, nil
}

// Run produces the diagnostics for one document's current tree. info may be
// nil (or carry an empty symbol table), in which case node-type, supertype,
// and field checks are suppressed but the rest still run.
func (e *Engine) Run(root sitter.Node, content []byte, info *langinfo.LanguageInfo) []Diagnostic {
	hasLangInfo := info != nil && len(info.Symbols) > 0

	var out []Diagnostic
	for _, m := range e.query.Run(root, content) {
		for _, c := range m.Captures {
			out = append(out, classify(c, content, info, hasLangInfo)...)
		}
	}
	return out
}

func classify(c metaquery.Capture, content []byte, info *langinfo.LanguageInfo, hasLangInfo bool) []Diagnostic {
	switch c.Name {
	case "e":
		return []Diagnostic{diag(c.Node, SeverityError, "Invalid syntax!")}
	case "m":
		return []Diagnostic{diag(c.Node, SeverityError, `Missing "`+c.Node.Type()+`"!`)}
	case "n", "a":
		if !hasLangInfo {
			return nil
		}
		label := c.Node.Content(content)
		named := c.Name == "n"
		if !info.HasSymbol(label, named) {
			return []Diagnostic{diag(c.Node, SeverityError, "Invalid node type!")}
		}
	case "supertype":
		if !hasLangInfo {
			return nil
		}
		label := c.Node.Content(content)
		super := langinfo.SymbolInfo{Label: label, Named: true}
		subtypes, ok := info.Subtypes(super)
		if !ok {
			return []Diagnostic{diag(c.Node, SeverityError, "Not a supertype!")}
		}
		sub := c.Node.NextNamedSibling()
		if sub.IsNull() {
			return nil
		}
		subSym := langinfo.SymbolInfo{Label: sub.Content(content), Named: true}
		// Only check subtype membership when the set is non-empty, to
		// account for parsers generated with ABI < 15.
		if len(subtypes) > 0 {
			if !subtypes.Contains(subSym) {
				return []Diagnostic{diag(sub, SeverityError, `Not a subtype of "`+label+`"!`)}
			}
		} else if !info.Symbols.Contains(subSym) {
			return []Diagnostic{diag(sub, SeverityError, "Invalid node type!")}
		}
	case "f":
		if !hasLangInfo {
			return nil
		}
		if !info.HasField(c.Node.Content(content)) {
			return []Diagnostic{diag(c.Node, SeverityError, "Invalid field type!")}
		}
	case "c":
		if !captureIsDeclared(c.Node, content) {
			return []Diagnostic{diag(c.Node, SeverityError, "Undeclared capture name!")}
		}
	case "arg":
		return []Diagnostic{diag(c.Node, SeverityWarning, "First argument must be a capture")}
	case "bad_eq":
		return []Diagnostic{diag(c.Node, SeverityWarning,
			`"#eq?" family predicates cannot accept multiple arguments. Consider using "#any-of?".`)}
	case "bad_match":
		return []Diagnostic{diag(c.Node, SeverityWarning,
			`"#match?" family predicates cannot accept multiple arguments.`)}
	}
	return nil
}

// captureIsDeclared reports whether a capture used in a predicate's
// parameters has a declaring occurrence — a capture with the same text
// whose parent is not a parameters list — somewhere in its enclosing
// top-level pattern.
func captureIsDeclared(ref sitter.Node, content []byte) bool {
	pattern := topLevelAncestor(ref)
	name := ref.Content(content)
	declared := false
	walk(pattern, func(n sitter.Node) {
		if declared || n.Type() != kindCapture {
			return
		}
		if n.Parent().Type() == kindParameters {
			return
		}
		if n.Content(content) == name {
			declared = true
		}
	})
	return declared
}

// topLevelAncestor returns n's ancestor that is a direct child of the
// program root, or n itself when it already is one.
func topLevelAncestor(n sitter.Node) sitter.Node {
	cur := n
	for {
		parent := cur.Parent()
		if parent.IsNull() || parent.Parent().IsNull() {
			return cur
		}
		cur = parent
	}
}

func diag(n sitter.Node, sev Severity, msg string) Diagnostic {
	return Diagnostic{StartByte: int(n.StartByte()), EndByte: int(n.EndByte()), Severity: sev, Message: msg}
}

func walk(n sitter.Node, f func(sitter.Node)) {
	f(n)
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		walk(n.Child(uint32(i)), f)
	}
}

// LSPDiagnostic is a Diagnostic translated to LSP line/character coordinates.
type LSPDiagnostic struct {
	Range    positionmap.Position
	EndRange positionmap.Position
	Severity Severity
	Message  string
}

// RunLSP is Run followed by position-mapping every diagnostic's byte range
// through r, the convenience entry point LSP handlers call.
func (e *Engine) RunLSP(root sitter.Node, r *rope.Rope, info *langinfo.LanguageInfo) ([]LSPDiagnostic, error) {
	diags := e.Run(root, r.Bytes(), info)
	out := make([]LSPDiagnostic, 0, len(diags))
	for _, d := range diags {
		start, err := positionmap.ByteToLSP(r, d.StartByte)
		if err != nil {
			return nil, err
		}
		end, err := positionmap.ByteToLSP(r, d.EndByte)
		if err != nil {
			return nil, err
		}
		out = append(out, LSPDiagnostic{Range: start, EndRange: end, Severity: d.Severity, Message: d.Message})
	}
	return out, nil
}
