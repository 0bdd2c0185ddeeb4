package diagnostics

import (
	"testing"

	queryforest "github.com/alexaandru/go-sitter-forest/query"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyvision/queryls/internal/langinfo"
)

func queryLanguage() *sitter.Language {
	return sitter.NewLanguage(queryforest.GetLanguage())
}

func parse(t *testing.T, src string) (sitter.Node, []byte) {
	t.Helper()
	p := sitter.NewParser()
	require.NoError(t, p.SetLanguage(queryLanguage()))
	tree, err := p.ParseString(t.Context(), nil, []byte(src))
	require.NoError(t, err)
	return tree.RootNode(), []byte(src)
}

func TestSupertypeSubtypeMismatch(t *testing.T) {
	root, content := parse(t, `(expr/x) @c`)

	info := langinfo.New("mock")
	info.Symbols.Add(langinfo.SymbolInfo{Label: "expr", Named: true})
	info.Symbols.Add(langinfo.SymbolInfo{Label: "call_expr", Named: true})
	info.Symbols.Add(langinfo.SymbolInfo{Label: "x", Named: true})
	info.Supertypes[langinfo.SymbolInfo{Label: "expr", Named: true}] =
		langinfo.NewSet(langinfo.SymbolInfo{Label: "call_expr", Named: true})

	eng, err := New(queryLanguage())
	require.NoError(t, err)

	diags := eng.Run(root, content, info)

	var found bool
	for _, d := range diags {
		if d.Message == `Not a subtype of "expr"!` {
			found = true
			assert.Equal(t, SeverityError, d.Severity)
		}
	}
	assert.True(t, found, "expected a subtype-mismatch diagnostic, got %+v", diags)
}

func TestUndeclaredCapture(t *testing.T) {
	root, content := parse(t, `((identifier) @a (#eq? @b "x"))`)

	eng, err := New(queryLanguage())
	require.NoError(t, err)

	diags := eng.Run(root, content, nil)

	var found bool
	for _, d := range diags {
		if d.Message == "Undeclared capture name!" {
			found = true
		}
	}
	assert.True(t, found, "expected an undeclared-capture diagnostic, got %+v", diags)
}

func TestPredicateArityWarning(t *testing.T) {
	root, content := parse(t, `((x) @a (#eq? @a "b" "c"))`)

	eng, err := New(queryLanguage())
	require.NoError(t, err)

	diags := eng.Run(root, content, nil)

	var found bool
	for _, d := range diags {
		if d.Severity == SeverityWarning {
			found = true
		}
	}
	assert.True(t, found, "expected a predicate-arity warning, got %+v", diags)
}

func TestInvalidNodeType(t *testing.T) {
	root, content := parse(t, `(bogus) @x`)

	info := langinfo.New("mock")
	info.Symbols.Add(langinfo.SymbolInfo{Label: "real", Named: true})

	eng, err := New(queryLanguage())
	require.NoError(t, err)

	diags := eng.Run(root, content, info)
	require.Len(t, diags, 1)
	assert.Equal(t, "Invalid node type!", diags[0].Message)
	assert.Equal(t, SeverityError, diags[0].Severity)
}

func TestAnonymousNodeTypeUsesStringContent(t *testing.T) {
	root, content := parse(t, `"if" @kw`)

	info := langinfo.New("mock")
	info.Symbols.Add(langinfo.SymbolInfo{Label: "if", Named: false})

	eng, err := New(queryLanguage())
	require.NoError(t, err)

	diags := eng.Run(root, content, info)
	assert.Empty(t, diags)
}

func TestInvalidFieldType(t *testing.T) {
	root, content := parse(t, `(expr name: (x)) @c`)

	info := langinfo.New("mock")
	info.Symbols.Add(langinfo.SymbolInfo{Label: "expr", Named: true})
	info.Symbols.Add(langinfo.SymbolInfo{Label: "x", Named: true})
	info.Fields.Add("body")

	eng, err := New(queryLanguage())
	require.NoError(t, err)

	diags := eng.Run(root, content, info)
	require.Len(t, diags, 1)
	assert.Equal(t, "Invalid field type!", diags[0].Message)
}

func TestNotASupertype(t *testing.T) {
	root, content := parse(t, `(expr/x) @c`)

	info := langinfo.New("mock")
	info.Symbols.Add(langinfo.SymbolInfo{Label: "expr", Named: true})
	info.Symbols.Add(langinfo.SymbolInfo{Label: "x", Named: true})

	eng, err := New(queryLanguage())
	require.NoError(t, err)

	diags := eng.Run(root, content, info)
	require.Len(t, diags, 1)
	assert.Equal(t, "Not a supertype!", diags[0].Message)
}

func TestEmptySubtypeSetFallsBackToSymbolCheck(t *testing.T) {
	// A supertype with an unknown subtype membership (ABI < 15) only checks
	// that the subtype is a known symbol at all.
	root, content := parse(t, `(expr/x) @c`)

	info := langinfo.New("mock")
	info.Symbols.Add(langinfo.SymbolInfo{Label: "expr", Named: true})
	info.Supertypes[langinfo.SymbolInfo{Label: "expr", Named: true}] = langinfo.NewSet[langinfo.SymbolInfo]()

	eng, err := New(queryLanguage())
	require.NoError(t, err)

	diags := eng.Run(root, content, info)
	require.Len(t, diags, 1)
	assert.Equal(t, "Invalid node type!", diags[0].Message)
}

func TestDeclaredCaptureIsAccepted(t *testing.T) {
	root, content := parse(t, `((identifier) @a (#eq? @a "x"))`)

	eng, err := New(queryLanguage())
	require.NoError(t, err)

	for _, d := range eng.Run(root, content, nil) {
		assert.NotEqual(t, "Undeclared capture name!", d.Message)
	}
}

func TestFirstArgumentMustBeCapture(t *testing.T) {
	root, content := parse(t, `((x) @a (#eq? "lit" "x"))`)

	eng, err := New(queryLanguage())
	require.NoError(t, err)

	diags := eng.Run(root, content, nil)
	var found bool
	for _, d := range diags {
		if d.Message == "First argument must be a capture" {
			found = true
			assert.Equal(t, SeverityWarning, d.Severity)
		}
	}
	assert.True(t, found, "expected a first-argument warning, got %+v", diags)
}

func TestNoLanguageInfoSuppressesNodeTypeChecks(t *testing.T) {
	root, content := parse(t, `(totally_bogus_kind) @n`)

	eng, err := New(queryLanguage())
	require.NoError(t, err)

	diags := eng.Run(root, content, nil)
	for _, d := range diags {
		assert.NotEqual(t, "Invalid node type!", d.Message)
	}
}
