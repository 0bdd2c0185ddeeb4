package lsp

import (
	"testing"

	queryforest "github.com/alexaandru/go-sitter-forest/query"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyvision/queryls/internal/langinfo"
)

func parseQuery(t *testing.T, src string) (sitter.Node, []byte) {
	t.Helper()
	p := sitter.NewParser()
	require.NoError(t, p.SetLanguage(sitter.NewLanguage(queryforest.GetLanguage())))
	tree, err := p.ParseString(t.Context(), nil, []byte(src))
	require.NoError(t, err)
	return tree.RootNode(), []byte(src)
}

func TestSemanticTokensErrorAndSupertypes(t *testing.T) {
	src := "(ERROR) @error (supertype) @node (supertype) @node\n\n(supertype) @node\n        "
	root, content := parseQuery(t, src)

	info := langinfo.New("mock")
	info.Supertypes[langinfo.SymbolInfo{Label: "supertype", Named: true}] = langinfo.NewSet[langinfo.SymbolInfo]()

	data := encodeDelta(computeTokens(root, content, info))

	assert.Equal(t, []uint32{
		0, 1, 5, 1, 1,
		0, 15, 9, 0, 0,
		0, 18, 9, 0, 0,
		2, 1, 9, 0, 0,
	}, data)
}

func TestSemanticTokensNoLanguageInfoStillFlagsErrors(t *testing.T) {
	root, content := parseQuery(t, "(ERROR) @error (foo) @f")

	data := encodeDelta(computeTokens(root, content, nil))

	assert.Equal(t, []uint32{0, 1, 5, 1, 1}, data)
}
