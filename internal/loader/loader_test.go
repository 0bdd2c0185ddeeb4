package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyvision/queryls/internal/langinfo"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "tree_sitter_php", NormalizeName("tree-sitter-php"))
	assert.Equal(t, "c_sharp", NormalizeName("c-sharp"))
}

func TestCandidatePaths(t *testing.T) {
	native, wasm := CandidatePaths("/grammars", "c-sharp")
	assert.NotEmpty(t, native)
	for _, p := range native {
		assert.Contains(t, p, "c_sharp")
	}
	assert.Contains(t, wasm, "tree-sitter-c-sharp.wasm")
}

func TestStaticLanguageLoaderResolves(t *testing.T) {
	l := NewStaticLanguageLoader()
	info := langinfo.New("php")
	info.Symbols.Add(langinfo.SymbolInfo{Label: "expr", Named: true})
	l.Register("php", info)

	handle, got, err := l.ResolveLanguage(context.Background(), "php", nil)
	require.NoError(t, err)
	assert.Equal(t, "php", handle.Name)
	assert.True(t, got.HasSymbol("expr", true))
}

func TestValidateWasmArtifactRejectsGarbage(t *testing.T) {
	err := ValidateWasmArtifact(context.Background(), []byte("not a wasm module"), "python")
	assert.Error(t, err)
}

func TestStaticLanguageLoaderMissingIsNonFatal(t *testing.T) {
	l := NewStaticLanguageLoader()
	_, info, err := l.ResolveLanguage(context.Background(), "nonexistent", nil)
	assert.Error(t, err)
	assert.Nil(t, info)
}
