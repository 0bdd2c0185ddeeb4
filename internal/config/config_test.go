package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyWorkspaceConfiguration(t *testing.T) {
	c := New()
	c.ApplyWorkspaceConfiguration(map[string]any{
		"parser_install_directories": []any{"/opt/grammars", "/usr/local/share/tree-sitter"},
		"parser_aliases":             map[string]any{"ts": "typescript"},
		"language_retrieval_patterns": []any{
			`file:///.+\.([a-z]+)\.scm$`,
		},
	})

	require.Equal(t, []string{"/opt/grammars", "/usr/local/share/tree-sitter"}, c.ParserInstallDirectories)
	require.Equal(t, "typescript", c.CanonicalName("ts"))
	require.Equal(t, "python", c.CanonicalName("python"))

	name, ok := c.LanguageNameForURI("file:///project/highlights.python.scm")
	require.True(t, ok)
	require.Equal(t, "python", name)
}

func TestApplyWorkspaceConfiguration_MalformedKeepsPrevious(t *testing.T) {
	c := New()
	c.ParserInstallDirectories = []string{"/keep/me"}

	c.ApplyWorkspaceConfiguration(map[string]any{
		"parser_install_directories": "not-a-list",
	})

	require.Equal(t, []string{"/keep/me"}, c.ParserInstallDirectories)
}
