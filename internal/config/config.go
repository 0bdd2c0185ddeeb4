// Package config holds workspace configuration received through the LSP
// workspace-configuration mechanism: the grammar search path, alias table,
// and URI→grammar-name regex patterns. A failed parse of an incoming
// configuration value is logged at warning and the previous configuration
// is retained.
package config

import (
	"regexp"

	"github.com/tliron/commonlog"

	"github.com/shinyvision/queryls/internal/utils"
)

// Config is the server's live workspace configuration. Zero value is a
// usable empty configuration (no search directories, no aliases, no
// retrieval patterns).
type Config struct {
	// ParserInstallDirectories are the paths searched for grammar artifacts.
	ParserInstallDirectories []string
	// ParserAliases maps an alias to its canonical grammar name.
	ParserAliases map[string]string
	// LanguageRetrievalPatterns extract a grammar name from a document URI;
	// each pattern's first capture group is taken as the name.
	LanguageRetrievalPatterns []*regexp.Regexp
}

// New constructs an empty Config.
func New() *Config {
	return &Config{ParserAliases: make(map[string]string)}
}

// CanonicalName resolves name through the alias table, returning it
// unchanged if no alias applies.
func (c *Config) CanonicalName(name string) string {
	if c == nil {
		return name
	}
	if canon, ok := c.ParserAliases[name]; ok {
		return canon
	}
	return name
}

// LanguageNameForURI applies each retrieval pattern in order to uri and
// returns the first successful extraction's canonical name.
func (c *Config) LanguageNameForURI(uri string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, re := range c.LanguageRetrievalPatterns {
		m := re.FindStringSubmatch(uri)
		if len(m) < 2 {
			continue
		}
		return c.CanonicalName(m[1]), true
	}
	return "", false
}

// ApplyWorkspaceConfiguration merges an incoming
// `workspace/configuration`-shaped map into c. Unrecognized keys are
// ignored. A recognized key whose value has the wrong shape is logged at
// warning and c keeps its previous value for that key; an individual
// retrieval pattern that fails to compile is logged and left out of the
// new pattern list.
func (c *Config) ApplyWorkspaceConfiguration(m map[string]any) {
	logger := commonlog.GetLoggerf("queryls.config")

	if v, ok := m["parser_install_directories"]; ok {
		if dirs, ok := toStringSlice(v); ok {
			deduped := make([]string, 0, len(dirs))
			for _, d := range dirs {
				deduped = utils.AppendUnique(deduped, d)
			}
			c.ParserInstallDirectories = deduped
		} else {
			logger.Warningf("parser_install_directories: expected a list of strings, keeping previous value")
		}
	}

	if v, ok := m["parser_aliases"]; ok {
		if aliases, ok := toStringMap(v); ok {
			c.ParserAliases = aliases
		} else {
			logger.Warningf("parser_aliases: expected a string-to-string map, keeping previous value")
		}
	}

	if v, ok := m["language_retrieval_patterns"]; ok {
		if patterns, ok := toStringSlice(v); ok {
			compiled := make([]*regexp.Regexp, 0, len(patterns))
			for _, p := range patterns {
				re, err := regexp.Compile(p)
				if err != nil {
					logger.Warningf("language_retrieval_patterns: invalid regex %q: %v", p, err)
					continue
				}
				compiled = append(compiled, re)
			}
			c.LanguageRetrievalPatterns = compiled
		} else {
			logger.Warningf("language_retrieval_patterns: expected a list of strings, keeping previous value")
		}
	}
}

func toStringSlice(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func toStringMap(v any) (map[string]string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(m))
	for k, e := range m {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out[k] = s
	}
	return out, true
}
