// Package metaquery runs fixed meta-queries (written in the query DSL
// itself) over a document's own AST and yields captured nodes. It extends
// the query-matching pattern used elsewhere in this server
// (qc.Matches(query, root, content) + CaptureNameForID) with explicit
// predicate evaluation, since the custom predicates this server needs
// (#is-start-of-line?, #not-is-start-of-line?, #not-kind-eq?) aren't known
// to the tree-sitter binding's own built-in predicate filtering.
package metaquery

import (
	"fmt"
	"regexp"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

var (
	regexpCacheMu sync.Mutex
	regexpCache   = map[string]*regexp.Regexp{}
)

func compiledRegexp(pattern string) (*regexp.Regexp, error) {
	regexpCacheMu.Lock()
	defer regexpCacheMu.Unlock()
	if re, ok := regexpCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexpCache[pattern] = re
	return re, nil
}

// Engine compiles one fixed query string against the query-language grammar
// and yields filtered matches over a subtree.
type Engine struct {
	name  string
	query *sitter.Query
}

// Compile builds an Engine for the given (already-validated) query source,
// against the supplied grammar (always the query-DSL grammar in this
// server; Compile takes it as a parameter rather than hard-coding it so
// tests can exercise the engine against small fixture grammars).
func Compile(name string, lang *sitter.Language, source string) (*Engine, error) {
	q, err := sitter.NewQuery(lang, []byte(source))
	if err != nil {
		return nil, fmt.Errorf("metaquery: compile %s: %w", name, err)
	}
	return &Engine{name: name, query: q}, nil
}

// Capture is one named capture within a match.
type Capture struct {
	Name string
	Node sitter.Node
}

// Match is one pattern match: its captures, already filtered by predicate
// evaluation.
type Match struct {
	PatternIndex uint
	Captures     []Capture
}

// Run executes the compiled query over root and returns every match whose
// predicates (standard and custom) all evaluate true. A match containing a
// predicate this engine doesn't recognize is rejected outright.
func (e *Engine) Run(root sitter.Node, content []byte) []Match {
	qc := sitter.NewQueryCursor()
	it := qc.Matches(e.query, root, content)

	var out []Match
	for {
		m := it.Next()
		if m == nil {
			break
		}
		if !e.evaluatePredicates(m, content) {
			continue
		}
		match := Match{PatternIndex: m.PatternIndex}
		for _, c := range m.Captures {
			match.Captures = append(match.Captures, Capture{
				Name: e.query.CaptureNameForID(c.Index),
				Node: c.Node,
			})
		}
		out = append(out, match)
	}
	return out
}

// CaptureName exposes the query's capture name table, for callers that only
// have a capture index (e.g. from a raw *sitter.QueryMatch).
func (e *Engine) CaptureName(id uint32) string {
	return e.query.CaptureNameForID(id)
}

func (e *Engine) evaluatePredicates(m *sitter.QueryMatch, content []byte) bool {
	steps := e.query.PredicatesForPattern(uint32(m.PatternIndex))
	for _, predicate := range steps {
		if !e.evaluateOne(predicate, m, content) {
			return false
		}
	}
	return true
}

// evaluateOne evaluates a single predicate application (a run of
// QueryPredicateStep ending with TypeDone) against one match.
func (e *Engine) evaluateOne(steps []sitter.QueryPredicateStep, m *sitter.QueryMatch, content []byte) bool {
	if len(steps) == 0 {
		return true
	}
	if steps[0].Type != sitter.QueryPredicateStepTypeString {
		// A predicate must start with its operator name as a bare string.
		return false
	}
	op := e.query.StringValueForID(steps[0].ValueID)

	args := steps[1:]
	// drop the trailing "done" marker if present
	if n := len(args); n > 0 && args[n-1].Type == sitter.QueryPredicateStepTypeDone {
		args = args[:n-1]
	}

	nodeArgs := make([]sitter.Node, 0, len(args))
	strArgs := make([]string, 0, len(args))
	for _, step := range args {
		switch step.Type {
		case sitter.QueryPredicateStepTypeCapture:
			node := findCapture(m, step.ValueID)
			nodeArgs = append(nodeArgs, node)
			strArgs = append(strArgs, node.Content(content))
		case sitter.QueryPredicateStepTypeString:
			nodeArgs = append(nodeArgs, sitter.Node{})
			strArgs = append(strArgs, e.query.StringValueForID(step.ValueID))
		}
	}

	switch op {
	case "eq?", "not-eq?":
		if len(strArgs) < 2 {
			return true // shape errors are a Diagnostics concern, not a match-rejection concern
		}
		eq := strArgs[0] == strArgs[1]
		if op == "not-eq?" {
			return !eq
		}
		return eq
	case "match?", "not-match?":
		if len(strArgs) < 2 {
			return true
		}
		ok := regexpMatch(strArgs[1], strArgs[0])
		if op == "not-match?" {
			return !ok
		}
		return ok
	case "any-of?", "not-any-of?":
		if len(strArgs) < 1 {
			return true
		}
		found := false
		for _, candidate := range strArgs[1:] {
			if strArgs[0] == candidate {
				found = true
				break
			}
		}
		if op == "not-any-of?" {
			return !found
		}
		return found
	case "is-start-of-line?":
		return len(nodeArgs) > 0 && isStartOfLine(nodeArgs[0], content)
	case "not-is-start-of-line?":
		return len(nodeArgs) == 0 || !isStartOfLine(nodeArgs[0], content)
	case "not-kind-eq?":
		if len(nodeArgs) == 0 {
			return true
		}
		kind := nodeArgs[0].Type()
		for _, candidate := range strArgs[1:] {
			if kind == candidate {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func findCapture(m *sitter.QueryMatch, index uint32) sitter.Node {
	for _, c := range m.Captures {
		if c.Index == index {
			return c.Node
		}
	}
	return sitter.Node{}
}

// isStartOfLine reports whether node's start column equals the count of
// leading whitespace on its row, i.e. nothing but whitespace precedes it.
func isStartOfLine(node sitter.Node, content []byte) bool {
	start := int(node.StartByte())
	col := int(node.StartPoint().Column)
	rowStart := start - col
	if rowStart < 0 || rowStart > start || start > len(content) {
		return false
	}
	prefix := content[rowStart:start]
	return isAllBlank(prefix)
}

func isAllBlank(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' {
			return false
		}
	}
	return true
}

func regexpMatch(pattern, text string) bool {
	re, err := compiledRegexp(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
