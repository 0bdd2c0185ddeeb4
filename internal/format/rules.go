package format

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/shinyvision/queryls/internal/metaquery"
)

// Rule is one formatting directive a node can carry.
type Rule string

const (
	RuleIgnore         Rule = "ignore"
	RuleRemove         Rule = "remove"
	RuleCancelPrepend  Rule = "cancel-prepend"
	RuleCancelAppend   Rule = "cancel-append"
	RulePrependNewline Rule = "prepend-newline"
	RulePrependSpace   Rule = "prepend-space"
	RuleAppendNewline  Rule = "append-newline"
	RuleAppendSpace    Rule = "append-space"
	RuleIndentBegin    Rule = "indent.begin"
	RuleIndentDedent   Rule = "indent.dedent"
	RuleCommentFix     Rule = "comment-fix"
	RuleMakePound      Rule = "make-pound"
)

// ConditionalNewline and LookaheadNewline are the two recognized values of a
// prepend-space rule. A lookahead-newline rule is also conditional: the
// break decision additionally considers the byte length remaining until the
// enclosing parent's end.
const (
	ConditionalNewline = "conditional-newline"
	LookaheadNewline   = "lookahead-newline"
)

// RuleSet is the set of rules, plus prepend-space's value, attached to a
// single node.
type RuleSet struct {
	rules       map[Rule]bool
	prependSpan string
}

// Has reports whether r is set.
func (rs RuleSet) Has(r Rule) bool { return rs.rules[r] }

// PrependSpaceValue returns the prepend-space rule's secondary value, or ""
// for a plain (unconditional) prepend-space.
func (rs RuleSet) PrependSpaceValue() string { return rs.prependSpan }

// RuleMap answers which rules apply to a given node.
type RuleMap interface {
	RulesFor(n sitter.Node) RuleSet
}

type nodeKey struct {
	start, end int
	kind       string
}

func keyOf(n sitter.Node) nodeKey {
	return nodeKey{start: int(n.StartByte()), end: int(n.EndByte()), kind: n.Type()}
}

// tagRuleMap implements RuleMap by running the tag-query once per tree and
// indexing its captures by node identity (start byte, end byte, kind — the
// binding's Node carries no stable numeric ID, so this triple serves as the
// lookup key for a single Format pass).
type tagRuleMap struct {
	entries map[nodeKey]RuleSet
}

func (m *tagRuleMap) RulesFor(n sitter.Node) RuleSet {
	if rs, ok := m.entries[keyOf(n)]; ok {
		return rs
	}
	return RuleSet{}
}

// tagQuerySource classifies nodes of the query-DSL grammar into format.*
// rules. Helper captures prefixed with "_" feed predicates and never become
// rules themselves.
const tagQuerySource = `
; Comments are re-emitted with a normalized leading ";".
(comment) @format.comment-fix @format.append-newline

; Each top-level pattern starts on its own line.
(program
  (_) @format.append-newline)

; A comment written on the same line as the preceding pattern stays there.
(program
  (_) @format.cancel-append
  .
  (comment) @format.prepend-space
  (#not-is-start-of-line? @format.prepend-space))

; A pattern preceded by a format-ignore comment is reproduced verbatim.
(program
  (comment) @_directive
  .
  (_) @format.ignore
  (#match? @_directive "format-ignore"))

; A named node with structural children indents them, one per line. The
; first child rides the deferred newline the indent itself produces.
(named_node
  name: _ @format.indent.begin
  [(named_node) (anonymous_node) (field_definition) (negated_field) (list) (grouping) (predicate) (missing_node) (comment)])
(named_node
  [(named_node) (anonymous_node) (field_definition) (negated_field) (list) (grouping) (predicate) (missing_node) (comment)] @format.prepend-newline)
(named_node
  name: _
  .
  [(named_node) (anonymous_node) (field_definition) (negated_field) (list) (grouping) (predicate) (missing_node) (comment)] @format.cancel-prepend)

; Anchors hug the elements they constrain: space on both sides, and the
; following element stays on the anchor's line.
(anchor) @format.prepend-space @format.append-space
((anchor)
  .
  (_) @format.cancel-prepend)

(missing_node
  "MISSING" @format.append-space)

; Field values follow their name on the same line.
(field_definition
  ":" @format.append-space)

; Alternation entries pack left to right, breaking when the line fills up.
(list
  [(named_node) (anonymous_node) (string) (comment)] @format.prepend-space.conditional-newline)
(list
  "["
  .
  (_) @format.cancel-prepend)

; Grouped sequences pack the same way, breaking early when the rest of the
; group cannot fit either.
(grouping
  [(named_node) (anonymous_node) (field_definition) (negated_field) (list) (grouping) (predicate) (missing_node) (comment)] @format.prepend-space.lookahead-newline)
(grouping
  "("
  .
  (_) @format.cancel-prepend)

(capture) @format.prepend-space

(predicate
  "#" @format.make-pound)
(parameters
  (_) @format.prepend-space)
`

// CompileRules compiles the tag query against lang.
func CompileRules(lang *sitter.Language) (*metaquery.Engine, error) {
	return metaquery.Compile("format-tags", lang, tagQuerySource)
}

// BuildRuleMap runs the compiled tag query over root and returns a RuleMap
// for a single Format call.
func BuildRuleMap(engine *metaquery.Engine, root sitter.Node, content []byte) RuleMap {
	entries := make(map[nodeKey]RuleSet)
	for _, m := range engine.Run(root, content) {
		for _, c := range m.Captures {
			name, ok := strings.CutPrefix(c.Name, "format.")
			if !ok {
				continue
			}
			value := ""
			if rest, ok := strings.CutSuffix(name, "."+ConditionalNewline); ok {
				name, value = rest, ConditionalNewline
			} else if rest, ok := strings.CutSuffix(name, "."+LookaheadNewline); ok {
				name, value = rest, ConditionalNewline+" "+LookaheadNewline
			}
			rule := Rule(name)
			key := keyOf(c.Node)
			rs, ok := entries[key]
			if !ok {
				rs = RuleSet{rules: make(map[Rule]bool)}
			}
			rs.rules[rule] = true
			if rule == RulePrependSpace && value != "" {
				rs.prependSpan = value
			}
			entries[key] = rs
		}
	}
	return &tagRuleMap{entries: entries}
}
