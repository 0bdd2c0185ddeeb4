// Package format implements the rule-directed query-source pretty printer:
// a side table (built from a tag-query, see rules.go) classifies each AST
// node into zero or more format.* rules, and a single pre-order traversal
// emits canonical text by applying them.
package format

import (
	"regexp"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Width is the column limit the conditional-newline rule breaks against.
const Width = 100

const indentStr = "  "

var (
	multiNewline = regexp.MustCompile(`\n+`)
	commentPat   = regexp.MustCompile(`^;+(\s*.*?)\s*$`)
)

// Formatter holds the output buffer for one Format call. Not safe for
// concurrent reuse; construct a new one per call.
type Formatter struct {
	lines []string
}

// New constructs a Formatter.
func New() *Formatter {
	return &Formatter{}
}

// Format renders root's children (root itself, the program node, is never
// rule-classified) into canonical text: the emitted lines joined by LF with
// a single trailing LF.
func (f *Formatter) Format(root sitter.Node, content []byte, rules RuleMap) string {
	f.lines = []string{""}
	f.emitChildren(root, rules, content, 0)
	return strings.Join(f.lines, "\n") + "\n"
}

// emitChildren walks parent's children left to right. Both the indentation
// level and the deferred-newline flag are local to this frame: an
// indent.begin inside a child subtree affects that child's later siblings,
// never the parent's.
func (f *Formatter) emitChildren(parent sitter.Node, rules RuleMap, content []byte, level int) {
	applyNewline := false
	count := int(parent.ChildCount())
	for i := 0; i < count; i++ {
		n := parent.Child(uint32(i))

		if applyNewline {
			applyNewline = false
			f.lines = append(f.lines, strings.Repeat(indentStr, level))
		}

		rs := rules.RulesFor(n)

		if rs.Has(RuleIgnore) {
			f.appendRaw(strings.Trim(normalizeNewlines(n.Content(content)), "\n"))
		} else if !rs.Has(RuleRemove) {
			if !rs.Has(RuleCancelPrepend) {
				switch {
				case rs.Has(RulePrependNewline):
					f.lines = append(f.lines, strings.Repeat(indentStr, level))
				case rs.Has(RulePrependSpace):
					value := rs.PrependSpaceValue()
					byteLength := int(n.EndByte() - n.StartByte())
					broaderByteLength := int(parent.EndByte() - n.StartByte())
					if !strings.Contains(value, ConditionalNewline) {
						f.append(" ")
					} else if byteLength+1+len(f.curLine()) > Width ||
						(strings.Contains(value, LookaheadNewline) && broaderByteLength+len(f.curLine()) > Width) {
						f.lines = append(f.lines, strings.Repeat(indentStr, level))
					} else {
						f.append(" ")
					}
				}
			}

			switch {
			case rs.Has(RuleCommentFix):
				if m := commentPat.FindStringSubmatch(n.Content(content)); m != nil {
					f.append(";" + m[1])
				}
			case rs.Has(RuleMakePound):
				f.append("#")
			case n.NamedChildCount() == 0 || n.Type() == "string":
				text := multiNewline.ReplaceAllString(
					strings.Trim(normalizeNewlines(n.Content(content)), "\n"), "\n")
				f.appendRaw(text)
			default:
				f.emitChildren(n, rules, content, level)
			}

			if rs.Has(RuleIndentBegin) {
				level++
				applyNewline = true
			} else if rs.Has(RuleIndentDedent) {
				f.dedentCurrentLine()
			}
		}

		switch {
		case rs.Has(RuleCancelAppend):
			applyNewline = false
		case rs.Has(RuleAppendNewline):
			applyNewline = true
		case rs.Has(RuleAppendSpace):
			f.append(" ")
		}
	}
}

func (f *Formatter) curLine() string {
	return f.lines[len(f.lines)-1]
}

func (f *Formatter) append(s string) {
	f.lines[len(f.lines)-1] += s
}

// appendRaw appends text that may itself contain embedded newlines: the
// first segment joins the current line, later segments become new output
// lines with no indentation of their own.
func (f *Formatter) appendRaw(s string) {
	segments := strings.Split(s, "\n")
	f.append(segments[0])
	f.lines = append(f.lines, segments[1:]...)
}

func (f *Formatter) dedentCurrentLine() {
	line := f.curLine()
	if strings.HasPrefix(line, indentStr) {
		f.lines[len(f.lines)-1] = line[len(indentStr):]
	}
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
