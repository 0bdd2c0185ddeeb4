package lsp

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

const (
	kindCapture    = "capture"
	kindParameters = "parameters"
	kindIdentifier = "identifier"
	kindNamedNode  = "named_node"
)

// captureAt returns the capture node whose span contains byte offset off, if
// any.
func captureAt(root sitter.Node, off uint32) (sitter.Node, bool) {
	var found sitter.Node
	ok := false
	walkLSP(root, func(n sitter.Node) {
		if n.Type() != kindCapture {
			return
		}
		if off >= uint32(n.StartByte()) && off < uint32(n.EndByte()) {
			found = n
			ok = true
		}
	})
	return found, ok
}

// isDeclaration reports whether a capture node is a declaring occurrence:
// one whose parent is not a predicate's parameters list.
func isDeclaration(n sitter.Node) bool {
	return n.Parent().Type() != kindParameters
}

// enclosingTopLevelPattern returns n's ancestor that is a direct child of
// the program root — the unit within which capture declarations and
// references are matched against each other.
func enclosingTopLevelPattern(n sitter.Node) sitter.Node {
	cur := n
	for {
		parent := cur.Parent()
		if parent.IsNull() || parent.Parent().IsNull() {
			return cur
		}
		cur = parent
	}
}

// declarationFor returns the declaring capture for the same name as ref,
// within ref's enclosing top-level pattern, if one exists.
func declarationFor(ref sitter.Node, content []byte) (sitter.Node, bool) {
	name := ref.Content(content)
	pattern := enclosingTopLevelPattern(ref)
	var decl sitter.Node
	found := false
	walkLSP(pattern, func(n sitter.Node) {
		if found || n.Type() != kindCapture {
			return
		}
		if n.Content(content) != name {
			return
		}
		if isDeclaration(n) {
			decl = n
			found = true
		}
	})
	return decl, found
}

// referencesFor returns every capture node with the given name within
// pattern, in document order. includeDeclaration controls whether a
// declaring occurrence (parent != parameters) is included.
func referencesFor(pattern sitter.Node, name string, content []byte, includeDeclaration bool) []sitter.Node {
	var out []sitter.Node
	walkLSP(pattern, func(n sitter.Node) {
		if n.Type() != kindCapture {
			return
		}
		if n.Content(content) != name {
			return
		}
		if !includeDeclaration && isDeclaration(n) {
			return
		}
		out = append(out, n)
	})
	return out
}

func walkLSP(n sitter.Node, f func(sitter.Node)) {
	f(n)
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		walkLSP(n.Child(uint32(i)), f)
	}
}
