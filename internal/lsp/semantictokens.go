package lsp

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/shinyvision/queryls/internal/langinfo"
)

// SemanticTokenTypes and SemanticTokenModifiers are this server's fixed
// token legend: two token types, one modifier.
var (
	SemanticTokenTypes     = []string{"type", "error"}
	SemanticTokenModifiers = []string{"declaration"}
)

const (
	tokenTypeType  = uint32(0)
	tokenTypeError = uint32(1)

	modifierNone        = uint32(0)
	modifierDeclaration = uint32(1) << 0
)

// rawToken is one semantic token before delta-encoding, in document order.
type rawToken struct {
	line, char, length uint32
	tokenType          uint32
	modifiers          uint32
}

// computeTokens walks the identifiers inside named-node patterns and emits
// a token for the two cases this server highlights: the literal "ERROR"
// name (an error-pattern, flagged as an error declaration) and names that
// resolve to a supertype in the target grammar's vocabulary. Everything
// else carries no information a client would act on.
func computeTokens(root sitter.Node, content []byte, lang *langinfo.LanguageInfo) []rawToken {
	var out []rawToken
	walkLSP(root, func(n sitter.Node) {
		if n.Type() != kindIdentifier || n.Parent().Type() != kindNamedNode {
			return
		}
		text := string(content[n.StartByte():n.EndByte()])
		switch {
		case text == "ERROR":
			out = append(out, tokenFor(n, tokenTypeError, modifierDeclaration))
		case lang != nil && lang.Supertypes != nil:
			if _, ok := lang.Supertypes[langinfo.SymbolInfo{Label: text, Named: true}]; ok {
				out = append(out, tokenFor(n, tokenTypeType, modifierNone))
			}
		}
	})
	return out
}

func tokenFor(n sitter.Node, tokenType, modifiers uint32) rawToken {
	start := n.StartPoint()
	return rawToken{
		line:      uint32(start.Row),
		char:      uint32(start.Column),
		length:    uint32(n.EndByte() - n.StartByte()),
		tokenType: tokenType,
		modifiers: modifiers,
	}
}

// encodeDelta converts tokens, assumed already in document order, to the
// LSP semantic-tokens wire format: five uint32s per token
// (deltaLine, deltaStartChar, length, tokenType, tokenModifiers), with
// deltaStartChar relative to the previous token's start only when on the
// same line.
func encodeDelta(tokens []rawToken) []uint32 {
	data := make([]uint32, 0, len(tokens)*5)
	var prevLine, prevChar uint32
	for _, t := range tokens {
		deltaLine := t.line - prevLine
		deltaChar := t.char
		if deltaLine == 0 {
			deltaChar = t.char - prevChar
		}
		data = append(data, deltaLine, deltaChar, t.length, t.tokenType, t.modifiers)
		prevLine, prevChar = t.line, t.char
	}
	return data
}
