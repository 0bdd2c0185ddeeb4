package lsp

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/shinyvision/queryls/internal/positionmap"
	"github.com/shinyvision/queryls/internal/qtree"
	"github.com/shinyvision/queryls/internal/texteditdiff"
)

// computeTextEdits diffs original against formatted and converts the result
// to the wire TextEdit shape; an unchanged document yields an empty slice
// rather than nil, since glsp serializes nil as JSON null and some clients
// mishandle a null formatting result.
func computeTextEdits(original, formatted string) ([]protocol.TextEdit, error) {
	if original == formatted {
		return []protocol.TextEdit{}, nil
	}
	diffs, err := texteditdiff.Compute(original, formatted)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.TextEdit, 0, len(diffs))
	for _, e := range diffs {
		out = append(out, protocol.TextEdit{
			Range: protocol.Range{
				Start: fromPMPosition(e.Start),
				End:   fromPMPosition(e.End),
			},
			NewText: e.NewText,
		})
	}
	return out, nil
}

// nodeLocation converts a syntax node's span within snap's document into an
// LSP Location.
func nodeLocation(snap qtree.Snapshot, uri string, n sitter.Node) (protocol.Location, error) {
	start, err := positionmap.ByteToLSP(snap.Rope, int(n.StartByte()))
	if err != nil {
		return protocol.Location{}, err
	}
	end, err := positionmap.ByteToLSP(snap.Rope, int(n.EndByte()))
	if err != nil {
		return protocol.Location{}, err
	}
	return protocol.Location{
		URI: protocol.DocumentUri(uri),
		Range: protocol.Range{
			Start: fromPMPosition(start),
			End:   fromPMPosition(end),
		},
	}, nil
}
