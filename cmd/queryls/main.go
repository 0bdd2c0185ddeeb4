// Command queryls is the Language Server Protocol entry point: it serves
// the tree-sitter query language over stdio.
package main

import (
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/shinyvision/queryls/internal/loader"
	"github.com/shinyvision/queryls/internal/lsp"
)

func main() {
	commonlog.Configure(1, nil)

	s, err := lsp.NewServer(loader.NewStaticLanguageLoader())
	if err != nil {
		fmt.Fprintf(os.Stderr, "queryls: %v\n", err)
		os.Exit(1)
	}

	if err := s.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "queryls: %v\n", err)
		os.Exit(1)
	}
}
