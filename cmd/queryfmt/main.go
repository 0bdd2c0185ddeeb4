// Command queryfmt is the standalone batch formatter: it rewrites every
// .scm file beneath the given directories to canonical form, or, with
// --check, reports differences as a unified diff and exits nonzero.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/shinyvision/queryls/internal/formatdriver"
)

func main() {
	cmd := &cli.Command{
		Name:      "queryfmt",
		Usage:     "Format tree-sitter query files",
		ArgsUsage: "[DIRECTORY...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Report formatting differences without rewriting any file",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			dirs := c.Args().Slice()
			if len(dirs) == 0 {
				fmt.Fprintln(os.Stderr, "No directories were specified to be formatted. No work was done.")
				return cli.Exit("", 1)
			}

			mode := formatdriver.ModeWrite
			if c.Bool("check") {
				mode = formatdriver.ModeCheck
			}

			code, _, err := formatdriver.Run(ctx, dirs, mode, os.Stderr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "queryfmt: %v\n", err)
				return cli.Exit("", 1)
			}
			if code != 0 {
				return cli.Exit("", code)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}
