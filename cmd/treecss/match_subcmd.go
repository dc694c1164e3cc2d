package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/treecss/treecss/internal/config"
	"github.com/treecss/treecss/internal/css/memtree"
	"github.com/treecss/treecss/internal/css/selector"
)

func newMatchCommand(state *cliState) *cobra.Command {
	var tree string
	var onlyMatched bool

	cmd := &cobra.Command{
		Use:   "match STYLESHEET DOCUMENT.html",
		Short: "Print the computed declarations of the elements of an HTML document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("tree") {
				state.config.Tree = tree
			}
			if err := state.config.Validate(); err != nil {
				return err
			}

			kind := selector.LogicalTree
			if state.config.Tree == config.VISUAL_TREE {
				kind = selector.VisualTree
			}

			path, err := stylesheetPath(args[0])
			if err != nil {
				return err
			}

			stylesheet, err := state.newCompiler().CompileFile(cmd.Context(), path)
			if err != nil {
				return err
			}
			printDiagnostics(state.errW, state.colorProfile, stylesheet.Diagnostics)

			document, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer document.Close()

			root, err := memtree.FromHTML(document, nil)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			root.Walk(kind, func(node *memtree.Node, depth int) {
				declarations := stylesheet.ComputeDeclarations(kind, node)
				if onlyMatched && len(declarations) == 0 {
					return
				}

				fmt.Fprintln(state.outW, node.Path(kind))
				for _, declaration := range declarations {
					fmt.Fprintf(state.outW, "  %s: %s\n", declaration.Property, declaration.Value)
				}
			})

			return nil
		},
	}

	cmd.Flags().StringVar(&tree, "tree", config.DEFAULT_TREE, "tree to match against: logical or visual")
	cmd.Flags().BoolVar(&onlyMatched, "matched", false, "only print the elements with at least one declaration")

	return cmd
}
