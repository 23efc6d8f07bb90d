package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ontomap/internal/axiom"
)

type listOptions struct {
	Next    string
	Content string
}

func newListCommand(opts *rootOptions) *cobra.Command {
	lo := &listOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Walk a list chain",
	}
	cmd.PersistentFlags().StringVar(&lo.Next, "next", axiom.SequenceHasNext, "successor property")
	cmd.PersistentFlags().StringVar(&lo.Content, "content", axiom.SequenceHasContent, "node content property of referenced lists")

	cmd.AddCommand(&cobra.Command{
		Use:   "simple <owner> <property>",
		Short: "Print the elements of a simple list in order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			axioms, err := opts.conn.LoadSimpleList(cmd.Context(), axiom.SimpleListDescriptor{
				Owner:        axiom.NamedResource(args[0]),
				ListProperty: axiom.NewObjectPropertyAssertion(axiom.NamedResource(args[1]), false),
				NextNode:     axiom.NewObjectPropertyAssertion(axiom.NamedResource(lo.Next), false),
				Context:      opts.Graph,
			})
			if err != nil {
				return err
			}
			printValues(cmd, axioms)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "referenced <owner> <property>",
		Short: "Print the node contents of a referenced list in order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			axioms, err := opts.conn.LoadReferencedList(cmd.Context(), axiom.ReferencedListDescriptor{
				Owner:        axiom.NamedResource(args[0]),
				ListProperty: axiom.NewObjectPropertyAssertion(axiom.NamedResource(args[1]), false),
				NextNode:     axiom.NewObjectPropertyAssertion(axiom.NamedResource(lo.Next), false),
				NodeContent:  axiom.NewObjectPropertyAssertion(axiom.NamedResource(lo.Content), false),
				Context:      opts.Graph,
			})
			if err != nil {
				return err
			}
			printValues(cmd, axioms)
			return nil
		},
	})
	return cmd
}

func printValues(cmd *cobra.Command, axioms []axiom.Axiom) {
	for i, ax := range axioms {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, ax.Value)
	}
}
