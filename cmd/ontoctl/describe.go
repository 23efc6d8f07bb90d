package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"ontomap/internal/axiom"
)

func newDescribeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <subject>",
		Short: "Print every statement of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := axiom.NewAxiomDescriptor(axiom.NamedResource(args[0]))
			d.Context = opts.Graph
			d.AddAssertion(axiom.AllProperties)
			axioms, err := opts.conn.Find(cmd.Context(), d)
			if err != nil {
				return err
			}
			lines := make([]string, 0, len(axioms))
			for _, ax := range axioms {
				lines = append(lines, ax.String())
			}
			sort.Strings(lines)
			for _, l := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
}

func newContainsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contains <subject> <class>",
		Short: "Report whether a subject is an instance of a class",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ax := axiom.New(
				axiom.NamedResource(args[0]),
				axiom.NewClassAssertion(false),
				axiom.ResourceValue(axiom.NamedResource(args[1])),
			)
			ok, err := opts.conn.Contains(cmd.Context(), ax, opts.Graph)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
}
