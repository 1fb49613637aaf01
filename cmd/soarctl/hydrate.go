package main

import (
	"github.com/spf13/cobra"
)

func newHydrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hydrate",
		Short: "Print the app state recovered from the offline store",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := a.session(cmd.Context(), nil)
			defer func() { _ = sess.Close() }()
			return printJSON(a.out, sess.State())
		},
	}
}
