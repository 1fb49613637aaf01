package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Trewaters/soar-sub011/client"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		typ    string
		query  string
		viewer string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search titles; your items first, then alpha users, then everyone else",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" {
				return fmt.Errorf("query cannot be empty")
			}
			if viewer == "" {
				viewer = a.cfg.Library.UserID
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.Search(cmd.Context(), client.SearchRequest{Type: typ, Query: query, ViewerID: viewer, Limit: limit})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(a.out, res)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIER\tTYPE\tTITLE\tOWNER\tID")
			for _, g := range res.Groups {
				for _, it := range g.Items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", g.Tier, it.Kind, it.Title, it.OwnerID, it.ID)
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "%d matches\n", res.Total)
			return err
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "search text (required)")
	cmd.Flags().StringVarP(&typ, "type", "t", "all", "asanas, series, sequences or all")
	cmd.Flags().StringVar(&viewer, "viewer", "", "viewer id for the own tier (default library.user_id)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the response as JSON")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}
