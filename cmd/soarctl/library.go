package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Trewaters/soar-sub011/client/loader"
	"github.com/Trewaters/soar-sub011/internal/model"
)

func newLibraryCmd(a *app) *cobra.Command {
	var (
		typ     string
		pages   int
		resume  bool
		asJSON  bool
		perPage int
	)
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Browse the library newest first",
		Long: "Browse the library newest first. Pages are fetched with the incremental\n" +
			"loader and cached locally; --continue resumes after the last cached page.",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseLibraryType(typ)
			if err != nil {
				return err
			}
			if pages < 1 {
				return fmt.Errorf("--pages must be >= 1")
			}
			if cmd.Flags().Changed("limit") {
				a.cfg.Library.PageSize = perPage
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			sess := a.session(ctx, c)
			defer func() { _ = sess.Close() }()

			ctrl, err := sess.Library(t)
			if err != nil {
				return err
			}
			start := 0
			if resume && len(ctrl.Snapshot().Items) > 0 {
				start = len(ctrl.Snapshot().Items)
				for i := 0; i < pages; i++ {
					issued, err := ctrl.LoadMore(ctx)
					if err != nil {
						return err
					}
					if !issued {
						break
					}
				}
			} else {
				if err := ctrl.Initialize(ctx, sess.Config(t)); err != nil {
					return err
				}
				for i := 1; i < pages; i++ {
					issued, err := ctrl.LoadMore(ctx)
					if err != nil {
						return err
					}
					if !issued {
						break
					}
				}
			}

			st := ctrl.Snapshot()
			if st.Stale {
				a.log.Warn().Msg("library changed while paging; run without --continue to refresh")
			}
			if asJSON {
				return printJSON(a.out, st.Items[start:])
			}
			return printItems(a.out, st, start)
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(model.TypeAll), "asanas, series, sequences or all")
	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "number of pages to fetch")
	cmd.Flags().IntVarP(&perPage, "limit", "l", 0, "page size (default library.page_size)")
	cmd.Flags().BoolVar(&resume, "continue", false, "continue after the last cached page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print items as JSON")
	return cmd
}

func printItems(out io.Writer, st loader.State, start int) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tCREATED\tTITLE\tID")
	for _, it := range st.Items[start:] {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.Kind, it.CreatedAt.Format(time.DateOnly), it.Title, it.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	more := "end of library"
	if st.HasMore {
		more = "more available (--continue)"
	}
	_, err := fmt.Fprintf(out, "%d items, %s\n", len(st.Items)-start, more)
	return err
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
