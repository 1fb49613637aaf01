package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Trewaters/soar-sub011/client/offline"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the offline cache",
	}

	var maxAge time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete cache entries older than --max-age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("max-age") {
				maxAge = a.cfg.Cache.MaxAge
			}
			sess := a.session(cmd.Context(), nil)
			defer func() { _ = sess.Close() }()
			n, err := sess.Cache().PurgeOlderThan(maxAge)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "purged %d entries older than %s\n", n, maxAge)
			return err
		},
	}
	purge.Flags().DurationVar(&maxAge, "max-age", 0, "maximum entry age (default cache.max_age)")

	keys := &cobra.Command{
		Use:   "keys",
		Short: "List stored keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := a.session(cmd.Context(), nil)
			defer func() { _ = sess.Close() }()
			ks, err := sess.Store().Keys()
			if err != nil {
				return err
			}
			for _, k := range ks {
				if _, err := fmt.Fprintln(a.out, k); err != nil {
					return err
				}
			}
			return nil
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored key",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := a.session(cmd.Context(), nil)
			if err := sess.Store().ClearAll(); err != nil {
				_ = sess.Close()
				return err
			}
			// Close would write the hydrated state back; discard it first.
			sess.UpdateState(func(st *offline.AppState) { *st = offline.AppState{} })
			if err := sess.Close(); err != nil {
				return err
			}
			_, err := fmt.Fprintln(a.out, "cache cleared")
			return err
		},
	}

	cmd.AddCommand(purge, keys, clear)
	return cmd
}
