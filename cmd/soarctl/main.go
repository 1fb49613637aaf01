// Command soarctl browses and searches the soar library from the terminal
// and manages the local offline cache.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Trewaters/soar-sub011/client"
	"github.com/Trewaters/soar-sub011/client/session"
	"github.com/Trewaters/soar-sub011/internal/logger"
)

// app is the state shared by subcommands once configuration is loaded.
type app struct {
	cfg *Config
	log zerolog.Logger
	out io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	v := viper.New()
	a := &app{out: out}
	var configFile string

	root := &cobra.Command{
		Use:           "soarctl",
		Short:         "CLI client for the soar library service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.NewWriter(errOut, "soarctl")
			logger.SetLevel(cfg.Logging.Level)
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default ~/.config/soar/config.yaml)")
	pf.StringP("server", "s", "", "library service base URL")
	pf.String("cache-path", "", "offline cache file; empty string keeps it in memory")
	pf.StringP("user", "u", "", "user id for owner-filtered views")
	_ = v.BindPFlag("server.url", pf.Lookup("server"))
	_ = v.BindPFlag("cache.path", pf.Lookup("cache-path"))
	_ = v.BindPFlag("library.user_id", pf.Lookup("user"))

	root.AddCommand(
		newLibraryCmd(a),
		newSearchCmd(a),
		newCacheCmd(a),
		newHydrateCmd(a),
	)
	return root
}

func (a *app) client() (*client.Client, error) {
	opts := []client.Option{
		client.WithHTTPTimeout(time.Duration(a.cfg.Server.TimeoutSeconds) * time.Second),
		client.WithDebugLogging(a.cfg.Logging.DebugHTTP),
	}
	if a.cfg.Server.Retries > 0 {
		opts = append(opts, client.WithRetry(a.cfg.Server.Retries, 200*time.Millisecond))
	}
	if a.cfg.Server.APIKey != "" {
		opts = append(opts, client.WithAPIKey(a.cfg.Server.APIKey))
	}
	return client.New(a.cfg.Server.URL, opts...)
}

// session opens the offline session. fetcher may be nil for cache-only commands.
func (a *app) session(ctx context.Context, fetcher *client.Client) *session.Session {
	opts := session.Options{
		CachePath: a.cfg.Cache.Path,
		UserID:    a.cfg.Library.UserID,
		PageSize:  a.cfg.Library.PageSize,
		Log:       a.log,
	}
	if fetcher != nil {
		opts.Fetcher = fetcher
	}
	return session.Start(ctx, opts)
}
