// Command hostctl drives a renderer session from the host side of the bridge.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	natsadapter "github.com/samirrijal/fieldtrack/internal/adapters/nats"
	"github.com/samirrijal/fieldtrack/internal/host"
	"github.com/samirrijal/fieldtrack/internal/pkg/config"
	"github.com/samirrijal/fieldtrack/internal/pkg/logging"
)

// env is built once per invocation by the root command.
type env struct {
	cfg        *config.Config
	nc         *nats.Conn
	controller *host.Controller
}

var (
	sessionID string
	timeout   time.Duration
	current   env
)

var rootCmd = &cobra.Command{
	Use:   "hostctl",
	Short: "Drive a fieldtrack renderer session",
	Long: `
hostctl sends commands to a renderer session over NATS and prints the events
it answers with. The session id is the one the renderer logged at startup.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load("fieldtrack-hostctl")
		if err != nil {
			return err
		}
		slog.SetDefault(logging.New(os.Stderr, cfg.Log.Level, "auto"))

		if sessionID == "" {
			sessionID = cfg.Session.ID
		}
		if sessionID == "" {
			return fmt.Errorf("--session is required")
		}

		nc, err := natsadapter.Connect(cfg.NATS.URL)
		if err != nil {
			return err
		}
		conn := natsadapter.NewConn(nc, sessionID, natsadapter.HostSide)
		current = env{cfg: cfg, nc: nc, controller: host.New(conn, nil)}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if current.controller != nil {
			current.controller.Close()
		}
		if current.nc != nil {
			// Flush so fire-and-forget commands leave before exit.
			_ = current.nc.Flush()
			current.nc.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "", "renderer session id (default session.id from config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait for the renderer to answer")
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
