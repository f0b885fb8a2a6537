package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	natsadapter "github.com/samirrijal/fieldtrack/internal/adapters/nats"
	"github.com/samirrijal/fieldtrack/internal/bridge"
)

var watchReplay bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print renderer events as JSON lines until interrupted",
	Long: `
Follows the session's events. With --replay, events recorded in the session
stream are printed first, oldest first.
`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		if watchReplay {
			return natsadapter.Replay(ctx, current.nc, sessionID, func(data []byte) {
				if e, err := bridge.DecodeEvent(data); err == nil {
					printEvent(out, e)
				}
			})
		}

		c := current.controller
		events := c.Events(64)
		if err := c.Start(); err != nil {
			return err
		}
		return follow(ctx, out, events)
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchReplay, "replay", false, "replay recorded events before following")
	rootCmd.AddCommand(watchCmd)
}

func follow(ctx context.Context, out io.Writer, events <-chan bridge.Event) error {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return nil
			}
			printEvent(out, e)
		case <-ctx.Done():
			return nil
		}
	}
}

func printEvent(out io.Writer, e bridge.Event) {
	data, err := bridge.EncodeEvent(e)
	if err != nil {
		return
	}
	fmt.Fprintln(out, string(data))
}
