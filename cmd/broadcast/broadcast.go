// Package broadcast implements the one-shot order fan-out command.
package broadcast

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vantazh/vantazh-go/internal/conf"
	"github.com/vantazh/vantazh-go/internal/logging"
	"github.com/vantazh/vantazh-go/internal/notify"
	"github.com/vantazh/vantazh-go/internal/runtime"
)

// Command returns the broadcast subcommand. It runs one fan-out for the
// given order ID and prints the outcome as JSON, for ops use and scripts.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast <order-id>",
		Short: "Fan one order out to all eligible carriers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid order ID %q: %w", args[0], err)
			}

			if err := conf.ValidateSettings(settings); err != nil {
				return err
			}

			engine, err := runtime.Build(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() {
				if err := engine.Close(); err != nil {
					logging.Error("engine shutdown failed", "error", err)
				}
				notify.CloseLogger()
			}()

			outcome, err := engine.Broadcaster.BroadcastNewOrder(cmd.Context(), uint(orderID))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(outcome)
		},
	}
}
