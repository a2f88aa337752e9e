package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <event-id>",
		Short: "Mark a drift event as resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.events.MarkResolved(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Event %s marked as resolved.\n", args[0])
			return nil
		},
	}
}
