package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPruneCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete drift events older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			retention := days
			if retention <= 0 {
				retention = a.cfg.Database.RetentionDays
			}

			horizon := time.Now().UTC().AddDate(0, 0, -retention)
			removed, err := a.events.Prune(cmd.Context(), horizon)
			if err != nil {
				return err
			}
			fmt.Printf("Pruned %d event(s) older than %d days.\n", removed, retention)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "retention in days (default from config)")

	return cmd
}
