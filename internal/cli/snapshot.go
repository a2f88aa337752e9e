package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Show the most recent infrastructure snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.snapshots.LatestSnapshot(cmd.Context())
			if err != nil {
				return err
			}

			if outputFormat != "table" {
				return printOutput(snap)
			}

			fmt.Printf("Taken:              %s\n", snap.Timestamp.Format("2006-01-02 15:04:05 MST"))
			fmt.Printf("Resource count:     %d\n", snap.ResourceCount)
			fmt.Printf("State hash:         %s\n", snap.StateHash)
			fmt.Printf("Configuration hash: %s\n", snap.ConfigurationHash)
			return nil
		},
	}
}
