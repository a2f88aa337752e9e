package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
)

func newHistoryCmd() *cobra.Command {
	var (
		days       int
		severity   string
		driftType  string
		unresolved bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded drift events",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var events []*drift.Event
			if severity != "" || driftType != "" || unresolved {
				events, err = a.events.List(cmd.Context(), drift.Filter{
					Severity:   severity,
					DriftType:  driftType,
					Unresolved: unresolved,
				})
			} else {
				since := time.Now().UTC().AddDate(0, 0, -days)
				events, err = a.events.QuerySince(cmd.Context(), since)
			}
			if err != nil {
				return err
			}

			if outputFormat != "table" {
				return printOutput(events)
			}

			if len(events) == 0 {
				fmt.Println("No drift events found.")
				return nil
			}

			table := NewTable("ID", "SEVERITY", "TYPE", "RESOURCE", "DETECTED", "RESOLVED")
			for _, ev := range events {
				resolved := "no"
				if ev.Resolved {
					resolved = "yes"
				}
				table.AddRow(
					ev.ID,
					formatSeverity(ev.Severity),
					ev.DriftType,
					ev.ResourceType+"/"+ev.ResourceName,
					ev.Timestamp.Format("2006-01-02 15:04:05"),
					resolved,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "look back this many days")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")
	cmd.Flags().StringVar(&driftType, "type", "", "filter by drift type")
	cmd.Flags().BoolVar(&unresolved, "unresolved", false, "only unresolved events")

	return cmd
}
