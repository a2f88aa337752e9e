package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
)

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Run a single detection cycle",
		Long: `Runs every enabled detector once, classifies and stores the findings,
and dispatches alerts for high and critical events.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := a.manager().Run(cmd.Context())
			if err != nil {
				// A persistence failure still yields the detected events;
				// report both.
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}

			if outputFormat != "table" {
				return printOutput(events)
			}

			if len(events) == 0 {
				fmt.Println("No drift detected.")
				return nil
			}

			renderEvents(events)
			fmt.Printf("\n%d drift event(s) detected.\n", len(events))
			return nil
		},
	}
}

func renderEvents(events []*drift.Event) {
	table := NewTable("SEVERITY", "TYPE", "RESOURCE", "DETECTED", "DIFF")
	for _, ev := range events {
		table.AddRow(
			formatSeverity(ev.Severity),
			ev.DriftType,
			ev.ResourceType+"/"+ev.ResourceName,
			ev.Timestamp.Format("2006-01-02 15:04:05"),
			truncate(firstLine(ev.Diff), 60),
		)
	}
	table.Render()
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
