package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ticketdesk/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		ticketID   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent intake attempts from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			intakes, err := store.RecentIntakes(cmd.Context(), limit, strings.TrimSpace(ticketID))
			if err != nil {
				return err
			}
			if jsonOutput {
				if intakes == nil {
					intakes = []ledger.Intake{}
				}
				return writeJSON(cmd, intakes)
			}
			out := cmd.OutOrStdout()
			if len(intakes) == 0 {
				fmt.Fprintln(out, "No intakes recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Finished", "Status", "Ticket", "Method", "Confidence", "Detail"},
				historyRows(intakes),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&ticketID, "ticket", "", "Only show intakes for this ticket id")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func historyRows(intakes []ledger.Intake) [][]string {
	rows := make([][]string, 0, len(intakes))
	for _, entry := range intakes {
		confidence := "-"
		if entry.Confidence != nil {
			confidence = fmt.Sprintf("%.2f", *entry.Confidence)
		}
		detail := filepath.Base(entry.SourcePath)
		if entry.Status != ledger.StatusSuccess {
			detail = entry.ErrorKind
			if entry.ErrorMessage != "" {
				detail = strings.TrimSpace(detail + " " + entry.ErrorMessage)
			}
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", entry.ID),
			entry.FinishedAt.Local().Format("2006-01-02 15:04"),
			string(entry.Status),
			orDash(entry.TicketID),
			orDash(entry.ExtractionMethod),
			confidence,
			detail,
		})
	}
	return rows
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
