package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ticketdesk/internal/archive"
	"ticketdesk/internal/logging"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	var (
		tradingPartner string
		resolutionType string
		investigator   string
		jsonOutput     bool
	)

	cmd := &cobra.Command{
		Use:   "archive <ticketId> <customerId> <companyName>",
		Short: "Package a resolved ticket into the resolution tree",
		Long: "Create resolution/<customerId>_<company>/ with the standard subdirectories,\n" +
			"copy the intake artifacts, render TICKET_SUMMARY.md, write package metadata and\n" +
			"timeline, and append to the customer history file when one exists.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			resolution, err := archive.ParseResolutionType(resolutionType)
			if err != nil {
				return err
			}

			logger := ctx.logger()
			var opts []archive.Option
			if store, err := ctx.openLedger(); err == nil {
				defer store.Close()
				opts = append(opts, archive.WithRecorder(store))
			} else {
				logger.Warn("ledger unavailable; archive will not be recorded", logging.Error(err))
			}

			result, err := archive.New(cfg, logger, opts...).Package(cmd.Context(), archive.Request{
				TicketID:       args[0],
				CustomerID:     args[1],
				Company:        args[2],
				TradingPartner: tradingPartner,
				Resolution:     resolution,
				Investigator:   investigator,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Archived ticket %s to %s\n", args[0], result.Folder)
			if result.IntakeFolder != "" {
				fmt.Fprintf(out, "  Intake:   %s\n", result.IntakeFolder)
			}
			for _, path := range result.Archived {
				fmt.Fprintf(out, "  Archived: %s\n", path)
			}
			for _, warning := range result.Warnings {
				fmt.Fprintf(out, "  Warning:  %s\n", warning)
			}
			switch {
			case result.HistoryUpdated:
				fmt.Fprintf(out, "  History:  appended to %s\n", result.HistoryFile)
			case result.HistoryFile != "":
				fmt.Fprintf(out, "  History:  %s not found, skipped\n", result.HistoryFile)
			}
			fmt.Fprintf(out, "  Files:    %d\n", result.FileCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&tradingPartner, "trading-partner", "", "Trading partner (defaults to the intake value)")
	cmd.Flags().StringVar(&resolutionType, "resolution-type", string(archive.ResolutionFixed), "fixed, workaround, duplicate, escalated, or no-issue")
	cmd.Flags().StringVar(&investigator, "investigator", "", "Investigator name (defaults to archive.default_investigator)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
