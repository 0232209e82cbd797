package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ticketdesk/internal/archive"
	"ticketdesk/internal/config"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "verify <resolution-folder>",
		Short: "Check a resolution package for missing structure and artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve folder: %w", err)
			}
			report, err := archive.Verify(folder)
			if err != nil {
				return err
			}
			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printVerifyReport(cmd, report)
			}
			if !report.Passed() {
				return errReported
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printVerifyReport(cmd *cobra.Command, report archive.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Verifying %s\n", report.Folder)
	if report.TicketID != "" {
		fmt.Fprintf(out, "Ticket: %s\n", report.TicketID)
	}
	if report.Confidence != nil {
		fmt.Fprintf(out, "Intake confidence: %.2f\n", *report.Confidence)
	}

	if len(report.Issues) > 0 {
		rows := make([][]string, 0, len(report.Issues))
		for _, finding := range report.Issues {
			rows = append(rows, []string{finding.Kind, finding.Message})
		}
		fmt.Fprintf(out, "\nIssues (%d)\n", len(report.Issues))
		fmt.Fprintln(out, renderTable([]string{"Kind", "Issue"}, rows, nil))
	}
	if len(report.Warnings) > 0 {
		rows := make([][]string, 0, len(report.Warnings))
		for _, finding := range report.Warnings {
			rows = append(rows, []string{finding.Message})
		}
		fmt.Fprintf(out, "\nWarnings (%d)\n", len(report.Warnings))
		fmt.Fprintln(out, renderTable([]string{"Warning"}, rows, nil))
	}
	if len(report.Recommendations) > 0 {
		fmt.Fprintln(out, "\nRecommendations")
		for i, rec := range report.Recommendations {
			fmt.Fprintf(out, "  %d. %s\n", i+1, rec)
		}
	}

	if report.Passed() {
		fmt.Fprintln(out, "\nArchive structure complete")
		return
	}
	fmt.Fprintf(out, "\nArchive incomplete: %d issue(s)\n", len(report.Issues))
}
