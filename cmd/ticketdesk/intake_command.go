package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ticketdesk/internal/config"
	"ticketdesk/internal/intake"
	"ticketdesk/internal/logging"
)

func newIntakeCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput     bool
		noPreprocess   bool
		removeOriginal bool
	)

	cmd := &cobra.Command{
		Use:   "intake <file>",
		Short: "Extract ticket metadata from a file into the processing tree",
		Long: "Route a ticket file to text recognition (PDF and images) or vision analysis\n" +
			"(audio and video), write the ticket folder under processing/, and record the\n" +
			"attempt in the ledger. Failed extractions are quarantined under incoming/failed/.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *base
			if noPreprocess {
				cfg.OCR.Preprocess = false
			}
			if removeOriginal {
				cfg.Intake.RemoveOriginal = true
			}

			source, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve file path: %w", err)
			}
			if abs, err := filepath.Abs(source); err == nil {
				source = abs
			}

			logger := ctx.logger()
			var opts []intake.Option
			store, err := ctx.openLedger()
			if err != nil {
				logging.WarnWithContext(logger, "ledger unavailable; intake will not be recorded", "intake.ledger_unavailable",
					logging.Error(err),
					logging.String(logging.FieldImpact, "history and status will miss this intake"),
					logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
				)
			} else {
				defer store.Close()
				opts = append(opts, intake.WithRecorder(store))
			}

			outcome := intake.New(&cfg, logger, opts...).Process(cmd.Context(), source)
			if jsonOutput {
				if err := writeJSON(cmd, outcome); err != nil {
					return err
				}
				if !outcome.Succeeded() {
					return errReported
				}
				return nil
			}
			printIntakeOutcome(cmd, outcome)
			if !outcome.Succeeded() {
				return errReported
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as a single JSON object")
	cmd.Flags().BoolVar(&noPreprocess, "no-preprocess", false, "Skip image preprocessing before text recognition")
	cmd.Flags().BoolVar(&removeOriginal, "remove-original", false, "Delete the source file after a successful intake")
	return cmd
}

func printIntakeOutcome(cmd *cobra.Command, outcome intake.Outcome) {
	out := cmd.OutOrStdout()
	if !outcome.Succeeded() {
		fmt.Fprintf(out, "Intake failed: %s\n", outcome.Message)
		if outcome.ErrorKind != "" {
			fmt.Fprintf(out, "  Kind:       %s\n", outcome.ErrorKind)
		}
		if len(outcome.SupportedTypes) > 0 {
			fmt.Fprintln(out, "  Supported:")
			for _, group := range []string{"docs", "audio_video"} {
				if exts, ok := outcome.SupportedTypes[group]; ok {
					fmt.Fprintf(out, "    %-12s %s\n", group+":", strings.Join(exts, ", "))
				}
			}
		}
		if outcome.FailedPath != "" {
			fmt.Fprintf(out, "  Quarantine: %s\n", outcome.FailedPath)
		}
		if outcome.ErrorFile != "" {
			fmt.Fprintf(out, "  Error file: %s\n", outcome.ErrorFile)
		}
		return
	}

	fmt.Fprintf(out, "Ticket %s processed\n", outcome.TicketID)
	fmt.Fprintf(out, "  Folder:     %s\n", outcome.TicketFolder)
	fmt.Fprintf(out, "  File:       %s\n", outcome.ProcessedFile)
	fmt.Fprintf(out, "  Method:     %s\n", outcome.ExtractionMethod)
	fmt.Fprintf(out, "  Confidence: %.2f (%s)\n", outcome.Confidence, outcome.ConfidenceLabel)
	if outcome.NeedsReview {
		fmt.Fprintln(out, "  Review:     low confidence, verify the extracted fields before archiving")
	}
}
