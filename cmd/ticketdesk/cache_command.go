package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ticketdesk/internal/extraction/ocr"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the OCR page cache",
	}

	var jsonOutput bool
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show page cache file count and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stats, err := ocr.NewPageCache(cfg.OCRCacheDir()).Stats()
			if err != nil {
				return fmt.Errorf("read page cache: %w", err)
			}
			if jsonOutput {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache directory: %s\n", stats.Dir)
			fmt.Fprintf(out, "Files:           %d\n", stats.FileCount)
			fmt.Fprintf(out, "Size:            %.2f MB\n", stats.SizeMB)
			return nil
		},
	}
	statsCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached page image",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			removed, err := ocr.NewPageCache(cfg.OCRCacheDir()).Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached file(s)\n", removed)
			return nil
		},
	}

	cacheCmd.AddCommand(statsCmd, clearCmd)
	return cacheCmd
}
