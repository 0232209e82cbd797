package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ticketdesk/internal/archive"
)

func newTemplatesCommand(ctx *commandContext) *cobra.Command {
	templatesCmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage archive templates",
	}

	var overwrite bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default ticket summary template",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := cfg.Archive.SummaryTemplate
			written, err := archive.WriteDefaultTemplate(target, overwrite)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !written {
				fmt.Fprintf(out, "Template already exists at %s (use --overwrite to replace it)\n", target)
				return nil
			}
			fmt.Fprintf(out, "Wrote %s\n", target)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing template")

	templatesCmd.AddCommand(initCmd)
	return templatesCmd
}
