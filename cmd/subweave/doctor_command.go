package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subweave/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var online bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, cache, font, and provider readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Online: online})
			for _, line := range renderSectionHeader("subweave readiness", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Backend", statusInfo, cfg.ResolvedBackend(), colorize))
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if n := preflight.Failed(results); n > 0 {
				return fmt.Errorf("%d readiness check(s) failed", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&online, "online", false, "Also send a test request to each configured provider")
	return cmd
}
