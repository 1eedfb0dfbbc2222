package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"subweave/internal/config"
	"subweave/internal/subtitles"
)

func newExportTextCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export-text <file.srt>",
		Short: "Export subtitle text without timestamps as a single line",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("provide one .srt file. Example: subweave export-text movie.srt")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			dest := strings.TrimSpace(output)
			switch dest {
			case "":
				dest = strings.TrimSuffix(source, filepath.Ext(source)) + ".txt"
			case "-":
			default:
				if dest, err = config.ExpandPath(dest); err != nil {
					return err
				}
			}
			cues, err := subtitles.ReadSRTFile(source)
			if err != nil {
				return err
			}
			if dest == "-" {
				fmt.Fprintln(cmd.OutOrStdout(), subtitles.PlainText(cues))
				return nil
			}
			if err := subtitles.ExportPlainText(cmd.Context(), cues, dest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path, or - for stdout (default <stem>.txt)")
	return cmd
}
