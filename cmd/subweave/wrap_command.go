package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"subweave/internal/config"
	"subweave/internal/linewrap"
	"subweave/internal/subtitles"
	"subweave/internal/translation"
)

func newWrapCommand(ctx *commandContext) *cobra.Command {
	var output string
	var maxWidth float64
	var maxLines int
	var extraEnd float64
	var fontFamily string
	var fontSize float64

	cmd := &cobra.Command{
		Use:   "wrap <file.srt>",
		Short: "Re-segment and wrap subtitle cues to a pixel width",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("provide one .srt file. Example: subweave wrap movie.srt --max-width 380")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if fontFamily != "" {
				cfg.Layout.FontFamily = fontFamily
			}
			if fontSize > 0 {
				cfg.Layout.FontSize = fontSize
			}
			if maxWidth <= 0 {
				maxWidth = cfg.Layout.MaxLineWidthPx
			}
			if maxLines <= 0 {
				maxLines = cfg.Layout.MaxLines
			}
			if extraEnd < 0 {
				extraEnd = cfg.Layout.ExtraEndSeconds
			}

			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			dest := strings.TrimSpace(output)
			if dest == "" {
				dest = strings.TrimSuffix(source, filepath.Ext(source)) + "_wrapped.srt"
			} else if dest, err = config.ExpandPath(dest); err != nil {
				return err
			}

			cues, err := subtitles.ReadSRTFile(source)
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			wrapper, measurer := translation.NewWrapper(cfg, logger)
			defer measurer.Close()

			segments := make([]linewrap.Segment, 0, len(cues))
			for _, cue := range cues {
				segments = append(segments, linewrap.Segment{
					Text:  cue.Text,
					Start: cue.Start,
					End:   cue.End,
					Words: linewrap.WordsFromText(cue.Text, cue.Start, cue.End),
				})
			}
			formatted := wrapper.FormatSegments(segments, maxWidth, maxLines, extraEnd)
			wrapped := make([]subtitles.Cue, len(formatted))
			for i, seg := range formatted {
				wrapped[i] = subtitles.Cue{Index: i + 1, Start: seg.Start, End: seg.End, Text: seg.Text}
			}
			if err := subtitles.WriteSRTFile(cmd.Context(), dest, wrapped); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cues (from %d) to %s\n", len(wrapped), len(cues), dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default <stem>_wrapped.srt)")
	cmd.Flags().Float64Var(&maxWidth, "max-width", 0, "Maximum line width in pixels (default layout.max_line_width_px)")
	cmd.Flags().IntVar(&maxLines, "max-lines", 0, "Maximum lines per cue (default layout.max_lines)")
	cmd.Flags().Float64Var(&extraEnd, "extra-end", -1, "Seconds added to cue ends before long gaps (default layout.extra_end_seconds)")
	cmd.Flags().StringVar(&fontFamily, "font", "", "Font family used for width measurement")
	cmd.Flags().Float64Var(&fontSize, "font-size", 0, "Font size in points")
	return cmd
}
