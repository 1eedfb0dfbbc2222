package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subweave/internal/config"
	"subweave/internal/language"
	"subweave/internal/structured"
	"subweave/internal/summary"
	"subweave/internal/translation"
)

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var lang string
	var outputDir string
	var overwrite bool

	cmd := &cobra.Command{
		Use:     "summarize <file.srt>",
		Aliases: []string{"tltw"},
		Short:   "Write a Markdown \"too long to watch\" summary of a subtitle file",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("provide one .srt file. Example: subweave summarize lecture.srt --lang en")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if !cfg.HasStructuredCredentials() {
				return errors.New("summaries need structured.api_keys (or the provider's API key environment variable)")
			}
			code := firstNonEmpty(lang, cfg.Translation.TargetLanguage, "en")
			if code, err = language.Canonical(code); err != nil {
				return fmt.Errorf("--lang: %w", err)
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			dir := strings.TrimSpace(outputDir)
			if dir != "" {
				if dir, err = config.ExpandPath(dir); err != nil {
					return err
				}
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			backend, closeFn, err := translation.NewStructuredBackend(cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			params := translation.StructuredParams(cfg)
			params.MaxOutputTokens = cfg.Summary.MaxOutputTokens
			summarizer := summary.New(backend, summary.Options{
				ChunkChars:           cfg.Summary.ChunkChars,
				Params:               params,
				FinalMaxOutputTokens: cfg.Summary.FinalMaxOutputTokens,
				LongForm: structured.LongForm{
					EndMarker:         cfg.Summary.EndMarker,
					MaxRounds:         cfg.Summary.MaxRounds,
					ContinuationChars: cfg.Summary.ContinuationChars,
				},
				Logger: logger,
			})

			path, wrote, err := summarizer.SummarizeFile(cmd.Context(), source, dir, code, overwrite)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !wrote {
				fmt.Fprintf(out, "Summary already exists at %s (use --overwrite to regenerate)\n", path)
				return nil
			}
			fmt.Fprintf(out, "Wrote summary to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Summary language (default translation.target_language, then en)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the summary (default next to the subtitle)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Regenerate an existing summary")
	return cmd
}
