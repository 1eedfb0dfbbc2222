package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subweave/internal/bulk"
	"subweave/internal/config"
	"subweave/internal/language"
	"subweave/internal/translation"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var targetLang string
	var output string
	var backend string
	var overwrite bool
	var maxChars int

	cmd := &cobra.Command{
		Use:   "translate <file-or-directory>",
		Short: "Translate SRT subtitles while keeping every cue and timestamp",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("provide one .srt file or a directory. Example: subweave translate movie.srt --to es")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			lang := firstNonEmpty(targetLang, cfg.Translation.TargetLanguage)
			if lang == "" {
				return errors.New("target language required: pass --to or set translation.target_language")
			}
			lang, err = language.Canonical(lang)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			backend = strings.ToLower(strings.TrimSpace(backend))
			switch backend {
			case "", config.BackendBulk, config.BackendStructured:
			default:
				return fmt.Errorf("--backend %q must be %q or %q", backend, config.BackendBulk, config.BackendStructured)
			}
			if backend == config.BackendStructured && !cfg.HasStructuredCredentials() {
				return errors.New("structured backend requires structured.api_keys (or the provider's API key environment variable)")
			}
			if maxChars > 0 {
				cfg.Bulk.MaxChars = maxChars
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			engine, err := translation.Build(cmd.Context(), cfg, backend, logger)
			if err != nil {
				return err
			}
			defer engine.Close()

			input, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			out := strings.TrimSpace(output)
			if out != "" {
				trailing := strings.HasSuffix(out, "/")
				if out, err = config.ExpandPath(out); err != nil {
					return err
				}
				if trailing {
					out += string(filepath.Separator)
				}
			}

			results, runErr := engine.TranslatePath(cmd.Context(), input, out, lang, overwrite || cfg.Translation.Overwrite)
			if len(results) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderTranslateResults(results, shouldColorize(cmd.OutOrStdout())))
			}
			if runErr != nil {
				return runErr
			}
			for _, res := range results {
				if res.Err != nil {
					return fmt.Errorf("%d file(s) failed; see log for details", countFailed(results))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetLang, "to", "t", "", "Target language code (e.g. es, pt-BR)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, or directory (mirrors input layout)")
	cmd.Flags().StringVar(&backend, "backend", "", "Override translation.backend (bulk or structured)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing translated files")
	cmd.Flags().IntVar(&maxChars, "max-chars", 0, "Override bulk.max_chars batch budget")
	return cmd
}

func renderTranslateResults(results []translation.FileResult, colorize bool) string {
	headers := []string{"Source", "Output", "Status", "Cues", "Batches", "Tiers", "Cached", "Time"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignRight}
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		status := "translated"
		switch {
		case res.Skipped:
			status = "skipped"
		case res.Err != nil:
			status = "failed"
		case res.Report.Degraded():
			status = "degraded"
		}
		rows = append(rows, []string{
			filepath.Base(res.Source),
			filepath.Base(res.Dest),
			status,
			strconv.Itoa(res.Report.Cues),
			strconv.Itoa(res.Report.Batches),
			formatTiers(res.Report.Tiers),
			strconv.Itoa(res.Report.CacheHits),
			formatDuration(res.Report.Duration),
		})
	}
	return renderTable(headers, rows, aligns, colorize)
}

func formatTiers(tiers map[bulk.Tier]int) string {
	if len(tiers) == 0 {
		return "-"
	}
	keys := make([]bulk.Tier, 0, len(tiers))
	for tier := range tiers {
		keys = append(keys, tier)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	parts := make([]string, 0, len(keys))
	for _, tier := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", tier, tiers[tier]))
	}
	return strings.Join(parts, " ")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(10 * time.Millisecond).String()
}

func countFailed(results []translation.FileResult) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}
