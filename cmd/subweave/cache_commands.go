package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"subweave/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the translation memory",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func openCache(ctx *commandContext, cmd *cobra.Command) (*cache.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	path := cfg.CachePath()
	if path == "" {
		return nil, errors.New("translation cache is disabled (cache.enabled = false)")
	}
	return cache.Open(cmd.Context(), path)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show translation memory statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache(ctx, cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			rows := [][]string{
				{"Path", stats.Path},
				{"Entries", strconv.Itoa(stats.Entries)},
				{"Hits", strconv.Itoa(stats.Hits)},
				{"Providers", strconv.Itoa(stats.Providers)},
				{"Languages", strconv.Itoa(stats.Languages)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight}, shouldColorize(out)))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete cached translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache(ctx, cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			var removed int64
			if olderThan > 0 {
				removed, err = store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			} else {
				removed, err = store.Clear(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached translation(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove entries older than this age (e.g. 720h)")
	return cmd
}
