package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vocalize/internal/app"
	"vocalize/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear cached server data",
	}
	cmd.AddCommand(newCacheInfoCommand(ctx), newCacheClearCommand(ctx))
	return cmd
}

func newCacheInfoCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show cached keys and their freshness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				info, err := cache.Describe(cmd.Context(), a.Cache)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, info)
				}
				out := cmd.OutOrStdout()
				version := info.APIVersion
				if version == "" {
					version = "(unset)"
				}
				fmt.Fprintf(out, "API version: %s\n", version)
				fmt.Fprintf(out, "Stored keys: %d\n", info.TotalKeys)
				if len(info.Entries) == 0 {
					fmt.Fprintln(out, "No cached data")
					return nil
				}
				rows := make([][]string, 0, len(info.Entries))
				for _, entry := range info.Entries {
					stored := "-"
					if !entry.StoredAt.IsZero() {
						stored = formatTimestamp(entry.StoredAt)
					}
					rows = append(rows, []string{
						entry.Key,
						strconv.Itoa(entry.Items),
						strconv.Itoa(entry.Bytes),
						stored,
						yesNo(entry.Fresh),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Key", "Items", "Bytes", "Stored", "Fresh"}, rows, 1, 2))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove cached server data, keeping the session and recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				removed, err := cache.ClearData(cmd.Context(), a.Cache)
				if err != nil {
					return err
				}
				if removed > 0 {
					_ = a.Notifier.NotifyCacheReset(cmd.Context(), "Cache local limpo")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached key(s)\n", removed)
				return nil
			})
		},
	}
}
