package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"vocalize/internal/apierr"
	"vocalize/internal/app"
	"vocalize/internal/cache"
	"vocalize/internal/recordings"
	"vocalize/internal/vocalizations"
)

func newRecordingsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recordings",
		Short: "Manage the local queue of recordings",
	}
	cmd.AddCommand(
		newRecordingsListCommand(ctx),
		newRecordingsAddCommand(ctx),
		newRecordingsUploadCommand(ctx),
		newRecordingsDiscardCommand(ctx),
	)
	return cmd
}

func newRecordingsListCommand(ctx *commandContext) *cobra.Command {
	var pendingOnly, jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				var (
					list []recordings.Recording
					err  error
				)
				if pendingOnly {
					list, err = a.Recordings.Pending(cmd.Context())
				} else {
					list, err = a.Recordings.List(cmd.Context())
				}
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No recordings")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, rec := range list {
					rows = append(rows, []string{
						rec.ID,
						formatTimestamp(rec.SavedAt()),
						formatDuration(rec.Duration),
						rec.VocalizationName,
						strconv.FormatInt(rec.ParticipantID, 10),
						string(rec.Status),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Saved", "Duration", "Label", "Participant", "Status"}, rows, 2, 4))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only show recordings not yet sent")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newRecordingsAddCommand(ctx *commandContext) *cobra.Command {
	var draft recordings.Draft
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Queue a WAV file for upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}
			draft.URI = path
			return ctx.withApp(cmd, func(a *app.App) error {
				if draft.VocalizationName == "" && draft.VocalizationID != 0 {
					draft.VocalizationName = cachedLabelName(cmd, a, draft.VocalizationID)
				}
				rec, err := a.Recordings.Save(cmd.Context(), draft)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved recording %s (pending upload)\n", rec.ID)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&draft.VocalizationID, "vocalization", 0, "Vocalization label id")
	cmd.Flags().StringVar(&draft.VocalizationName, "label", "", "Label name (looked up from cached labels when omitted)")
	cmd.Flags().Int64Var(&draft.ParticipantID, "participant", 0, "Participant id")
	cmd.Flags().IntVar(&draft.Duration, "duration", 0, "Recording length in seconds")
	return cmd
}

// cachedLabelName reads the label name from the cache only, so adding a
// recording works offline.
func cachedLabelName(cmd *cobra.Command, a *app.App, id int64) string {
	entry, ok, err := cache.Read[vocalizations.Vocalization](cmd.Context(), a.Cache, vocalizations.CacheKey)
	if err != nil || !ok {
		return ""
	}
	if v, found := cache.Find(entry.Data, strconv.FormatInt(id, 10)); found {
		return v.Name
	}
	return ""
}

func newRecordingsUploadCommand(ctx *commandContext) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload every pending recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				if !a.Checker.Online(cmd.Context()) {
					return apierr.New(apierr.KindNetworkUnavailable, "offline; recordings stay queued")
				}
				uploader := a.Uploader
				if concurrency > 0 {
					uploader = recordings.NewUploader(a.Recordings, a.Audios, a.Notifier,
						recordings.WithConcurrency(concurrency), recordings.WithUploadLogger(a.Logger))
				}
				summary, err := uploader.UploadPending(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(summary.Sent)+len(summary.Failed) == 0 {
					fmt.Fprintln(out, "Nothing to upload")
					return nil
				}
				fmt.Fprintf(out, "Uploaded %d recording(s)\n", len(summary.Sent))
				for _, failure := range summary.Failed {
					fmt.Fprintf(out, "  %s: %s\n", failure.Recording.ID, apierr.Message(failure.Err))
				}
				if len(summary.Failed) > 0 {
					return fmt.Errorf("%d recording(s) failed to upload", len(summary.Failed))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel uploads (default 2)")
	return cmd
}

func newRecordingsDiscardCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <id>",
		Short: "Remove a recording and its audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.Recordings.Discard(cmd.Context(), args[0]); err != nil {
					if errors.Is(err, recordings.ErrNotFound) {
						return fmt.Errorf("no recording with id %s", args[0])
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Discarded recording %s\n", args[0])
				return nil
			})
		},
	}
}
