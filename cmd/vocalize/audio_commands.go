package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vocalize/internal/app"
	"vocalize/internal/audios"
)

func newAudiosCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audios",
		Short: "Inspect audios stored on the server",
	}
	cmd.AddCommand(
		newAudiosListCommand(ctx),
		newAudiosShowCommand(ctx),
		newAudiosCountCommand(ctx),
		newAudiosPlayURLCommand(ctx),
		newAudiosDeleteCommand(ctx),
	)
	return cmd
}

func newAudiosListCommand(ctx *commandContext) *cobra.Command {
	var participant, vocalization int64
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audios, optionally by participant or label",
		RunE: func(cmd *cobra.Command, args []string) error {
			if participant != 0 && vocalization != 0 {
				return errors.New("use either --participant or --vocalization")
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				var (
					list []audios.Audio
					err  error
				)
				switch {
				case participant != 0:
					list, err = a.Audios.ListByParticipant(cmd.Context(), participant)
				case vocalization != 0:
					list, err = a.Audios.ListByVocalization(cmd.Context(), vocalization)
				default:
					list, err = a.Audios.List(cmd.Context())
				}
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No audios")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, item := range list {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						strconv.FormatInt(item.ParticipantID, 10),
						strconv.FormatInt(item.VocalizationID, 10),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Participant", "Label"}, rows, 0, 1, 2))
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&participant, "participant", 0, "Filter by participant id")
	cmd.Flags().Int64Var(&vocalization, "vocalization", 0, "Filter by label id")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newAudiosShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "audio")
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				item, err := a.Audios.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd, item)
			})
		},
	}
}

func newAudiosCountCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "count <participant-id>",
		Short: "Count a participant's audios",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "participant")
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				n, err := a.Audios.CountByParticipant(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func newAudiosPlayURLCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play-url <id>",
		Short: "Print a playback URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "audio")
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				url, err := a.Audios.PlayURL(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			})
		},
	}
}

func newAudiosDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an audio from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "audio")
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.Audios.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted audio %d\n", id)
				return nil
			})
		},
	}
}
