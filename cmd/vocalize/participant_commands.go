package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vocalize/internal/app"
	"vocalize/internal/participants"
)

func newParticipantsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "participants",
		Short: "Manage research participants",
	}
	cmd.AddCommand(
		newParticipantsListCommand(ctx),
		newParticipantsShowCommand(ctx),
		newParticipantsCreateCommand(ctx),
		newParticipantsUpdateCommand(ctx),
		newParticipantsDeleteCommand(ctx),
		newParticipantsExistsCommand(ctx),
	)
	return cmd
}

func newParticipantsListCommand(ctx *commandContext) *cobra.Command {
	var refresh, all, jsonOut bool
	var userID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the signed-in user's participants (cached for offline use)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				var (
					list []participants.Participant
					err  error
				)
				if all {
					list, err = a.Participants.All(cmd.Context())
				} else {
					owner := strings.TrimSpace(userID)
					if owner == "" {
						if owner, err = a.Vault.UserID(cmd.Context()); err != nil {
							return err
						}
					}
					if owner == "" {
						return errors.New("not signed in; run `vocalize login` or pass --user")
					}
					list, err = a.Participants.ListByUser(cmd.Context(), owner, refresh)
				}
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No participants")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderParticipants(list))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the cache when online")
	cmd.Flags().BoolVar(&all, "all", false, "List every participant (not cached)")
	cmd.Flags().StringVar(&userID, "user", "", "User id (defaults to the signed-in user)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

// renderParticipants shows the id plus every field present on any record.
func renderParticipants(list []participants.Participant) string {
	fieldSet := make(map[string]struct{})
	for _, p := range list {
		for key := range p.Fields {
			fieldSet[key] = struct{}{}
		}
	}
	fields := slices.Sorted(maps.Keys(fieldSet))
	headers := append([]string{"ID"}, fields...)
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		row := []string{strconv.FormatInt(p.ID, 10)}
		for _, field := range fields {
			row = append(row, p.String(field))
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows, 0)
}

func newParticipantsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one participant (falls back to the cache offline)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "participant")
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				p, err := a.Participants.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd, p)
			})
		},
	}
}

func newParticipantsCreateCommand(ctx *commandContext) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a participant",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parseFields(fields)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				created, err := a.Participants.Create(cmd.Context(), payload)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created participant %d\n", created.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "Participant field as key=value (repeatable)")
	return cmd
}

func newParticipantsUpdateCommand(ctx *commandContext) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update participant fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "participant")
			if err != nil {
				return err
			}
			payload, err := parseFields(fields)
			if err != nil {
				return err
			}
			if len(payload) == 0 {
				return errors.New("nothing to update; pass at least one --field")
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.Participants.Update(cmd.Context(), id, payload); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated participant %d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "Participant field as key=value (repeatable)")
	return cmd
}

func newParticipantsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "participant")
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.Participants.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted participant %d\n", id)
				return nil
			})
		},
	}
}

func newParticipantsExistsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "exists",
		Short: "Report whether the signed-in user has a participant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				fmt.Fprintln(cmd.OutOrStdout(), yesNo(a.Participants.Exists(cmd.Context())))
				return nil
			})
		},
	}
}
