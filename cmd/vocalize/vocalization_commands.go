package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vocalize/internal/app"
	"vocalize/internal/vocalizations"
)

func newVocalizationsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vocalizations",
		Aliases: []string{"labels"},
		Short:   "Manage vocalization labels",
	}
	cmd.AddCommand(
		newVocalizationsListCommand(ctx),
		newVocalizationsCreateCommand(ctx),
		newVocalizationsUpdateCommand(ctx),
		newVocalizationsDeleteCommand(ctx),
	)
	return cmd
}

func newVocalizationsListCommand(ctx *commandContext) *cobra.Command {
	var refresh, jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List labels (cached for offline use)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				list, err := a.Vocalizations.List(cmd.Context(), refresh)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No vocalization labels")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, v := range list {
					owner := "-"
					if v.UserID != nil {
						owner = strconv.FormatInt(*v.UserID, 10)
					}
					rows = append(rows, []string{strconv.FormatInt(v.ID, 10), v.Name, v.Description, owner})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Description", "Owner"}, rows, 0))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the cache when online")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newVocalizationsCreateCommand(ctx *commandContext) *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a label",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				created, err := a.Vocalizations.Create(cmd.Context(), name, description)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created label %d (%s)\n", created.ID, created.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Label name")
	cmd.Flags().StringVar(&description, "description", "", "Label description")
	return cmd
}

func newVocalizationsUpdateCommand(ctx *commandContext) *cobra.Command {
	var update vocalizations.Update
	var owner int64
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a label you own (admins may update any)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "vocalization")
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				if cmd.Flags().Changed("owner") {
					update.OwnerID = &owner
				} else if userID, _ := a.Vault.UserID(cmd.Context()); userID != "" {
					if parsed, err := strconv.ParseInt(userID, 10, 64); err == nil {
						update.OwnerID = &parsed
					}
				}
				if err := a.Vocalizations.Update(cmd.Context(), id, update); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated label %d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&update.Name, "name", "", "New name")
	cmd.Flags().StringVar(&update.Description, "description", "", "New description")
	cmd.Flags().Int64Var(&owner, "owner", 0, "Owner user id (defaults to the signed-in user)")
	return cmd
}

func newVocalizationsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a label (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "vocalization")
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.Vocalizations.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted label %d\n", id)
				return nil
			})
		},
	}
}
