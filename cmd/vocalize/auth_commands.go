package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vocalize/internal/apierr"
	"vocalize/internal/app"
	"vocalize/internal/authtoken"
	"vocalize/internal/session"
)

func newAuthCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newLoginCommand(ctx),
		newLogoutCommand(ctx),
		newStatusCommand(ctx),
		newRegisterCommand(ctx),
		newConfirmCommand(ctx),
		newResendCodeCommand(ctx),
		newPasswordCommand(ctx),
		newInviteCommand(ctx),
	}
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email, password string
	var remember bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}
			secret, err := readSecret(cmd, password, "Password: ")
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				status, err := a.Session.Login(cmd.Context(), email, secret, remember)
				out := cmd.OutOrStdout()
				switch status {
				case session.StatusSuccess:
					fmt.Fprintln(out, "Login realizado com sucesso!")
					return nil
				case session.StatusUnverified:
					fmt.Fprintln(out, "Conta não verificada. Verifique seu e-mail para ativar sua conta.")
					fmt.Fprintln(out, "Run `vocalize resend-code --email "+email+"` to receive a new code.")
					return err
				default:
					return fmt.Errorf("login failed: %s", apierr.Message(err))
				}
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (read from stdin when omitted)")
	cmd.Flags().BoolVar(&remember, "remember", true, "Remember credentials for automatic re-login")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	var forget bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear local session data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.Session.Logout(cmd.Context(), forget); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out; pending recordings were kept")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&forget, "forget", false, "Also remove remembered credentials")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, connectivity and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				c := cmd.Context()
				out := cmd.OutOrStdout()
				color := shouldColorize(out)

				signedIn := a.Session.IsAuthenticated(c)
				creds, err := a.Vault.Credentials(c)
				if err != nil {
					return err
				}
				profile, err := a.Session.StoredProfile(c)
				if err != nil {
					return err
				}
				pending, err := a.Recordings.Pending(c)
				if err != nil {
					return err
				}

				lines := []string{"Session"}
				if signedIn {
					lines = append(lines, renderStatusLine("Signed in", statusOK, "user "+creds.UserID, color))
				} else {
					lines = append(lines, renderStatusLine("Signed in", statusError, "run vocalize login", color))
				}
				if claims, err := authtoken.Decode(creds.AccessToken); err == nil && !claims.ExpiresAt.IsZero() {
					kind := statusOK
					if !claims.Valid(time.Now()) {
						kind = statusWarn
					}
					lines = append(lines, renderStatusLine("Token expires", kind, formatTimestamp(claims.ExpiresAt), color))
				}
				if creds.Role != "" {
					lines = append(lines, renderStatusLine("Role", statusInfo, creds.Role, color))
				}
				if profile.Username != "" {
					lines = append(lines, renderStatusLine("Name", statusInfo, profile.Username, color))
				}
				if profile.Known {
					kind := statusOK
					if !profile.AccessGranted {
						kind = statusWarn
					}
					lines = append(lines, renderStatusLine("Access granted", kind, yesNo(profile.AccessGranted), color))
				}
				lines = append(lines, renderStatusLine("Remembered login", statusInfo, yesNo(a.Vault.HasRememberedCredentials(c)), color))

				lines = append(lines, "", "Device")
				if a.Checker.Online(c) {
					lines = append(lines, renderStatusLine("Connectivity", statusOK, "online", color))
				} else {
					lines = append(lines, renderStatusLine("Connectivity", statusWarn, "offline, cached data only", color))
				}
				kind := statusOK
				if len(pending) > 0 {
					kind = statusWarn
				}
				lines = append(lines, renderStatusLine("Pending recordings", kind, fmt.Sprintf("%d", len(pending)), color))

				fmt.Fprintln(out, strings.Join(lines, "\n"))
				return nil
			})
		},
	}
}

func newRegisterCommand(ctx *commandContext) *cobra.Command {
	var form session.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(cmd, form.Password, "Password: ")
			if err != nil {
				return err
			}
			form.Password = secret
			if form.ConfirmPassword == "" {
				form.ConfirmPassword = form.Password
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.Session.Register(cmd.Context(), form); err != nil {
					return fmt.Errorf("register: %s", apierr.Message(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cadastro realizado com sucesso! Verifique seu e-mail para confirmar sua conta.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "Full name")
	cmd.Flags().StringVarP(&form.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "Mobile phone number")
	cmd.Flags().StringVarP(&form.Password, "password", "p", "", "Password (read from stdin when omitted)")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm-password", "", "Password confirmation (defaults to --password)")
	cmd.Flags().BoolVar(&form.AcceptTerms, "accept-terms", false, "Accept the terms of use and privacy policy")
	return cmd
}

func newConfirmCommand(ctx *commandContext) *cobra.Command {
	var email, code string
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm a new account with the emailed code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.Session.ConfirmRegistration(cmd.Context(), email, code); err != nil {
					return fmt.Errorf("confirm: %s", apierr.Message(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Conta confirmada! Sua conta foi ativada com sucesso.")
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&code, "code", "", "Confirmation code")
	return cmd
}

func newResendCodeCommand(ctx *commandContext) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resend-code",
		Short: "Send a new account confirmation code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.Session.SendConfirmationCode(cmd.Context(), email); err != nil {
					return fmt.Errorf("resend code: %s", apierr.Message(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Novo código de confirmação enviado para seu e-mail.")
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	return cmd
}

func newPasswordCommand(ctx *commandContext) *cobra.Command {
	passwordCmd := &cobra.Command{
		Use:   "password",
		Short: "Password reset",
	}

	var requestEmail string
	request := &cobra.Command{
		Use:   "reset-request",
		Short: "Email a password reset code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.Session.RequestPasswordReset(cmd.Context(), requestEmail); err != nil {
					return fmt.Errorf("password reset: %s", apierr.Message(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Código de redefinição enviado para seu e-mail.")
				return nil
			})
		},
	}
	request.Flags().StringVarP(&requestEmail, "email", "e", "", "Account email")

	var email, code, newPassword string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with the emailed code",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(cmd, newPassword, "New password: ")
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.Session.ResetPassword(cmd.Context(), email, code, secret); err != nil {
					return fmt.Errorf("password reset: %s", apierr.Message(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Sua senha foi redefinida com sucesso.")
				return nil
			})
		},
	}
	reset.Flags().StringVarP(&email, "email", "e", "", "Account email")
	reset.Flags().StringVar(&code, "code", "", "Numeric reset code")
	reset.Flags().StringVar(&newPassword, "new-password", "", "New password (read from stdin when omitted)")

	passwordCmd.AddCommand(request, reset)
	return passwordCmd
}

func newInviteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "invite",
		Short: "Generate an invite code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				code, err := a.Session.GenerateInviteCode(cmd.Context())
				if err != nil {
					return fmt.Errorf("invite: %s", apierr.Message(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), code)
				return nil
			})
		},
	}
}
