package session

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"vocalize/internal/api"
	"vocalize/internal/apierr"
	"vocalize/internal/logging"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Registration is a sign-up form.
type Registration struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
	AcceptTerms     bool
}

// Validate checks the form before anything is sent.
func (r Registration) Validate() error {
	if r.Name == "" || r.Phone == "" || r.Email == "" || r.Password == "" || r.ConfirmPassword == "" {
		return apierr.New(apierr.KindValidation, "Todos os campos são obrigatórios.")
	}
	if !r.AcceptTerms {
		return apierr.New(apierr.KindValidation, "É necessário aceitar os termos de uso e política de privacidade.")
	}
	if !emailPattern.MatchString(r.Email) {
		return apierr.New(apierr.KindValidation, "Formato do email é inválido.")
	}
	if r.Password != r.ConfirmPassword {
		return apierr.New(apierr.KindValidation, "As senhas não coincidem.")
	}
	return nil
}

// Register creates an account. Only a 201 answer counts as success.
func (m *Manager) Register(ctx context.Context, r Registration) error {
	if err := r.Validate(); err != nil {
		return err
	}
	resp, err := m.public.Send(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body: map[string]any{
			"nome":          r.Name,
			"email":         r.Email,
			"celular":       r.Phone,
			"senha":         r.Password,
			"aceite_termos": r.AcceptTerms,
		},
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return &apierr.Error{Kind: apierr.KindServerRejected, Status: resp.StatusCode, Message: "Erro inesperado. Tente novamente."}
	}
	m.logger.Info("account registered",
		logging.String(logging.FieldEventType, "account_registered"),
	)
	return nil
}

// SendConfirmationCode asks for a new account confirmation code.
func (m *Manager) SendConfirmationCode(ctx context.Context, email string) error {
	email, err := validEmail(email)
	if err != nil {
		return err
	}
	return m.public.Post(ctx, "/auth/resend-confirmation-code", map[string]string{"email": email}, nil)
}

// ConfirmRegistration activates an account with the emailed code.
func (m *Manager) ConfirmRegistration(ctx context.Context, email, code string) error {
	email, err := validEmail(email)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return apierr.New(apierr.KindValidation, "Informe o código de confirmação.")
	}
	return m.public.Post(ctx, "/auth/confirm-registration", map[string]string{
		"email":              email,
		"codigo_confirmacao": code,
	}, nil)
}

// RequestPasswordReset emails a password reset code.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := validEmail(email)
	if err != nil {
		return err
	}
	return m.public.Post(ctx, "/auth/password-reset", map[string]string{"email": email}, nil)
}

func validEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return "", apierr.New(apierr.KindValidation, "Formato do email é inválido.")
	}
	return email, nil
}

// ResetPassword sets a new password with the emailed numeric code. Remembered
// credentials for the same email are updated to the new password.
func (m *Manager) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	numeric, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return apierr.Wrap(apierr.KindValidation, "Código de confirmação inválido.", err)
	}
	if newPassword == "" {
		return apierr.New(apierr.KindValidation, "Informe a nova senha.")
	}
	email = strings.TrimSpace(email)
	err = m.public.Post(ctx, "/auth/confirm-password-reset", map[string]any{
		"email":              email,
		"codigo_confirmacao": numeric,
		"nova_senha":         newPassword,
	}, nil)
	if err != nil {
		return err
	}
	if _, err := m.vault.UpdateRememberedPassword(ctx, email, newPassword); err != nil {
		logging.WarnWithContext(m.logger, "remembered password not updated", "remember_update_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "automatic re-login uses the old password"),
		)
	}
	return nil
}

// GenerateInviteCode asks the server for a new invite code.
func (m *Manager) GenerateInviteCode(ctx context.Context) (string, error) {
	var out struct {
		Code string `json:"codigo_convite"`
	}
	if err := m.auth.Post(ctx, "/usuarios/gerar-codigo-convite", nil, &out); err != nil {
		return "", err
	}
	if out.Code == "" {
		return "", apierr.New(apierr.KindServerRejected, "resposta sem código de convite")
	}
	return out.Code, nil
}
