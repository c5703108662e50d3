package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an Error.
type Kind string

const (
	KindAuthExpired          Kind = "auth_expired"
	KindAuthPermanentFailure Kind = "auth_permanent_failure"
	KindNetworkUnavailable   Kind = "network_unavailable"
	KindValidation           Kind = "validation"
	KindServerRejected       Kind = "server_rejected"
	KindUnverifiedAccount    Kind = "unverified_account"
	KindStorageCorruption    Kind = "storage_corruption"
	KindPermissionDenied     Kind = "permission_denied"
)

// UnverifiedDetail is the server detail sent with 403 for accounts that have
// not confirmed their e-mail address.
const UnverifiedDetail = "Usuário não verificado. Verifique seu e-mail para ativar sua conta."

// Error is the single error type surfaced by public operations.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ErrorKind exposes the kind as a plain string for classifiers.
func (e *Error) ErrorKind() string {
	if e == nil {
		return ""
	}
	return string(e.Kind)
}

// New builds an Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap tags cause with kind. The cause remains reachable through errors.Is/As.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns a single human-readable line for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// FromResponse converts a non-2xx response into an Error.
func FromResponse(status int, body []byte) *Error {
	detail := parseDetail(body)
	kind := KindServerRejected
	switch {
	case status == http.StatusUnauthorized:
		kind = KindAuthExpired
	case status == http.StatusForbidden && detail == UnverifiedDetail:
		kind = KindUnverifiedAccount
	case status == http.StatusForbidden:
		kind = KindPermissionDenied
	case status == http.StatusUnprocessableEntity:
		kind = KindValidation
	}
	if detail == "" {
		detail = fmt.Sprintf("request failed with status %d", status)
	}
	return &Error{Kind: kind, Status: status, Message: detail}
}

// parseDetail reads {"detail": "..."} or the list form
// {"detail": [{"msg": "...", "loc": [...]}]} used for validation failures.
func parseDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		if len(trimmed) > 200 {
			trimmed = trimmed[:200]
		}
		return trimmed
	}
	if len(envelope.Detail) == 0 {
		return strings.TrimSpace(envelope.Message)
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			msg := strings.TrimSpace(item.Msg)
			if msg == "" {
				continue
			}
			if n := len(item.Loc); n > 0 {
				msg = fmt.Sprintf("%v: %s", item.Loc[n-1], msg)
			}
			parts = append(parts, msg)
		}
		return strings.Join(parts, "; ")
	}
	return strings.TrimSpace(string(envelope.Detail))
}
