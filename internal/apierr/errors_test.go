package apierr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"vocalize/internal/apierr"
)

func TestFromResponseKinds(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   apierr.Kind
		msg    string
	}{
		{http.StatusUnauthorized, `{"detail":"Token expirado"}`, apierr.KindAuthExpired, "Token expirado"},
		{http.StatusForbidden, `{"detail":"` + apierr.UnverifiedDetail + `"}`, apierr.KindUnverifiedAccount, apierr.UnverifiedDetail},
		{http.StatusForbidden, `{"detail":"Acesso negado"}`, apierr.KindPermissionDenied, "Acesso negado"},
		{http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","email"],"msg":"invalid email"}]}`, apierr.KindValidation, "email: invalid email"},
		{http.StatusBadRequest, `{"detail":"Email já cadastrado"}`, apierr.KindServerRejected, "Email já cadastrado"},
		{http.StatusInternalServerError, ``, apierr.KindServerRejected, "request failed with status 500"},
		{http.StatusBadGateway, `<html>bad gateway</html>`, apierr.KindServerRejected, "<html>bad gateway</html>"},
	}
	for _, tc := range cases {
		err := apierr.FromResponse(tc.status, []byte(tc.body))
		if err.Kind != tc.kind {
			t.Fatalf("status %d: expected kind %s, got %s", tc.status, tc.kind, err.Kind)
		}
		if err.Message != tc.msg {
			t.Fatalf("status %d: expected message %q, got %q", tc.status, tc.msg, err.Message)
		}
		if err.Status != tc.status {
			t.Fatalf("expected status %d, got %d", tc.status, err.Status)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	original := apierr.New(apierr.KindAuthExpired, "expired")
	permanent := apierr.Wrap(apierr.KindAuthPermanentFailure, "session ended", original)
	wrapped := fmt.Errorf("list vocalizations: %w", permanent)

	if apierr.KindOf(wrapped) != apierr.KindAuthPermanentFailure {
		t.Fatalf("expected outer kind, got %s", apierr.KindOf(wrapped))
	}
	if !errors.Is(wrapped, original) {
		t.Fatal("expected original error in chain")
	}
	if apierr.Message(wrapped) != "session ended" {
		t.Fatalf("unexpected message %q", apierr.Message(wrapped))
	}
	if apierr.IsKind(nil, apierr.KindAuthExpired) {
		t.Fatal("nil error must not match any kind")
	}
	if apierr.Message(errors.New("plain")) != "plain" {
		t.Fatal("plain errors should use Error()")
	}
}
