package logging

import (
	"log/slog"
	"strings"
)

// Standardized attribute keys shared by every component.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"
	FieldAlert     = "alert"
	FieldErrorKind = "error_kind"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldCacheKey  = "cache_key"
	FieldUserID    = "user_id"
)

// sensitiveKeys never reach log output verbatim.
var sensitiveKeys = map[string]struct{}{
	"access_token":   {},
	"refresh_token":  {},
	"authorization":  {},
	"password":       {},
	"senha":          {},
	"saved_password": {},
	"api_key":        {},
}

const redacted = "[redacted]"

// redact masks the value of credential-bearing attributes.
func redact(attr slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(attr.Key)]; ok && attr.Value.Kind() != slog.KindGroup {
		attr.Value = slog.StringValue(redacted)
	}
	return attr
}
