package participants

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"
)

// Participant is a research participant. Only the id is interpreted; every
// other field is kept as sent by the server so records round-trip intact.
type Participant struct {
	ID     int64
	Fields map[string]json.RawMessage
}

func (p Participant) CacheID() string { return strconv.FormatInt(p.ID, 10) }

// String returns a field rendered as text, or "" when absent.
func (p Participant) String(field string) string {
	raw, ok := p.Fields[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Merge returns a copy with payload fields overlaid.
func (p Participant) Merge(payload Payload) (Participant, error) {
	out := Participant{ID: p.ID, Fields: maps.Clone(p.Fields)}
	if out.Fields == nil {
		out.Fields = make(map[string]json.RawMessage, len(payload))
	}
	for key, value := range payload {
		if key == "id" {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return p, fmt.Errorf("encode field %s: %w", key, err)
		}
		out.Fields[key] = raw
	}
	return out, nil
}

func (p Participant) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Fields)+1)
	maps.Copy(out, p.Fields)
	out["id"] = json.RawMessage(strconv.FormatInt(p.ID, 10))
	return json.Marshal(out)
}

func (p *Participant) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	raw, ok := fields["id"]
	if !ok {
		return errors.New("participant without id")
	}
	var id json.Number
	if err := json.Unmarshal(raw, &id); err != nil {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return fmt.Errorf("participant id: %w", err)
		}
		id = json.Number(text)
	}
	parsed, err := id.Int64()
	if err != nil {
		return fmt.Errorf("participant id %q: %w", id, err)
	}
	delete(fields, "id")
	p.ID = parsed
	p.Fields = fields
	return nil
}

// Payload is the body of a create or update call.
type Payload map[string]any
