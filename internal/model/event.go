package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload carries the handler-specific fields of a token event.
type Payload map[string]any

// TokenEvent is a normalized marketplace event derived from one matched
// operation. ID is derived deterministically from immutable operation
// fields, so re-ingesting the same logical event reproduces the same ID
// and downstream storage can upsert instead of duplicating.
type TokenEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	OpID      string    `json:"opid"`
	Timestamp time.Time `json:"timestamp"`
	Level     int64     `json:"level"`
	Payload   Payload   `json:"-"`
}

// MarshalJSON flattens the payload fields next to the common header fields.
func (e TokenEvent) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Payload)+5)
	for k, v := range e.Payload {
		out[k] = v
	}
	out["id"] = e.ID
	out["type"] = e.Type
	out["opid"] = e.OpID
	out["timestamp"] = e.Timestamp
	out["level"] = e.Level
	return json.Marshal(out)
}

// UnmarshalJSON splits the flat encoding back into header and payload.
func (e *TokenEvent) UnmarshalJSON(data []byte) error {
	type header struct {
		ID        string    `json:"id"`
		Type      string    `json:"type"`
		OpID      string    `json:"opid"`
		Timestamp time.Time `json:"timestamp"`
		Level     int64     `json:"level"`
	}

	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}

	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	delete(flat, "id")
	delete(flat, "type")
	delete(flat, "opid")
	delete(flat, "timestamp")
	delete(flat, "level")
	if len(flat) == 0 {
		flat = nil
	}

	*e = TokenEvent{
		ID:        h.ID,
		Type:      h.Type,
		OpID:      h.OpID,
		Timestamp: h.Timestamp,
		Level:     h.Level,
		Payload:   flat,
	}
	return nil
}

// PayloadString returns a payload field as a string.
func (e TokenEvent) PayloadString(key string) (string, bool) {
	v, ok := e.Payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (e TokenEvent) String() string {
	return fmt.Sprintf("%s(id=%s opid=%s level=%d)", e.Type, e.ID, e.OpID, e.Level)
}
