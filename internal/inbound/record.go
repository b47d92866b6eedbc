// Package inbound holds the canonical inbound record: the unit persisted by
// storage, rendered into xray server config and encoded into share links.
package inbound

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// BytesPerGiB converts the editor's gigabyte quota into stored bytes.
const BytesPerGiB = 1024 * 1024 * 1024

// Record is one inbound proxy endpoint.
type Record struct {
	ID     string
	Remark string
	Enable bool
	Port   int
	Tag    string
	Listen string

	// Total is the byte quota; 0 means unlimited.
	Total int64
	// Expiry is an epoch-millisecond deadline; 0 means never.
	Expiry int64

	// Up and Down are runtime counters supplied by storage only.
	Up   int64
	Down int64

	Settings ProtocolSettings
	Stream   StreamSettings
}

// Protocol is derived from the settings type.
func (r *Record) Protocol() Protocol {
	if r.Settings == nil {
		return ""
	}
	return r.Settings.Protocol()
}

type recordJSON struct {
	ID             string          `json:"id"`
	Remark         string          `json:"remark"`
	Enable         *bool           `json:"enable,omitempty"`
	Protocol       Protocol        `json:"protocol"`
	Port           int             `json:"port"`
	Tag            string          `json:"tag,omitempty"`
	Listen         string          `json:"listen,omitempty"`
	Total          int64           `json:"total"`
	Expiry         int64           `json:"expiry"`
	Up             int64           `json:"up"`
	Down           int64           `json:"down"`
	Settings       json.RawMessage `json:"settings,omitempty"`
	StreamSettings json.RawMessage `json:"streamSettings,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.Settings == nil {
		return nil, errors.New("inbound record has no protocol settings")
	}
	settings, err := json.Marshal(r.Settings)
	if err != nil {
		return nil, err
	}
	stream, err := json.Marshal(r.Stream)
	if err != nil {
		return nil, err
	}
	enable := r.Enable
	return json.Marshal(recordJSON{
		ID:             r.ID,
		Remark:         r.Remark,
		Enable:         &enable,
		Protocol:       r.Protocol(),
		Port:           r.Port,
		Tag:            r.Tag,
		Listen:         r.Listen,
		Total:          r.Total,
		Expiry:         r.Expiry,
		Up:             r.Up,
		Down:           r.Down,
		Settings:       settings,
		StreamSettings: stream,
	})
}

// UnmarshalJSON accepts settings and streamSettings either as nested objects
// or as JSON-encoded strings and always normalizes to the nested form.
// A missing enable flag reads as true.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	settings, err := DecodeSettings(in.Protocol, in.Settings)
	if err != nil {
		return err
	}
	stream, err := DecodeStream(in.StreamSettings)
	if err != nil {
		return err
	}

	*r = Record{
		ID:       in.ID,
		Remark:   in.Remark,
		Enable:   in.Enable == nil || *in.Enable,
		Port:     in.Port,
		Tag:      in.Tag,
		Listen:   in.Listen,
		Total:    in.Total,
		Expiry:   in.Expiry,
		Up:       in.Up,
		Down:     in.Down,
		Settings: settings,
		Stream:   stream,
	}
	return nil
}

// normalizeObject unwraps a JSON string that itself holds a JSON document.
// It returns nil for null, an empty string or absent input.
func normalizeObject(raw []byte) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '"' {
		return raw, nil
	}

	var inner string
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, err
	}
	inner = string(bytes.TrimSpace([]byte(inner)))
	if inner == "" || inner == "null" {
		return nil, nil
	}
	if !json.Valid([]byte(inner)) {
		return nil, fmt.Errorf("string payload is not valid JSON")
	}
	return []byte(inner), nil
}
