package xray

import (
	"encoding/json"
	"fmt"

	"github.com/xtls/xray-core/infra/conf"

	"xinbound/internal/inbound"
)

// InboundEntry is one entry of the server's "inbounds" array.
type InboundEntry struct {
	Tag            string          `json:"tag"`
	Listen         string          `json:"listen,omitempty"`
	Port           int             `json:"port"`
	Protocol       string          `json:"protocol"`
	Settings       json.RawMessage `json:"settings"`
	StreamSettings json.RawMessage `json:"streamSettings,omitempty"`
}

// InboundTag is the record's own tag, or one derived from its id.
func InboundTag(rec *inbound.Record) string {
	if rec.Tag != "" {
		return rec.Tag
	}
	return "inbound-" + rec.ID
}

func toInboundJSON(rec *inbound.Record) (*InboundEntry, error) {
	if rec.Settings == nil {
		return nil, fmt.Errorf("record %s has no protocol settings", rec.ID)
	}
	settings, err := json.Marshal(rec.Settings)
	if err != nil {
		return nil, err
	}
	stream, err := serverStream(rec.Stream)
	if err != nil {
		return nil, err
	}
	return &InboundEntry{
		Tag:            InboundTag(rec),
		Listen:         rec.Listen,
		Port:           rec.Port,
		Protocol:       string(rec.Protocol()),
		Settings:       settings,
		StreamSettings: stream,
	}, nil
}

// serverStream adapts the record's stream block to what xray expects on the
// server side: the proxy-protocol flag lives in sockopt, and the client-only
// reality fields are dropped.
func serverStream(s inbound.StreamSettings) (json.RawMessage, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	if accept, _ := m["acceptProxyProtocol"].(bool); accept {
		so, _ := m["sockopt"].(map[string]any)
		if so == nil {
			so = map[string]any{}
		}
		so["acceptProxyProtocol"] = true
		m["sockopt"] = so
	}
	delete(m, "acceptProxyProtocol")

	if rs, ok := m["realitySettings"].(map[string]any); ok {
		delete(rs, "publicKey")
		delete(rs, "fingerprint")
	}
	return json.Marshal(m)
}

// ToInbound converts a record into xray-core's inbound detour config.
func ToInbound(rec *inbound.Record) (*conf.InboundDetourConfig, error) {
	in, err := toInboundJSON(rec)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var detour conf.InboundDetourConfig
	if err := json.Unmarshal(raw, &detour); err != nil {
		return nil, fmt.Errorf("inbound %s: %w", in.Tag, err)
	}
	return &detour, nil
}
