package inbound

import (
	"encoding/json"
	"fmt"
)

// Protocol is the proxy protocol an inbound speaks.
type Protocol string

const (
	VLESS       Protocol = "vless"
	VMess       Protocol = "vmess"
	Trojan      Protocol = "trojan"
	Shadowsocks Protocol = "shadowsocks"
)

// Protocols lists every protocol a record may carry.
var Protocols = []Protocol{VLESS, VMess, Trojan, Shadowsocks}

func (p Protocol) Valid() bool {
	switch p {
	case VLESS, VMess, Trojan, Shadowsocks:
		return true
	}
	return false
}

const (
	FlowNone   = ""
	FlowVision = "xtls-rprx-vision"

	DecryptionNone = "none"
)

// ProtocolSettings is the protocol-specific part of a record. The concrete
// type decides the record's protocol, so a vless record can never carry
// trojan settings.
type ProtocolSettings interface {
	Protocol() Protocol
	// Credential is the primary secret placed in a share link.
	Credential() string
	isProtocolSettings()
}

type VLESSSettings struct {
	Clients    []VLESSClient `json:"clients"`
	Decryption string        `json:"decryption"`
}

type VLESSClient struct {
	ID    string `json:"id"`
	Flow  string `json:"flow,omitempty"`
	Level int    `json:"level,omitempty"`
	Email string `json:"email,omitempty"`
}

type VMessSettings struct {
	Clients []VMessClient `json:"clients"`
}

type VMessClient struct {
	ID      string `json:"id"`
	Level   int    `json:"level,omitempty"`
	Email   string `json:"email,omitempty"`
	AlterID int    `json:"alterId"`
}

type TrojanSettings struct {
	Clients []TrojanClient `json:"clients"`
}

type TrojanClient struct {
	Password string `json:"password"`
	Level    int    `json:"level,omitempty"`
	Email    string `json:"email,omitempty"`
}

// ShadowsocksSettings is flat: shadowsocks inbounds have a single shared
// method/password rather than a client list.
type ShadowsocksSettings struct {
	Method   string `json:"method"`
	Password string `json:"password"`
	Network  string `json:"network"`
}

func (*VLESSSettings) Protocol() Protocol       { return VLESS }
func (*VMessSettings) Protocol() Protocol       { return VMess }
func (*TrojanSettings) Protocol() Protocol      { return Trojan }
func (*ShadowsocksSettings) Protocol() Protocol { return Shadowsocks }

func (*VLESSSettings) isProtocolSettings()       {}
func (*VMessSettings) isProtocolSettings()       {}
func (*TrojanSettings) isProtocolSettings()      {}
func (*ShadowsocksSettings) isProtocolSettings() {}

func (s *VLESSSettings) Credential() string {
	if len(s.Clients) == 0 {
		return ""
	}
	return s.Clients[0].ID
}

func (s *VMessSettings) Credential() string {
	if len(s.Clients) == 0 {
		return ""
	}
	return s.Clients[0].ID
}

func (s *TrojanSettings) Credential() string {
	if len(s.Clients) == 0 {
		return ""
	}
	return s.Clients[0].Password
}

func (s *ShadowsocksSettings) Credential() string { return s.Password }

// Flow returns the first client's flow, or "" when there is none.
func (s *VLESSSettings) Flow() string {
	if len(s.Clients) == 0 {
		return ""
	}
	return s.Clients[0].Flow
}

// NewSettings returns empty settings for the given protocol.
func NewSettings(p Protocol) (ProtocolSettings, error) {
	switch p {
	case VLESS:
		return &VLESSSettings{Decryption: DecryptionNone}, nil
	case VMess:
		return &VMessSettings{}, nil
	case Trojan:
		return &TrojanSettings{}, nil
	case Shadowsocks:
		return &ShadowsocksSettings{}, nil
	}
	return nil, fmt.Errorf("unsupported protocol %q", p)
}

// DecodeSettings parses protocol settings. The payload may be a nested JSON
// object or a JSON string holding one; null or absent yields empty settings.
func DecodeSettings(p Protocol, raw []byte) (ProtocolSettings, error) {
	s, err := NewSettings(p)
	if err != nil {
		return nil, err
	}
	raw, err = normalizeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	if raw == nil {
		return s, nil
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("failed to parse %s settings: %w", p, err)
	}
	return s, nil
}
