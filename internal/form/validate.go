package form

import (
	"strconv"
	"strings"

	"xinbound/internal/inbound"
)

// Rule names one submission check.
type Rule string

const (
	RuleRemarkRequired            Rule = "remark_required"
	RulePortInvalid               Rule = "port_invalid"
	RuleUUIDRequired              Rule = "uuid_required"
	RulePasswordRequired          Rule = "password_required"
	RuleSSPasswordRequired        Rule = "ss_password_required"
	RuleRealityPrivateKeyRequired Rule = "reality_private_key_required"
)

// ValidationError reports the first rule a field model violates.
type ValidationError struct {
	Rule    Rule
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks a field model before it is built and submitted. It stops
// at the first violation; the order below is the order users see errors in.
func Validate(fm *FieldModel) error {
	if strings.TrimSpace(fm.Remark) == "" {
		return &ValidationError{RuleRemarkRequired, "remark", "remark is required"}
	}

	if port, err := strconv.Atoi(strings.TrimSpace(fm.Port)); err != nil || port < 1 || port > 65535 {
		return &ValidationError{RulePortInvalid, "port", "port must be a number between 1 and 65535"}
	}

	switch fm.Protocol {
	case inbound.VLESS, inbound.VMess:
		if fm.UUID == "" {
			return &ValidationError{RuleUUIDRequired, "uuid", "client uuid is required"}
		}
	case inbound.Trojan:
		if fm.Password == "" {
			return &ValidationError{RulePasswordRequired, "password", "trojan password is required"}
		}
	case inbound.Shadowsocks:
		if fm.SSPassword == "" {
			return &ValidationError{RuleSSPasswordRequired, "ssPassword", "shadowsocks password is required"}
		}
	}

	if fm.Security == inbound.SecurityReality && fm.RealityPrivateKey == "" {
		return &ValidationError{RuleRealityPrivateKeyRequired, "realityPrivateKey", "reality private key is required"}
	}
	return nil
}
