package sharelink

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"xinbound/internal/inbound"
)

// Parse reads a vless or trojan share link. Other schemes yield an
// EncodingError.
func Parse(raw string) (*Link, error) {
	raw = cleanLink(raw)
	scheme, _, ok := strings.Cut(raw, "://")
	if !ok {
		return nil, fmt.Errorf("invalid uri format")
	}

	switch strings.ToLower(scheme) {
	case "vless":
		return parseGeneric(raw, inbound.VLESS, inbound.SecurityNone)
	case "trojan":
		return parseGeneric(raw, inbound.Trojan, inbound.SecurityTLS)
	case "ss":
		return nil, &EncodingError{Protocol: string(inbound.Shadowsocks)}
	default:
		return nil, &EncodingError{Protocol: strings.ToLower(scheme)}
	}
}

func parseGeneric(raw string, p inbound.Protocol, defaultSecurity inbound.SecurityKind) (*Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.User == nil || u.User.Username() == "" {
		return nil, fmt.Errorf("%s link has no credential", p)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return nil, fmt.Errorf("%s link has invalid port %q", p, u.Port())
	}

	cred := u.User.Username()
	if pass, ok := u.User.Password(); ok {
		cred += ":" + pass
	}

	l := &Link{
		Protocol:   p,
		Credential: cred,
		Address:    u.Hostname(),
		Port:       port,
		Remark:     u.Fragment,
		Network:    inbound.TCP,
		Security:   defaultSecurity,
	}
	parseQueryParam(l, u.Query())
	return l, nil
}

func parseQueryParam(l *Link, q url.Values) {
	if v := q.Get("type"); v != "" {
		l.Network = inbound.Network(v)
	}
	if v := q.Get("security"); v != "" {
		l.Security = inbound.SecurityKind(v)
	}
	l.Flow = q.Get("flow")
	l.SNI = q.Get("sni")
	l.Fingerprint = q.Get("fp")
	l.PublicKey = q.Get("pbk")
	l.ShortID = q.Get("sid")
	l.Path = q.Get("path")
	l.Host = q.Get("host")
	l.ServiceName = q.Get("serviceName")
	l.Mode = q.Get("mode")
}
