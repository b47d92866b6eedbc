package sharelink

import (
	"net"
	"strconv"
	"strings"

	"xinbound/internal/inbound"
)

// String renders the link. Query keys follow a fixed order so identical
// records always produce identical links.
func (l *Link) String() string {
	var q query

	switch l.Protocol {
	case inbound.VLESS:
		q.set("type", string(l.Network))
		q.set("security", string(l.Security))
		if l.Flow != "" {
			q.set("flow", l.Flow)
		}
		switch l.Security {
		case inbound.SecurityReality:
			q.set("sni", l.SNI)
			q.set("fp", l.Fingerprint)
			q.set("pbk", l.PublicKey)
			q.set("sid", l.ShortID)
		case inbound.SecurityTLS:
			q.set("sni", l.SNI)
		}
	case inbound.Trojan:
		q.set("security", string(l.Security))
		q.set("type", string(l.Network))
		q.set("sni", l.SNI)
	}

	switch l.Network {
	case inbound.WS:
		q.set("path", l.Path)
		q.set("host", l.Host)
	case inbound.GRPC:
		q.set("serviceName", l.ServiceName)
	}

	var b strings.Builder
	b.WriteString(string(l.Protocol))
	b.WriteString("://")
	b.WriteString(escapeComponent(l.Credential))
	b.WriteByte('@')
	b.WriteString(net.JoinHostPort(l.Address, strconv.Itoa(l.Port)))
	b.WriteByte('?')
	b.WriteString(q.encode())
	b.WriteByte('#')
	b.WriteString(escapeComponent(l.Remark))
	return b.String()
}

// query is an insertion-ordered parameter list. url.Values sorts its keys
// on Encode, which would break golden links.
type query struct {
	keys []string
	vals []string
}

func (q *query) set(key, val string) {
	for i, k := range q.keys {
		if k == key {
			q.vals[i] = val
			return
		}
	}
	q.keys = append(q.keys, key)
	q.vals = append(q.vals, val)
}

// encode uses form encoding: space becomes '+' and only alphanumerics and
// "*-._" pass through.
func (q *query) encode() string {
	var b strings.Builder
	for i, k := range q.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(k, "*-._", true))
		b.WriteByte('=')
		b.WriteString(escape(q.vals[i], "*-._", true))
	}
	return b.String()
}

// escapeComponent percent-encodes everything except alphanumerics and
// "-_.!~*'()", so remarks read back identically in browsers and clients.
func escapeComponent(s string) string {
	return escape(s, "-_.!~*'()", false)
}

const upperhex = "0123456789ABCDEF"

func escape(s, keep string, spaceAsPlus bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case strings.IndexByte(keep, c) >= 0:
			b.WriteByte(c)
		case c == ' ' && spaceAsPlus:
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
		}
	}
	return b.String()
}
