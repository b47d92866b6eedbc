// Package sharelink converts inbound records to and from the share-link URIs
// that proxy clients import.
package sharelink

import (
	"errors"
	"fmt"

	"xinbound/internal/inbound"
)

// ErrUnsupportedProtocol is wrapped by every EncodingError.
var ErrUnsupportedProtocol = errors.New("unsupported share-link protocol")

// EncodingError reports a protocol without a share-link grammar.
type EncodingError struct {
	Protocol string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("no share-link grammar for protocol %q", e.Protocol)
}

func (e *EncodingError) Unwrap() error { return ErrUnsupportedProtocol }

// Link is the flat set of connection parameters a share link carries.
// It sits between a record and its URI in both directions.
type Link struct {
	Protocol   inbound.Protocol
	Credential string // uuid for vless, password for trojan
	Address    string
	Port       int
	Remark     string
	Flow       string

	Network  inbound.Network
	Security inbound.SecurityKind

	// Security layer
	SNI         string
	Fingerprint string
	PublicKey   string // pbk
	ShortID     string // sid

	// Transport
	Path        string
	Host        string
	ServiceName string
	Mode        string // xhttp mode; read but never written
}

// FromRecord collects the parameters of rec that a link carries, with
// address as the server the client should dial.
func FromRecord(rec *inbound.Record, address string) (*Link, error) {
	p := rec.Protocol()
	if p != inbound.VLESS && p != inbound.Trojan {
		return nil, &EncodingError{Protocol: string(p)}
	}

	stream := rec.Stream
	l := &Link{
		Protocol:   p,
		Credential: rec.Settings.Credential(),
		Address:    address,
		Port:       rec.Port,
		Remark:     rec.Remark,
		Network:    stream.Network(),
		Security:   stream.SecurityKind(),
	}

	switch p {
	case inbound.VLESS:
		l.Flow = rec.Settings.(*inbound.VLESSSettings).Flow()
		if r := stream.Reality(); r != nil {
			l.SNI = r.FirstServerName()
			l.Fingerprint = r.Fingerprint
			if l.Fingerprint == "" {
				l.Fingerprint = "chrome"
			}
			l.PublicKey = r.PublicKey
			l.ShortID = r.FirstShortID()
		} else if t := stream.TLS(); t != nil {
			l.SNI = t.ServerName
		}
	case inbound.Trojan:
		// A trojan record with no security layer at all is served over tls.
		if stream.Security == nil {
			l.Security = inbound.SecurityTLS
		}
		if t := stream.TLS(); t != nil {
			l.SNI = t.ServerName
		}
	}

	switch t := stream.Transport.(type) {
	case *inbound.WSSettings:
		l.Path = t.Path
		if l.Path == "" {
			l.Path = "/"
		}
		l.Host = t.Host()
	case *inbound.GRPCSettings:
		l.ServiceName = t.ServiceName
	}

	return l, nil
}

// Record rebuilds the inbound described by the link. Only the fields the
// grammar carries are set; the server address is left on the link.
func (l *Link) Record() (*inbound.Record, error) {
	var settings inbound.ProtocolSettings
	switch l.Protocol {
	case inbound.VLESS:
		settings = &inbound.VLESSSettings{
			Clients:    []inbound.VLESSClient{{ID: l.Credential, Flow: l.Flow}},
			Decryption: inbound.DecryptionNone,
		}
	case inbound.Trojan:
		settings = &inbound.TrojanSettings{
			Clients: []inbound.TrojanClient{{Password: l.Credential}},
		}
	default:
		return nil, &EncodingError{Protocol: string(l.Protocol)}
	}

	var stream inbound.StreamSettings
	switch l.Network {
	case inbound.TCP, "":
		stream.Transport = &inbound.TCPSettings{}
	case inbound.WS:
		ws := &inbound.WSSettings{Path: l.Path}
		if l.Host != "" {
			ws.Headers = map[string]string{"Host": l.Host}
		}
		stream.Transport = ws
	case inbound.GRPC:
		stream.Transport = &inbound.GRPCSettings{ServiceName: l.ServiceName}
	case inbound.H2:
		h := &inbound.HTTPSettings{Path: l.Path}
		if l.Host != "" {
			h.Host = []string{l.Host}
		}
		stream.Transport = h
	case inbound.XHTTP:
		mode := l.Mode
		if mode == "" {
			mode = inbound.XHTTPModeAuto
		}
		stream.Transport = &inbound.XHTTPSettings{Mode: mode, Path: l.Path, Host: l.Host}
	default:
		return nil, fmt.Errorf("unsupported network %q in share link", l.Network)
	}

	switch l.Security {
	case inbound.SecurityNone, "":
		stream.Security = &inbound.NoSecurity{}
	case inbound.SecurityTLS:
		stream.Security = &inbound.TLSSettings{ServerName: l.SNI}
	case inbound.SecurityReality:
		stream.Security = &inbound.RealitySettings{
			ServerNames: nonEmpty(l.SNI),
			PublicKey:   l.PublicKey,
			ShortIDs:    nonEmpty(l.ShortID),
			Fingerprint: l.Fingerprint,
		}
	default:
		return nil, fmt.Errorf("unsupported security %q in share link", l.Security)
	}

	return &inbound.Record{
		Remark:   l.Remark,
		Enable:   true,
		Port:     l.Port,
		Settings: settings,
		Stream:   stream,
	}, nil
}

// Encode renders rec as a share link pointing at address.
func Encode(rec *inbound.Record, address string) (string, error) {
	l, err := FromRecord(rec, address)
	if err != nil {
		return "", err
	}
	return l.String(), nil
}

// Decode parses a share link into a record and the server address it names.
func Decode(uri string) (*inbound.Record, string, error) {
	l, err := Parse(uri)
	if err != nil {
		return nil, "", err
	}
	rec, err := l.Record()
	if err != nil {
		return nil, "", err
	}
	return rec, l.Address, nil
}

func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
