package inbound

import (
	"encoding/json"
	"fmt"
)

// Network is the transport framing of an inbound.
type Network string

const (
	TCP   Network = "tcp"
	WS    Network = "ws"
	GRPC  Network = "grpc"
	H2    Network = "h2"
	XHTTP Network = "xhttp"
)

var Networks = []Network{TCP, WS, GRPC, H2, XHTTP}

// SecurityKind is the layer wrapping the transport.
type SecurityKind string

const (
	SecurityNone    SecurityKind = "none"
	SecurityTLS     SecurityKind = "tls"
	SecurityReality SecurityKind = "reality"
)

var SecurityKinds = []SecurityKind{SecurityNone, SecurityTLS, SecurityReality}

// XHTTP upload modes.
const (
	XHTTPModeAuto      = "auto"
	XHTTPModePacketUp  = "packet-up"
	XHTTPModeStreamUp  = "stream-up"
	XHTTPModeStreamOne = "stream-one"
)

// Transport is the network-specific block of the stream settings. Exactly
// one transport is carried, so sibling blocks cannot coexist.
type Transport interface {
	Network() Network
	isTransport()
}

// TCPSettings carries nothing; raw tcp has no settings block in the record.
type TCPSettings struct{}

type WSSettings struct {
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers,omitempty"`
}

type GRPCSettings struct {
	ServiceName string `json:"serviceName"`
	MultiMode   bool   `json:"multiMode"`
}

type HTTPSettings struct {
	Host []string `json:"host,omitempty"`
	Path string   `json:"path"`
}

type XHTTPSettings struct {
	Mode string `json:"mode"`
	Path string `json:"path"`
	Host string `json:"host,omitempty"`
}

func (*TCPSettings) Network() Network   { return TCP }
func (*WSSettings) Network() Network    { return WS }
func (*GRPCSettings) Network() Network  { return GRPC }
func (*HTTPSettings) Network() Network  { return H2 }
func (*XHTTPSettings) Network() Network { return XHTTP }

func (*TCPSettings) isTransport()   {}
func (*WSSettings) isTransport()    {}
func (*GRPCSettings) isTransport()  {}
func (*HTTPSettings) isTransport()  {}
func (*XHTTPSettings) isTransport() {}

// Host returns the Host header, if any.
func (w *WSSettings) Host() string {
	if w.Headers == nil {
		return ""
	}
	return w.Headers["Host"]
}

// Security is the security-layer block of the stream settings.
type Security interface {
	Kind() SecurityKind
	isSecurity()
}

type NoSecurity struct{}

type TLSSettings struct {
	ServerName string `json:"serverName"`
}

type RealitySettings struct {
	Show         bool     `json:"show"`
	Dest         string   `json:"dest"`
	Xver         int      `json:"xver"`
	ServerNames  []string `json:"serverNames"`
	PrivateKey   string   `json:"privateKey"`
	PublicKey    string   `json:"publicKey"`
	ShortIDs     []string `json:"shortIds"`
	Fingerprint  string   `json:"fingerprint"`
	MinClientVer string   `json:"minClientVer,omitempty"`
	MaxClientVer string   `json:"maxClientVer,omitempty"`
	MaxTimeDiff  int      `json:"maxTimeDiff,omitempty"`
}

func (*NoSecurity) Kind() SecurityKind      { return SecurityNone }
func (*TLSSettings) Kind() SecurityKind     { return SecurityTLS }
func (*RealitySettings) Kind() SecurityKind { return SecurityReality }

func (*NoSecurity) isSecurity()      {}
func (*TLSSettings) isSecurity()     {}
func (*RealitySettings) isSecurity() {}

func (r *RealitySettings) FirstServerName() string {
	if len(r.ServerNames) == 0 {
		return ""
	}
	return r.ServerNames[0]
}

func (r *RealitySettings) FirstShortID() string {
	if len(r.ShortIDs) == 0 {
		return ""
	}
	return r.ShortIDs[0]
}

// Sockopt flags are pointers: an absent key means "unset", which downstream
// consumers treat differently from an explicit false.
type Sockopt struct {
	TCPFastOpen *bool `json:"tcpFastOpen,omitempty"`
	TCPNoDelay  *bool `json:"tcpNoDelay,omitempty"`
}

type StreamSettings struct {
	Transport           Transport
	Security            Security
	Sockopt             *Sockopt
	AcceptProxyProtocol bool
}

// Network defaults to tcp when no transport is set.
func (s StreamSettings) Network() Network {
	if s.Transport == nil {
		return TCP
	}
	return s.Transport.Network()
}

// SecurityKind defaults to none when no security layer is set.
func (s StreamSettings) SecurityKind() SecurityKind {
	if s.Security == nil {
		return SecurityNone
	}
	return s.Security.Kind()
}

// Reality returns the reality block, or nil for other security layers.
func (s StreamSettings) Reality() *RealitySettings {
	r, _ := s.Security.(*RealitySettings)
	return r
}

// TLS returns the tls block, or nil for other security layers.
func (s StreamSettings) TLS() *TLSSettings {
	t, _ := s.Security.(*TLSSettings)
	return t
}

type streamJSON struct {
	Network             Network          `json:"network"`
	Security            SecurityKind     `json:"security,omitempty"`
	WSSettings          *WSSettings      `json:"wsSettings,omitempty"`
	GRPCSettings        *GRPCSettings    `json:"grpcSettings,omitempty"`
	HTTPSettings        *HTTPSettings    `json:"httpSettings,omitempty"`
	XHTTPSettings       *XHTTPSettings   `json:"xhttpSettings,omitempty"`
	TLSSettings         *TLSSettings     `json:"tlsSettings,omitempty"`
	RealitySettings     *RealitySettings `json:"realitySettings,omitempty"`
	Sockopt             *Sockopt         `json:"sockopt,omitempty"`
	AcceptProxyProtocol bool             `json:"acceptProxyProtocol,omitempty"`
}

func (s StreamSettings) MarshalJSON() ([]byte, error) {
	out := streamJSON{
		Network:             s.Network(),
		Sockopt:             s.Sockopt,
		AcceptProxyProtocol: s.AcceptProxyProtocol,
	}

	switch t := s.Transport.(type) {
	case *WSSettings:
		out.WSSettings = t
	case *GRPCSettings:
		out.GRPCSettings = t
	case *HTTPSettings:
		out.HTTPSettings = t
	case *XHTTPSettings:
		out.XHTTPSettings = t
	}

	// An unset layer stays unset so link defaults can still apply.
	if s.Security != nil {
		out.Security = s.Security.Kind()
	}
	switch sec := s.Security.(type) {
	case *TLSSettings:
		// The editor has no tls panel; an empty block is left out.
		if sec.ServerName != "" {
			out.TLSSettings = sec
		}
	case *RealitySettings:
		out.RealitySettings = sec
	}

	return json.Marshal(out)
}

func (s *StreamSettings) UnmarshalJSON(data []byte) error {
	var in streamJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	switch in.Network {
	case "", TCP:
		s.Transport = &TCPSettings{}
	case WS:
		s.Transport = orNew(in.WSSettings)
	case GRPC:
		s.Transport = orNew(in.GRPCSettings)
	case H2:
		s.Transport = orNew(in.HTTPSettings)
	case XHTTP:
		s.Transport = orNew(in.XHTTPSettings)
	default:
		return fmt.Errorf("unsupported network %q", in.Network)
	}

	switch in.Security {
	case "":
		s.Security = nil
	case SecurityNone:
		s.Security = &NoSecurity{}
	case SecurityTLS:
		s.Security = orNew(in.TLSSettings)
	case SecurityReality:
		s.Security = orNew(in.RealitySettings)
	default:
		return fmt.Errorf("unsupported security %q", in.Security)
	}

	s.Sockopt = in.Sockopt
	s.AcceptProxyProtocol = in.AcceptProxyProtocol
	return nil
}

// DecodeStream parses stream settings from a nested object or a JSON string
// holding one; null or absent yields tcp with the security layer unset.
func DecodeStream(raw []byte) (StreamSettings, error) {
	var s StreamSettings
	raw, err := normalizeObject(raw)
	if err != nil {
		return s, fmt.Errorf("streamSettings: %w", err)
	}
	if raw == nil {
		return StreamSettings{Transport: &TCPSettings{}}, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("failed to parse streamSettings: %w", err)
	}
	return s, nil
}

func orNew[T any](v *T) *T {
	if v == nil {
		return new(T)
	}
	return v
}
