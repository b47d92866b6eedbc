// Package form is the editable side of an inbound: a flat field model with
// defaults, rehydration from a stored record, the builder that turns it into
// a canonical record and the validator guarding that path.
package form

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	mathrand "math/rand/v2"
	"strconv"
	"strings"
	"time"

	"xinbound/internal/inbound"
	"xinbound/internal/keygen"
	"xinbound/internal/logger"
)

const (
	DefaultSSMethod           = "chacha20-ietf-poly1305"
	DefaultSSNetwork          = "tcp,udp"
	DefaultRealityDest        = "www.microsoft.com:443"
	DefaultRealityServerNames = "www.microsoft.com"
	DefaultRealityFingerprint = "chrome"

	portRangeMin = 10000
	portRangeMax = 60000

	dateLayout = "2006-01-02"
)

// Env carries the ambient inputs the editor would otherwise pull from its
// host. A nil Rand means crypto/rand.
type Env struct {
	Rand io.Reader
}

func (e Env) random() io.Reader {
	if e.Rand == nil {
		return rand.Reader
	}
	return e.Rand
}

// FieldModel holds one editing session's input. Numeric and date fields are
// kept as the strings the user typed; the builder coerces them.
type FieldModel struct {
	// Base
	Remark     string
	Enable     bool
	Protocol   inbound.Protocol
	Tag        string
	Listen     string
	Port       string
	TotalGiB   string
	ExpiryDate string

	// Protocol
	UUID       string
	Flow       string
	Level      string
	Email      string
	AlterID    string
	Password   string
	SSMethod   string
	SSPassword string
	SSNetwork  string
	Decryption string

	// Transport
	Network         inbound.Network
	WSPath          string
	WSHost          string
	GRPCServiceName string
	GRPCMultiMode   bool
	H2Host          string
	H2Path          string
	XHTTPMode       string
	XHTTPPath       string
	XHTTPHost       string

	// Security
	Security            inbound.SecurityKind
	TLSServerName       string
	RealityShow         bool
	RealityDest         string
	RealityXver         string
	RealityFingerprint  string
	RealityServerNames  string
	RealityPrivateKey   string
	RealityPublicKey    string
	RealityShortIDs     string
	RealityMinClientVer string
	RealityMaxClientVer string
	RealityMaxTimeDiff  string

	// Socket options
	AcceptProxyProtocol bool
	TCPFastOpen         bool
	TCPNoDelay          bool
}

// New returns a field model for a fresh inbound.
func New(env Env) *FieldModel {
	fm := defaults()
	fm.Port = strconv.Itoa(randomPort(env))
	fm.UUID = newClientUUID(env)
	return fm
}

func defaults() *FieldModel {
	return &FieldModel{
		Enable:   true,
		Protocol: inbound.VLESS,
		TotalGiB: "0",

		Level:      "0",
		AlterID:    "0",
		SSMethod:   DefaultSSMethod,
		SSNetwork:  DefaultSSNetwork,
		Decryption: inbound.DecryptionNone,

		Network:   inbound.TCP,
		WSPath:    "/",
		H2Path:    "/",
		XHTTPMode: inbound.XHTTPModeAuto,
		XHTTPPath: "/",

		Security:           inbound.SecurityNone,
		RealityDest:        DefaultRealityDest,
		RealityXver:        "0",
		RealityFingerprint: DefaultRealityFingerprint,
		RealityServerNames: DefaultRealityServerNames,

		TCPFastOpen: true,
		TCPNoDelay:  true,
	}
}

// randomPort picks a port in [10000, 60000). Ports are not secrets, so a
// failing source falls back to math/rand.
func randomPort(env Env) int {
	var b [4]byte
	if _, err := io.ReadFull(env.random(), b[:]); err != nil {
		return portRangeMin + mathrand.IntN(portRangeMax-portRangeMin)
	}
	return portRangeMin + int(binary.BigEndian.Uint32(b[:])%uint32(portRangeMax-portRangeMin))
}

// newClientUUID generates a client credential. The insecure fallback only
// runs when the random source is broken and is always logged.
func newClientUUID(env Env) string {
	id, err := keygen.NewUUID(env.random())
	if err != nil {
		logger.Log.Warnf("⚠️  Random source failed (%v); using NON-CRYPTOGRAPHIC uuid fallback for client id", err)
		return keygen.InsecureUUID()
	}
	return id
}

// FromRecord rehydrates a field model from a stored record. Every field the
// record lacks falls back to the create-path default, so partially specified
// legacy records still load.
func FromRecord(rec *inbound.Record, env Env) *FieldModel {
	fm := defaults()

	fm.Remark = rec.Remark
	fm.Enable = rec.Enable
	if p := rec.Protocol(); p != "" {
		fm.Protocol = p
	}
	fm.Tag = rec.Tag
	fm.Listen = rec.Listen
	fm.Port = ""
	if rec.Port != 0 {
		fm.Port = strconv.Itoa(rec.Port)
	}
	fm.TotalGiB = strconv.FormatFloat(float64(rec.Total)/inbound.BytesPerGiB, 'f', -1, 64)
	fm.ExpiryDate = ""
	if rec.Expiry != 0 {
		fm.ExpiryDate = time.UnixMilli(rec.Expiry).UTC().Format(dateLayout)
	}

	switch s := rec.Settings.(type) {
	case *inbound.VLESSSettings:
		if len(s.Clients) > 0 {
			c := s.Clients[0]
			fm.UUID = c.ID
			fm.Flow = c.Flow
			fm.Level = strconv.Itoa(c.Level)
			fm.Email = c.Email
		}
		if s.Decryption != "" {
			fm.Decryption = s.Decryption
		}
	case *inbound.VMessSettings:
		if len(s.Clients) > 0 {
			c := s.Clients[0]
			fm.UUID = c.ID
			fm.Level = strconv.Itoa(c.Level)
			fm.Email = c.Email
			fm.AlterID = strconv.Itoa(c.AlterID)
		}
	case *inbound.TrojanSettings:
		if len(s.Clients) > 0 {
			c := s.Clients[0]
			fm.Password = c.Password
			fm.Level = strconv.Itoa(c.Level)
			fm.Email = c.Email
		}
	case *inbound.ShadowsocksSettings:
		fm.SSMethod = firstNonEmpty(s.Method, DefaultSSMethod)
		fm.SSPassword = s.Password
		fm.SSNetwork = firstNonEmpty(s.Network, DefaultSSNetwork)
	}
	if fm.UUID == "" {
		fm.UUID = newClientUUID(env)
	}

	stream := rec.Stream
	fm.Network = stream.Network()
	fm.Security = stream.SecurityKind()

	switch t := stream.Transport.(type) {
	case *inbound.WSSettings:
		fm.WSPath = firstNonEmpty(t.Path, "/")
		fm.WSHost = t.Host()
	case *inbound.GRPCSettings:
		fm.GRPCServiceName = t.ServiceName
		fm.GRPCMultiMode = t.MultiMode
	case *inbound.HTTPSettings:
		fm.H2Host = strings.Join(t.Host, ",")
		fm.H2Path = firstNonEmpty(t.Path, "/")
	case *inbound.XHTTPSettings:
		fm.XHTTPMode = firstNonEmpty(t.Mode, inbound.XHTTPModeAuto)
		fm.XHTTPPath = firstNonEmpty(t.Path, "/")
		fm.XHTTPHost = t.Host
	}

	switch sec := stream.Security.(type) {
	case *inbound.TLSSettings:
		fm.TLSServerName = sec.ServerName
	case *inbound.RealitySettings:
		fm.RealityShow = sec.Show
		fm.RealityDest = firstNonEmpty(sec.Dest, DefaultRealityDest)
		fm.RealityXver = strconv.Itoa(sec.Xver)
		fm.RealityFingerprint = firstNonEmpty(sec.Fingerprint, DefaultRealityFingerprint)
		fm.RealityServerNames = firstNonEmpty(strings.Join(sec.ServerNames, "\n"), DefaultRealityServerNames)
		fm.RealityPrivateKey = sec.PrivateKey
		fm.RealityPublicKey = sec.PublicKey
		fm.RealityShortIDs = strings.Join(sec.ShortIDs, "\n")
		fm.RealityMinClientVer = sec.MinClientVer
		fm.RealityMaxClientVer = sec.MaxClientVer
		if sec.MaxTimeDiff != 0 {
			fm.RealityMaxTimeDiff = strconv.Itoa(sec.MaxTimeDiff)
		}
	}

	if so := stream.Sockopt; so != nil {
		if so.TCPFastOpen != nil {
			fm.TCPFastOpen = *so.TCPFastOpen
		}
		if so.TCPNoDelay != nil {
			fm.TCPNoDelay = *so.TCPNoDelay
		}
	}
	fm.AcceptProxyProtocol = stream.AcceptProxyProtocol

	return fm
}

// SetSecurity switches the security layer. Selecting reality fills in a
// short id and a key pair when they are missing; values already present are
// never replaced. On a generation error the field it would have set stays
// as it was.
func (fm *FieldModel) SetSecurity(kind inbound.SecurityKind, env Env) error {
	fm.Security = kind
	if kind != inbound.SecurityReality {
		return nil
	}

	if strings.TrimSpace(fm.RealityShortIDs) == "" {
		sid, err := keygen.NewShortID(env.random())
		if err != nil {
			return err
		}
		fm.RealityShortIDs = sid
	}

	if fm.RealityPrivateKey == "" {
		kp, err := keygen.GenerateKeyPair(env.random())
		if err != nil {
			return err
		}
		fm.RealityPrivateKey = kp.PrivateKey
		fm.RealityPublicKey = kp.PublicKey
	} else if fm.RealityPublicKey == "" {
		// A share link needs the public half; derive it when we can.
		if pub, err := keygen.PublicKey(fm.RealityPrivateKey); err == nil {
			fm.RealityPublicKey = pub
		}
	}
	return nil
}

// ApplyKeyPair replaces both reality keys at once.
func (fm *FieldModel) ApplyKeyPair(kp keygen.KeyPair) {
	fm.RealityPrivateKey = kp.PrivateKey
	fm.RealityPublicKey = kp.PublicKey
}

func firstNonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
