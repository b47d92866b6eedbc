package form

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"xinbound/internal/inbound"
	"xinbound/internal/keygen"
)

// Build turns a field model into a canonical record. existingID is reused
// when editing; an empty one gets a fresh id. Up and Down stay zero: they
// belong to storage.
func Build(fm *FieldModel, existingID string, env Env) (*inbound.Record, error) {
	id := existingID
	if id == "" {
		var err error
		if id, err = keygen.NewUUID(env.random()); err != nil {
			return nil, fmt.Errorf("failed to generate record id: %w", err)
		}
	}

	settings, err := buildSettings(fm)
	if err != nil {
		return nil, err
	}
	stream, err := buildStream(fm)
	if err != nil {
		return nil, err
	}
	expiry, err := parseExpiry(fm.ExpiryDate)
	if err != nil {
		return nil, err
	}

	return &inbound.Record{
		ID:       id,
		Remark:   fm.Remark,
		Enable:   fm.Enable,
		Port:     atoi(fm.Port),
		Tag:      fm.Tag,
		Listen:   fm.Listen,
		Total:    gibToBytes(fm.TotalGiB),
		Expiry:   expiry,
		Settings: settings,
		Stream:   stream,
	}, nil
}

func buildSettings(fm *FieldModel) (inbound.ProtocolSettings, error) {
	switch fm.Protocol {
	case inbound.VLESS:
		return &inbound.VLESSSettings{
			Clients: []inbound.VLESSClient{{
				ID:    fm.UUID,
				Flow:  fm.Flow,
				Level: atoi(fm.Level),
				Email: fm.Email,
			}},
			Decryption: firstNonEmpty(fm.Decryption, inbound.DecryptionNone),
		}, nil
	case inbound.VMess:
		return &inbound.VMessSettings{
			Clients: []inbound.VMessClient{{
				ID:      fm.UUID,
				Level:   atoi(fm.Level),
				Email:   fm.Email,
				AlterID: atoi(fm.AlterID),
			}},
		}, nil
	case inbound.Trojan:
		return &inbound.TrojanSettings{
			Clients: []inbound.TrojanClient{{
				Password: fm.Password,
				Level:    atoi(fm.Level),
				Email:    fm.Email,
			}},
		}, nil
	case inbound.Shadowsocks:
		return &inbound.ShadowsocksSettings{
			Method:   fm.SSMethod,
			Password: fm.SSPassword,
			Network:  fm.SSNetwork,
		}, nil
	}
	return nil, fmt.Errorf("unsupported protocol %q", fm.Protocol)
}

func buildStream(fm *FieldModel) (inbound.StreamSettings, error) {
	var s inbound.StreamSettings

	switch fm.Network {
	case inbound.TCP, "":
		s.Transport = &inbound.TCPSettings{}
	case inbound.WS:
		ws := &inbound.WSSettings{Path: fm.WSPath}
		if fm.WSHost != "" {
			ws.Headers = map[string]string{"Host": fm.WSHost}
		}
		s.Transport = ws
	case inbound.GRPC:
		s.Transport = &inbound.GRPCSettings{ServiceName: fm.GRPCServiceName, MultiMode: fm.GRPCMultiMode}
	case inbound.H2:
		h := &inbound.HTTPSettings{Path: fm.H2Path}
		if fm.H2Host != "" {
			h.Host = lo.Map(strings.Split(fm.H2Host, ","), func(s string, _ int) string {
				return strings.TrimSpace(s)
			})
		}
		s.Transport = h
	case inbound.XHTTP:
		s.Transport = &inbound.XHTTPSettings{Mode: fm.XHTTPMode, Path: fm.XHTTPPath, Host: fm.XHTTPHost}
	default:
		return s, fmt.Errorf("unsupported network %q", fm.Network)
	}

	switch fm.Security {
	case inbound.SecurityNone, "":
		s.Security = &inbound.NoSecurity{}
	case inbound.SecurityTLS:
		s.Security = &inbound.TLSSettings{ServerName: fm.TLSServerName}
	case inbound.SecurityReality:
		s.Security = &inbound.RealitySettings{
			Show:         fm.RealityShow,
			Dest:         fm.RealityDest,
			Xver:         atoi(fm.RealityXver),
			ServerNames:  splitLines(fm.RealityServerNames),
			PrivateKey:   fm.RealityPrivateKey,
			PublicKey:    fm.RealityPublicKey,
			ShortIDs:     splitLines(fm.RealityShortIDs),
			Fingerprint:  fm.RealityFingerprint,
			MinClientVer: fm.RealityMinClientVer,
			MaxClientVer: fm.RealityMaxClientVer,
			MaxTimeDiff:  atoi(fm.RealityMaxTimeDiff),
		}
	default:
		return s, fmt.Errorf("unsupported security %q", fm.Security)
	}

	// acceptProxyProtocol alone still opens an (empty) sockopt block.
	if fm.TCPFastOpen || fm.TCPNoDelay || fm.AcceptProxyProtocol {
		so := &inbound.Sockopt{}
		if fm.TCPFastOpen {
			so.TCPFastOpen = lo.ToPtr(true)
		}
		if fm.TCPNoDelay {
			so.TCPNoDelay = lo.ToPtr(true)
		}
		s.Sockopt = so
	}
	s.AcceptProxyProtocol = fm.AcceptProxyProtocol

	return s, nil
}

// splitLines splits a textarea value into its non-blank lines.
func splitLines(v string) []string {
	return lo.FilterMap(strings.Split(v, "\n"), func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	})
}

// atoi is lenient: blank or malformed input reads as 0.
func atoi(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

func gibToBytes(v string) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return 0
	}
	return int64(f * inbound.BytesPerGiB)
}

// parseExpiry reads a YYYY-MM-DD date as midnight UTC.
func parseExpiry(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry date %q: %w", v, err)
	}
	return t.UnixMilli(), nil
}
