package inbound

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRecordUnmarshalStringEncodedSettings(t *testing.T) {
	raw := `{
		"id": "abc",
		"remark": "legacy",
		"protocol": "vless",
		"port": 443,
		"settings": "{\"clients\":[{\"id\":\"11111111-1111-4111-8111-111111111111\",\"flow\":\"xtls-rprx-vision\"}],\"decryption\":\"none\"}",
		"streamSettings": "{\"network\":\"ws\",\"security\":\"none\",\"wsSettings\":{\"path\":\"/x\",\"headers\":{\"Host\":\"ex.com\"}}}",
		"up": 10,
		"down": 20
	}`

	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if r.Protocol() != VLESS {
		t.Fatalf("protocol = %q, want vless", r.Protocol())
	}
	if !r.Enable {
		t.Fatalf("missing enable should read as true")
	}
	vs, ok := r.Settings.(*VLESSSettings)
	if !ok {
		t.Fatalf("settings type = %T", r.Settings)
	}
	if vs.Credential() != "11111111-1111-4111-8111-111111111111" || vs.Flow() != FlowVision {
		t.Fatalf("unexpected client: %+v", vs.Clients)
	}
	ws, ok := r.Stream.Transport.(*WSSettings)
	if !ok {
		t.Fatalf("transport type = %T", r.Stream.Transport)
	}
	if ws.Path != "/x" || ws.Host() != "ex.com" {
		t.Fatalf("unexpected ws settings: %+v", ws)
	}
	if r.Up != 10 || r.Down != 20 {
		t.Fatalf("counters not carried: up=%d down=%d", r.Up, r.Down)
	}

	// Re-encoding always yields nested objects.
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(out, &generic); err != nil {
		t.Fatalf("re-decode error: %v", err)
	}
	if _, ok := generic["settings"].(map[string]any); !ok {
		t.Fatalf("settings not nested: %s", out)
	}
	if _, ok := generic["streamSettings"].(map[string]any); !ok {
		t.Fatalf("streamSettings not nested: %s", out)
	}
}

func TestRecordUnmarshalMissingBlocks(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"id":"x","remark":"r","protocol":"trojan","port":1,"enable":false}`), &r); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if r.Enable {
		t.Fatalf("explicit enable=false lost")
	}
	if r.Stream.Network() != TCP || r.Stream.SecurityKind() != SecurityNone {
		t.Fatalf("defaults = %s/%s", r.Stream.Network(), r.Stream.SecurityKind())
	}
	if _, ok := r.Settings.(*TrojanSettings); !ok {
		t.Fatalf("settings type = %T", r.Settings)
	}
}

func TestRecordUnmarshalRejectsUnknown(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"protocol", `{"protocol":"socks","port":1}`},
		{"network", `{"protocol":"vless","port":1,"streamSettings":{"network":"kcp"}}`},
		{"security", `{"protocol":"vless","port":1,"streamSettings":{"security":"xtls"}}`},
		{"bad string payload", `{"protocol":"vless","port":1,"settings":"{not json"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			if err := json.Unmarshal([]byte(tt.raw), &r); err == nil {
				t.Fatalf("expected error for %s", tt.raw)
			}
		})
	}
}

func TestStreamMarshalOnlySelectedBlocks(t *testing.T) {
	s := StreamSettings{
		Transport: &GRPCSettings{ServiceName: "svc"},
		Security: &RealitySettings{
			Dest:        "www.microsoft.com:443",
			ServerNames: []string{"www.microsoft.com"},
			PrivateKey:  "priv",
			PublicKey:   "pub",
			ShortIDs:    []string{"0123abcd"},
			Fingerprint: "chrome",
		},
	}
	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	got := string(out)
	for _, absent := range []string{"wsSettings", "httpSettings", "xhttpSettings", "tlsSettings", "sockopt", "acceptProxyProtocol", "minClientVer", "maxClientVer", "maxTimeDiff"} {
		if strings.Contains(got, absent) {
			t.Errorf("unexpected key %q in %s", absent, got)
		}
	}
	for _, present := range []string{`"grpcSettings":{"serviceName":"svc","multiMode":false}`, `"realitySettings"`, `"publicKey":"pub"`} {
		if !strings.Contains(got, present) {
			t.Errorf("missing %s in %s", present, got)
		}
	}
}

func TestSockoptPreservesExplicitFalse(t *testing.T) {
	raw := `{"network":"tcp","security":"none","sockopt":{"tcpFastOpen":false}}`
	s, err := DecodeStream([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeStream error: %v", err)
	}
	if s.Sockopt == nil || s.Sockopt.TCPFastOpen == nil || *s.Sockopt.TCPFastOpen {
		t.Fatalf("explicit false not preserved: %+v", s.Sockopt)
	}
	if s.Sockopt.TCPNoDelay != nil {
		t.Fatalf("absent key became set: %+v", s.Sockopt)
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.Contains(string(out), `"sockopt":{"tcpFastOpen":false}`) {
		t.Fatalf("round trip changed sockopt: %s", out)
	}
}

func TestTLSBlockRoundTrip(t *testing.T) {
	s := StreamSettings{Transport: &TCPSettings{}, Security: &TLSSettings{ServerName: "example.com"}}
	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	back, err := DecodeStream(out)
	if err != nil {
		t.Fatalf("DecodeStream error: %v", err)
	}
	if back.TLS() == nil || back.TLS().ServerName != "example.com" {
		t.Fatalf("tls block lost: %s", out)
	}
}

func TestLevelZeroEqualsAbsent(t *testing.T) {
	zero, err := json.Marshal(&TrojanSettings{Clients: []TrojanClient{{Password: "p", Level: 0}}})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if strings.Contains(string(zero), "level") {
		t.Fatalf("level 0 must be omitted: %s", zero)
	}

	s, err := DecodeSettings(Trojan, zero)
	if err != nil {
		t.Fatalf("DecodeSettings error: %v", err)
	}
	if got := s.(*TrojanSettings).Clients[0].Level; got != 0 {
		t.Fatalf("absent level read as %d, want 0", got)
	}
}

func TestDecodeSettingsVLESSDefaultsDecryption(t *testing.T) {
	s, err := DecodeSettings(VLESS, []byte(`{"clients":[{"id":"u"}]}`))
	if err != nil {
		t.Fatalf("DecodeSettings error: %v", err)
	}
	if got := s.(*VLESSSettings).Decryption; got != DecryptionNone {
		t.Fatalf("decryption = %q, want none", got)
	}
}

func TestStreamUnsetSecurityStaysUnset(t *testing.T) {
	s, err := DecodeStream([]byte(`{"network":"tcp"}`))
	if err != nil {
		t.Fatalf("DecodeStream error: %v", err)
	}
	if s.Security != nil {
		t.Fatalf("missing security decoded as %T", s.Security)
	}
	if s.SecurityKind() != SecurityNone {
		t.Fatalf("SecurityKind = %s, want none", s.SecurityKind())
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if strings.Contains(string(out), "security") {
		t.Fatalf("unset security written out: %s", out)
	}

	empty, err := DecodeStream(nil)
	if err != nil || empty.Security != nil {
		t.Fatalf("absent stream = %+v, %v", empty, err)
	}
}
