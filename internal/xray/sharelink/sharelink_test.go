package sharelink

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"xinbound/internal/inbound"
)

const testUUID = "11111111-1111-4111-8111-111111111111"

func vlessRecord(remark string, stream inbound.StreamSettings, flow string) *inbound.Record {
	return &inbound.Record{
		Remark: remark,
		Enable: true,
		Port:   443,
		Settings: &inbound.VLESSSettings{
			Clients:    []inbound.VLESSClient{{ID: testUUID, Flow: flow}},
			Decryption: inbound.DecryptionNone,
		},
		Stream: stream,
	}
}

func trojanRecord(remark string, stream inbound.StreamSettings) *inbound.Record {
	return &inbound.Record{
		Remark:   remark,
		Enable:   true,
		Port:     8443,
		Settings: &inbound.TrojanSettings{Clients: []inbound.TrojanClient{{Password: "p@ss word"}}},
		Stream:   stream,
	}
}

func TestEncodeGolden(t *testing.T) {
	tests := []struct {
		name    string
		rec     *inbound.Record
		address string
		want    string
	}{
		{
			name: "vless ws",
			rec: vlessRecord("A B", inbound.StreamSettings{
				Transport: &inbound.WSSettings{Path: "/x", Headers: map[string]string{"Host": "ex.com"}},
				Security:  &inbound.NoSecurity{},
			}, ""),
			address: "1.2.3.4",
			want:    "vless://11111111-1111-4111-8111-111111111111@1.2.3.4:443?type=ws&security=none&path=%2Fx&host=ex.com#A%20B",
		},
		{
			name: "vless reality vision",
			rec: vlessRecord("r", inbound.StreamSettings{
				Transport: &inbound.TCPSettings{},
				Security: &inbound.RealitySettings{
					ServerNames: []string{"www.microsoft.com", "microsoft.com"},
					PrivateKey:  "priv",
					PublicKey:   "Pub-Key_1",
					ShortIDs:    []string{"0abc00ff", "ffff"},
				},
			}, inbound.FlowVision),
			address: "example.net",
			want:    "vless://11111111-1111-4111-8111-111111111111@example.net:443?type=tcp&security=reality&flow=xtls-rprx-vision&sni=www.microsoft.com&fp=chrome&pbk=Pub-Key_1&sid=0abc00ff#r",
		},
		{
			name: "vless grpc tls",
			rec: vlessRecord("节点", inbound.StreamSettings{
				Transport: &inbound.GRPCSettings{ServiceName: "svc"},
				Security:  &inbound.TLSSettings{ServerName: "a.example"},
			}, ""),
			address: "::1",
			want:    "vless://11111111-1111-4111-8111-111111111111@[::1]:443?type=grpc&security=tls&sni=a.example&serviceName=svc#%E8%8A%82%E7%82%B9",
		},
		{
			name: "vless ws empty path and host",
			rec: vlessRecord("x", inbound.StreamSettings{
				Transport: &inbound.WSSettings{},
				Security:  &inbound.NoSecurity{},
			}, ""),
			address: "h",
			want:    "vless://11111111-1111-4111-8111-111111111111@h:443?type=ws&security=none&path=%2F&host=#x",
		},
		{
			name: "trojan ws tls",
			rec: trojanRecord("t (1)", inbound.StreamSettings{
				Transport: &inbound.WSSettings{Path: "/a b", Headers: map[string]string{"Host": "cdn.example"}},
				Security:  &inbound.TLSSettings{ServerName: "cdn.example"},
			}),
			address: "1.2.3.4",
			want:    "trojan://p%40ss%20word@1.2.3.4:8443?security=tls&type=ws&sni=cdn.example&path=%2Fa+b&host=cdn.example#t%20(1)",
		},
		{
			name:    "trojan without security layer",
			rec:     trojanRecord("t", inbound.StreamSettings{Transport: &inbound.TCPSettings{}}),
			address: "1.2.3.4",
			want:    "trojan://p%40ss%20word@1.2.3.4:8443?security=tls&type=tcp&sni=#t",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.rec, tt.address)
			if err != nil {
				t.Fatalf("Encode error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Encode =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	records := []*inbound.Record{
		vlessRecord("A B", inbound.StreamSettings{
			Transport: &inbound.WSSettings{Path: "/x", Headers: map[string]string{"Host": "ex.com"}},
			Security:  &inbound.NoSecurity{},
		}, ""),
		vlessRecord("réalité+", inbound.StreamSettings{
			Transport: &inbound.TCPSettings{},
			Security: &inbound.RealitySettings{
				ServerNames: []string{"www.microsoft.com"},
				PublicKey:   "abc-_DEF",
				ShortIDs:    []string{"0abc00ff"},
				Fingerprint: "firefox",
			},
		}, inbound.FlowVision),
		vlessRecord("g", inbound.StreamSettings{
			Transport: &inbound.GRPCSettings{ServiceName: "svc"},
			Security:  &inbound.TLSSettings{ServerName: "sni.example"},
		}, ""),
		trojanRecord("tj", inbound.StreamSettings{
			Transport: &inbound.GRPCSettings{ServiceName: "g"},
			Security:  &inbound.TLSSettings{ServerName: "t.example"},
		}),
		trojanRecord("plain", inbound.StreamSettings{
			Transport: &inbound.TCPSettings{},
			Security:  &inbound.NoSecurity{},
		}),
	}

	for _, rec := range records {
		t.Run(rec.Remark, func(t *testing.T) {
			uri, err := Encode(rec, "203.0.113.7")
			if err != nil {
				t.Fatalf("Encode error: %v", err)
			}
			back, addr, err := Decode(uri)
			if err != nil {
				t.Fatalf("Decode(%s) error: %v", uri, err)
			}
			if addr != "203.0.113.7" {
				t.Errorf("address = %q", addr)
			}
			if back.Remark != rec.Remark || back.Port != rec.Port {
				t.Errorf("remark/port = %q/%d", back.Remark, back.Port)
			}
			if back.Protocol() != rec.Protocol() || back.Settings.Credential() != rec.Settings.Credential() {
				t.Errorf("credential = %q", back.Settings.Credential())
			}
			if back.Stream.Network() != rec.Stream.Network() || back.Stream.SecurityKind() != rec.Stream.SecurityKind() {
				t.Errorf("stream = %s/%s", back.Stream.Network(), back.Stream.SecurityKind())
			}
			if !reflect.DeepEqual(back.Stream.Transport, rec.Stream.Transport) {
				t.Errorf("transport = %+v, want %+v", back.Stream.Transport, rec.Stream.Transport)
			}

			again, err := Encode(back, addr)
			if err != nil {
				t.Fatalf("re-Encode error: %v", err)
			}
			if again != uri {
				t.Errorf("re-encoded link differs:\n%s\n%s", again, uri)
			}
		})
	}
}

func TestUnsupportedProtocols(t *testing.T) {
	recs := []*inbound.Record{
		{Port: 1, Settings: &inbound.VMessSettings{Clients: []inbound.VMessClient{{ID: testUUID}}}},
		{Port: 1, Settings: &inbound.ShadowsocksSettings{Method: "aes-128-gcm", Password: "p"}},
	}
	for _, rec := range recs {
		t.Run(string(rec.Protocol()), func(t *testing.T) {
			uri, err := Encode(rec, "h")
			if uri != "" {
				t.Fatalf("expected no link, got %q", uri)
			}
			var ee *EncodingError
			if !errors.As(err, &ee) || ee.Protocol != string(rec.Protocol()) {
				t.Fatalf("error = %v, want EncodingError for %s", err, rec.Protocol())
			}
			if !errors.Is(err, ErrUnsupportedProtocol) {
				t.Fatalf("error does not wrap ErrUnsupportedProtocol")
			}
		})
	}

	for _, uri := range []string{"vmess://eyJ2IjoiMiJ9", "ss://YWVzLTEyOC1nY206cA@h:1#x", "socks://u@h:1"} {
		if _, _, err := Decode(uri); !errors.Is(err, ErrUnsupportedProtocol) {
			t.Errorf("Decode(%s) error = %v", uri, err)
		}
	}
}

func TestDecodeDefaults(t *testing.T) {
	rec, addr, err := Decode("trojan://pw@example.com:443#home")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if addr != "example.com" || rec.Stream.SecurityKind() != inbound.SecurityTLS || rec.Stream.Network() != inbound.TCP {
		t.Fatalf("defaults = %s %s/%s", addr, rec.Stream.Network(), rec.Stream.SecurityKind())
	}

	rec, _, err = Decode("vless://" + testUUID + "@h:1?type=xhttp&path=%2Fup&mode=packet-up")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	x, ok := rec.Stream.Transport.(*inbound.XHTTPSettings)
	if !ok || x.Path != "/up" || x.Mode != inbound.XHTTPModePacketUp {
		t.Fatalf("xhttp transport = %+v", rec.Stream.Transport)
	}
	if rec.Stream.SecurityKind() != inbound.SecurityNone {
		t.Fatalf("vless security default = %s", rec.Stream.SecurityKind())
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []string{
		"not a link",
		"vless://h:1?type=tcp",
		"vless://" + testUUID + "@h?type=tcp",
		"vless://" + testUUID + "@h:1?type=kcp",
		"vless://" + testUUID + "@h:1?security=xtls",
	}
	for _, uri := range tests {
		if _, _, err := Decode(uri); err == nil {
			t.Errorf("Decode(%q) succeeded", uri)
		}
	}
}

func TestHashIgnoresRemarkAndOrder(t *testing.T) {
	a, err := Parse("vless://" + testUUID + "@Example.com:443?type=ws&security=none&path=%2Fx&host=ex.com#one")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	b, err := Parse("vless://" + testUUID + "@example.com:443?host=ex.com&path=%2Fx&security=none&type=ws#two")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if a.Hash() != b.Hash() {
		t.Fatalf("hash differs for the same endpoint")
	}

	c, _ := Parse("vless://" + testUUID + "@example.com:444?type=ws&security=none&path=%2Fx&host=ex.com#one")
	if a.Hash() == c.Hash() {
		t.Fatalf("hash collides across ports")
	}
}

func TestExtractLinks(t *testing.T) {
	text := "junk line\r\nvless://a@h:1?type=tcp#x, (see trojan://b@h:2#y)\n\nvless://a@h:1?type=tcp#x\nend with trojan://c@h:3?type=tcp.\n"
	got := ExtractLinks(text)
	want := []string{"vless://a@h:1?type=tcp#x", "trojan://b@h:2#y", "trojan://c@h:3?type=tcp"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractLinks = %q, want %q", got, want)
	}
}

func TestExtractLinksKeepsRemarkPunctuation(t *testing.T) {
	stream := inbound.StreamSettings{Transport: &inbound.TCPSettings{}, Security: &inbound.TLSSettings{ServerName: "s.example"}}
	for _, remark := range []string{"t (1)", "node.", "fast!", "a (b) (c)"} {
		t.Run(remark, func(t *testing.T) {
			link, err := Encode(trojanRecord(remark, stream), "1.2.3.4")
			if err != nil {
				t.Fatalf("Encode error: %v", err)
			}
			got := ExtractLinks("published:\n" + link + "\n")
			if len(got) != 1 || got[0] != link {
				t.Fatalf("ExtractLinks = %q, want %q", got, link)
			}
			rec, _, err := Decode(got[0])
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if rec.Remark != remark {
				t.Fatalf("remark = %q, want %q", rec.Remark, remark)
			}
		})
	}
}

func TestEncodeTrojanStoredWithoutSecurity(t *testing.T) {
	raw := `{"id":"1","remark":"t","protocol":"trojan","port":443,"settings":{"clients":[{"password":"pw"}]},"streamSettings":{"network":"tcp"}}`
	var rec inbound.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	link, err := Encode(&rec, "h")
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if !strings.Contains(link, "security=tls") {
		t.Fatalf("link = %s, want security=tls", link)
	}

	// An explicit none is kept.
	raw = strings.Replace(raw, `{"network":"tcp"}`, `{"network":"tcp","security":"none"}`, 1)
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if link, _ = Encode(&rec, "h"); !strings.Contains(link, "security=none") {
		t.Fatalf("link = %s, want security=none", link)
	}
}

func TestExtractSubscriptionBase64(t *testing.T) {
	// "vless://a@h:1#x\ntrojan://b@h:2#y"
	body := "dmxlc3M6Ly9hQGg6MSN4CnRyb2phbjovL2JAaDoyI3k="
	got := ExtractSubscription(body)
	want := []string{"vless://a@h:1#x", "trojan://b@h:2#y"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractSubscription = %q, want %q", got, want)
	}
}
