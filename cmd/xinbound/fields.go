package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"xinbound/internal/form"
	"xinbound/internal/inbound"
)

type fieldFlag struct {
	name  string
	usage string
	bool  bool
	set   func(fm *form.FieldModel, v string)
}

func stringField(dst func(fm *form.FieldModel) *string) func(*form.FieldModel, string) {
	return func(fm *form.FieldModel, v string) { *dst(fm) = v }
}

// lineList stores a comma separated flag value as the one-per-line text the
// editor keeps for list fields.
func lineList(dst func(fm *form.FieldModel) *string) func(*form.FieldModel, string) {
	return func(fm *form.FieldModel, v string) { *dst(fm) = strings.ReplaceAll(v, ",", "\n") }
}

func boolField(dst func(fm *form.FieldModel) *bool) func(*form.FieldModel, string) {
	return func(fm *form.FieldModel, v string) {
		b, _ := strconv.ParseBool(v)
		*dst(fm) = b
	}
}

// fieldFlags maps command-line flags onto editor fields. Security is not
// listed here: switching it goes through the session so reality defaults
// get filled in.
var fieldFlags = []fieldFlag{
	{"remark", "display name", false, stringField(func(fm *form.FieldModel) *string { return &fm.Remark })},
	{"enable", "serve this inbound", true, boolField(func(fm *form.FieldModel) *bool { return &fm.Enable })},
	{"protocol", "vless, vmess, trojan or shadowsocks", false, func(fm *form.FieldModel, v string) { fm.Protocol = inbound.Protocol(v) }},
	{"tag", "xray inbound tag", false, stringField(func(fm *form.FieldModel) *string { return &fm.Tag })},
	{"listen", "listen address", false, stringField(func(fm *form.FieldModel) *string { return &fm.Listen })},
	{"port", "listen port", false, stringField(func(fm *form.FieldModel) *string { return &fm.Port })},
	{"total-gb", "traffic quota in GiB, 0 for unlimited", false, stringField(func(fm *form.FieldModel) *string { return &fm.TotalGiB })},
	{"expiry", "expiry date (YYYY-MM-DD), empty for never", false, stringField(func(fm *form.FieldModel) *string { return &fm.ExpiryDate })},

	{"uuid", "client id (vless, vmess)", false, stringField(func(fm *form.FieldModel) *string { return &fm.UUID })},
	{"flow", "vless flow", false, stringField(func(fm *form.FieldModel) *string { return &fm.Flow })},
	{"level", "client level", false, stringField(func(fm *form.FieldModel) *string { return &fm.Level })},
	{"email", "client email", false, stringField(func(fm *form.FieldModel) *string { return &fm.Email })},
	{"alter-id", "vmess alterId", false, stringField(func(fm *form.FieldModel) *string { return &fm.AlterID })},
	{"password", "trojan password", false, stringField(func(fm *form.FieldModel) *string { return &fm.Password })},
	{"ss-method", "shadowsocks cipher", false, stringField(func(fm *form.FieldModel) *string { return &fm.SSMethod })},
	{"ss-password", "shadowsocks password", false, stringField(func(fm *form.FieldModel) *string { return &fm.SSPassword })},
	{"ss-network", "shadowsocks network (tcp,udp)", false, stringField(func(fm *form.FieldModel) *string { return &fm.SSNetwork })},
	{"decryption", "vless decryption", false, stringField(func(fm *form.FieldModel) *string { return &fm.Decryption })},

	{"network", "tcp, ws, grpc, h2 or xhttp", false, func(fm *form.FieldModel, v string) { fm.Network = inbound.Network(v) }},
	{"ws-path", "websocket path", false, stringField(func(fm *form.FieldModel) *string { return &fm.WSPath })},
	{"ws-host", "websocket Host header", false, stringField(func(fm *form.FieldModel) *string { return &fm.WSHost })},
	{"grpc-service", "gRPC service name", false, stringField(func(fm *form.FieldModel) *string { return &fm.GRPCServiceName })},
	{"grpc-multi", "gRPC multi mode", true, boolField(func(fm *form.FieldModel) *bool { return &fm.GRPCMultiMode })},
	{"h2-host", "h2 hosts, comma separated", false, stringField(func(fm *form.FieldModel) *string { return &fm.H2Host })},
	{"h2-path", "h2 path", false, stringField(func(fm *form.FieldModel) *string { return &fm.H2Path })},
	{"xhttp-mode", "xhttp mode", false, stringField(func(fm *form.FieldModel) *string { return &fm.XHTTPMode })},
	{"xhttp-path", "xhttp path", false, stringField(func(fm *form.FieldModel) *string { return &fm.XHTTPPath })},
	{"xhttp-host", "xhttp host", false, stringField(func(fm *form.FieldModel) *string { return &fm.XHTTPHost })},

	{"sni", "tls server name", false, stringField(func(fm *form.FieldModel) *string { return &fm.TLSServerName })},
	{"reality-show", "reality debug output", true, boolField(func(fm *form.FieldModel) *bool { return &fm.RealityShow })},
	{"reality-dest", "reality dest host:port", false, stringField(func(fm *form.FieldModel) *string { return &fm.RealityDest })},
	{"reality-xver", "reality xver", false, stringField(func(fm *form.FieldModel) *string { return &fm.RealityXver })},
	{"reality-fingerprint", "client fingerprint", false, stringField(func(fm *form.FieldModel) *string { return &fm.RealityFingerprint })},
	{"reality-server-names", "server names, comma separated", false, lineList(func(fm *form.FieldModel) *string { return &fm.RealityServerNames })},
	{"reality-private-key", "x25519 private key", false, stringField(func(fm *form.FieldModel) *string { return &fm.RealityPrivateKey })},
	{"reality-public-key", "x25519 public key", false, stringField(func(fm *form.FieldModel) *string { return &fm.RealityPublicKey })},
	{"reality-short-ids", "short ids, comma separated", false, lineList(func(fm *form.FieldModel) *string { return &fm.RealityShortIDs })},
	{"reality-min-client", "minimum client version", false, stringField(func(fm *form.FieldModel) *string { return &fm.RealityMinClientVer })},
	{"reality-max-client", "maximum client version", false, stringField(func(fm *form.FieldModel) *string { return &fm.RealityMaxClientVer })},
	{"reality-max-time-diff", "max time difference (ms)", false, stringField(func(fm *form.FieldModel) *string { return &fm.RealityMaxTimeDiff })},

	{"accept-proxy-protocol", "accept PROXY protocol headers", true, boolField(func(fm *form.FieldModel) *bool { return &fm.AcceptProxyProtocol })},
	{"tcp-fast-open", "enable TCP fast open", true, boolField(func(fm *form.FieldModel) *bool { return &fm.TCPFastOpen })},
	{"tcp-no-delay", "enable TCP_NODELAY", true, boolField(func(fm *form.FieldModel) *bool { return &fm.TCPNoDelay })},
}

var fieldSetters = func() map[string]func(*form.FieldModel, string) {
	m := make(map[string]func(*form.FieldModel, string), len(fieldFlags))
	for _, f := range fieldFlags {
		m[f.name] = f.set
	}
	return m
}()

func addFieldFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	for _, f := range fieldFlags {
		if f.bool {
			fs.Bool(f.name, false, f.usage)
		} else {
			fs.String(f.name, "", f.usage)
		}
	}
	fs.String("security", "", "none, tls or reality")
	fs.Bool("regen-keys", false, "fetch a fresh reality key pair")
}

// applyFieldFlags copies only the flags the user set, so an edit keeps
// every field that was not mentioned.
func applyFieldFlags(cmd *cobra.Command, fm *form.FieldModel) {
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if set, ok := fieldSetters[f.Name]; ok {
			set(fm, f.Value.String())
		}
	})
}

func securityFlag(cmd *cobra.Command) (inbound.SecurityKind, bool, error) {
	if !cmd.Flags().Changed("security") {
		return "", false, nil
	}
	v, _ := cmd.Flags().GetString("security")
	kind := inbound.SecurityKind(v)
	for _, k := range inbound.SecurityKinds {
		if k == kind {
			return kind, true, nil
		}
	}
	return "", false, fmt.Errorf("unknown security %q", v)
}
