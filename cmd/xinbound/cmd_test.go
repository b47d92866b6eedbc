package main

import (
	"testing"

	"github.com/spf13/cobra"

	"xinbound/internal/form"
	"xinbound/internal/inbound"
)

func TestApplyFieldFlagsOnlyTouchesSetFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "edit"}
	addFieldFlags(cmd)
	if err := cmd.ParseFlags([]string{"--remark", "new", "--port", "8443", "--grpc-multi", "--network", "grpc", "--enable=false"}); err != nil {
		t.Fatalf("ParseFlags error: %v", err)
	}

	fm := form.FieldModel{Remark: "old", Enable: true, WSPath: "/keep", Port: "443"}
	applyFieldFlags(cmd, &fm)

	if fm.Remark != "new" || fm.Port != "8443" || !fm.GRPCMultiMode || fm.Network != inbound.GRPC {
		t.Fatalf("flags not applied: %+v", fm)
	}
	if fm.Enable {
		t.Fatalf("explicit --enable=false ignored")
	}
	if fm.WSPath != "/keep" {
		t.Fatalf("untouched field changed: %q", fm.WSPath)
	}
}

func TestSecurityFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "add"}
	addFieldFlags(cmd)

	if _, ok, err := securityFlag(cmd); ok || err != nil {
		t.Fatalf("unset flag: ok=%v err=%v", ok, err)
	}

	if err := cmd.ParseFlags([]string{"--security", "reality"}); err != nil {
		t.Fatalf("ParseFlags error: %v", err)
	}
	kind, ok, err := securityFlag(cmd)
	if err != nil || !ok || kind != inbound.SecurityReality {
		t.Fatalf("securityFlag = %q, %v, %v", kind, ok, err)
	}

	bad := &cobra.Command{Use: "add"}
	addFieldFlags(bad)
	_ = bad.ParseFlags([]string{"--security", "xtls"})
	if _, _, err := securityFlag(bad); err == nil {
		t.Fatalf("expected error for unknown security")
	}
}

func TestApplyParams(t *testing.T) {
	got := applyParams(nil, map[string]string{"timeout": "15", "base64": "true", "path": "sub.txt"})
	if got["timeout"] != 15 || got["base64"] != true || got["path"] != "sub.txt" {
		t.Fatalf("applyParams = %#v", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:                   "0 B",
		1023:                "1023 B",
		1536:                "1.5 KiB",
		inbound.BytesPerGiB: "1.0 GiB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRealityListFlagsSplitOnCommas(t *testing.T) {
	cmd := &cobra.Command{Use: "add"}
	addFieldFlags(cmd)
	if err := cmd.ParseFlags([]string{"--reality-server-names", "a.com,b.com", "--reality-short-ids", "0123abcd"}); err != nil {
		t.Fatalf("ParseFlags error: %v", err)
	}

	var fm form.FieldModel
	applyFieldFlags(cmd, &fm)
	if fm.RealityServerNames != "a.com\nb.com" || fm.RealityShortIDs != "0123abcd" {
		t.Fatalf("server names %q, short ids %q", fm.RealityServerNames, fm.RealityShortIDs)
	}
}
