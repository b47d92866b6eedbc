package metrics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"xinbound/internal/form"
	"xinbound/internal/store"
	"xinbound/internal/xray/sharelink"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Outcome
	}{
		{&sharelink.EncodingError{Protocol: "vmess"}, Unsupported},
		{fmt.Errorf("create: %w", store.ErrPortInUse), PortTaken},
		{&form.ValidationError{Rule: form.RuleUUIDRequired}, Invalid},
		{StorageError(errors.New("disk full")), Failed},
		{errors.New("invalid uri format"), Invalid},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReport(t *testing.T) {
	c := New()
	c.Record("sub-a", Imported)
	c.Record("sub-a", Imported)
	c.Record("sub-b", Duplicate)
	c.RecordError("sub-b", &sharelink.EncodingError{Protocol: "vmess"})

	if c.Count(Imported) != 2 || c.Count(Unsupported) != 1 {
		t.Fatalf("counts = %d imported, %d unsupported", c.Count(Imported), c.Count(Unsupported))
	}

	var buf bytes.Buffer
	c.PrintReport(&buf)
	out := buf.String()
	for _, want := range []string{"sub-a", "sub-b", "Imported:", "Duplicate:", "Total links:", "vmess"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
