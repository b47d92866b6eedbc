package http

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"xinbound/internal/collectors"
)

func TestURLCollector(t *testing.T) {
	body := "vless://a@h:1?type=tcp#x\ntrojan://b@h:2#y\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/plain":
			w.Write([]byte(body))
		case "/b64":
			w.Write([]byte(base64.StdEncoding.EncodeToString([]byte(body))))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := collectors.Get("http")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}

	want := []string{"vless://a@h:1?type=tcp#x", "trojan://b@h:2#y"}
	for _, path := range []string{"/plain", "/b64"} {
		t.Run(path, func(t *testing.T) {
			got, err := c.Collect(context.Background(), map[string]interface{}{"url": srv.URL + path})
			if err != nil {
				t.Fatalf("Collect error: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("Collect = %q, want %q", got, want)
			}
		})
	}

	if _, err := c.Collect(context.Background(), map[string]interface{}{"url": srv.URL + "/missing"}); err == nil {
		t.Fatalf("expected error for 404")
	}
	if _, err := c.Collect(context.Background(), map[string]interface{}{}); err == nil {
		t.Fatalf("expected error for missing url")
	}
}
