package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"xinbound/internal/inbound"
	"xinbound/internal/publishers"
)

func TestPublishUpdatesExistingFile(t *testing.T) {
	var put githubFileRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/me/subs/contents/sub.txt" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("ref") != "main" {
				t.Errorf("ref = %q", r.URL.Query().Get("ref"))
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"sha":"abc123"}`))
		case http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&put); err != nil {
				t.Errorf("decode body: %v", err)
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	rec := &inbound.Record{
		Remark: "a",
		Enable: true,
		Port:   443,
		Settings: &inbound.TrojanSettings{
			Clients: []inbound.TrojanClient{{Password: "pw"}},
		},
		Stream: inbound.StreamSettings{Transport: &inbound.TCPSettings{}, Security: &inbound.TLSSettings{ServerName: "s.example"}},
	}
	cfg := map[string]interface{}{
		"token":               "tok",
		"owner":               "me",
		"repo":                "subs",
		"path":                "/sub.txt",
		"branch":              "main",
		"api_url":             srv.URL + "/",
		publishers.AddressKey: "1.2.3.4",
	}

	if err := (&Publisher{}).Publish(context.Background(), []*inbound.Record{rec}, cfg); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if put.Sha != "abc123" || put.Branch != "main" {
		t.Fatalf("PUT request = %+v", put)
	}
	content, err := base64.StdEncoding.DecodeString(put.Content)
	if err != nil {
		t.Fatalf("content not base64: %v", err)
	}
	want := "trojan://pw@1.2.3.4:443?security=tls&type=tcp&sni=s.example#a"
	if string(content) != want {
		t.Fatalf("content = %q, want %q", content, want)
	}
}

func TestPublishRequiresCredentials(t *testing.T) {
	err := (&Publisher{}).Publish(context.Background(), nil, map[string]interface{}{publishers.AddressKey: "h"})
	if err == nil {
		t.Fatalf("expected error without token/owner/repo/path")
	}
}
