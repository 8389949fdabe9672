package ipapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLookupSuccess(t *testing.T) {
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","proxy":true,"hosting":false,"mobile":true}`))
	}))
	defer server.Close()

	client := NewClientWith(server.URL, time.Second)

	result, err := client.Lookup(context.Background(), "203.0.113.5")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	if requestedPath != "/203.0.113.5" {
		t.Fatalf("requested path = %q, want address segment", requestedPath)
	}
	if result.Status != "success" {
		t.Fatalf("status = %q, want success", result.Status)
	}
	if !result.Proxy || result.Hosting || !result.Mobile {
		t.Fatalf("flags = %v/%v/%v, want true/false/true", result.Proxy, result.Hosting, result.Mobile)
	}
	if !strings.Contains(string(result.Raw), `"proxy":true`) {
		t.Fatalf("raw = %s, want verbatim provider body", result.Raw)
	}
}

func TestLookupProviderFailStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	}))
	defer server.Close()

	client := NewClientWith(server.URL, time.Second)

	result, err := client.Lookup(context.Background(), "203.0.113.5")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if result.Status != "fail" {
		t.Fatalf("status = %q, want fail passed through", result.Status)
	}
	if result.Message != "reserved range" {
		t.Fatalf("message = %q, want provider message", result.Message)
	}
}

func TestLookupNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClientWith(server.URL, time.Second)

	if _, err := client.Lookup(context.Background(), "203.0.113.5"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestLookupMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":`))
	}))
	defer server.Close()

	client := NewClientWith(server.URL, time.Second)

	if _, err := client.Lookup(context.Background(), "203.0.113.5"); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestLookupTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClientWith(server.URL, time.Second)

	if _, err := client.Lookup(context.Background(), "203.0.113.5"); err == nil {
		t.Fatal("expected error when the provider is unreachable")
	}
}
