package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Upstream failures surface as a friendly message without internal details.
func TestProductListUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	env.api.FailNext = 1
	resp := b.get("/")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, "Failed to load products") {
		t.Fatalf("friendly message missing; body=%s", body)
	}
	if strings.Contains(body, "internal error") || strings.Contains(body, "commerce") {
		t.Fatalf("internal details leaked to user; body=%s", body)
	}
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/no/such/page", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if !strings.Contains(readBody(t, resp), "Page not found") {
		t.Fatalf("not found page missing")
	}
}

func TestBodyLimit(t *testing.T) {
	env := newTestEnv(t)

	big := bytes.Repeat([]byte("a"), (1<<20)+1024)
	req := httptest.NewRequest("POST", "/cart", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// fasthttp rejects the body while reading the request, before any handler or the
	// cart is reached; app.Test surfaces that as an error rather than a response.
	resp, err := env.app.Test(req, -1)
	if err == nil {
		t.Fatalf("expected oversized body to be rejected, got %d", resp.StatusCode)
	}
	if !strings.Contains(err.Error(), "body size exceeds the given limit") {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(env.api.Requests()); n != 0 {
		t.Fatalf("oversized request reached the handler: %d api calls", n)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/healthz", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(readBody(t, resp), `"ok":true`) {
		t.Fatalf("unexpected healthz reply %d", resp.StatusCode)
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/healthz", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("helmet headers missing")
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("request id header missing")
	}
}
