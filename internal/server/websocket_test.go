package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"igoserver/internal/config"
)

func TestHealthHandler_ReportsOK(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	s.healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}
	if body := rec.Body.String(); body != `{"status":"ok"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestAllowOrigin_NoSuffixConfiguredAllowsEverything(t *testing.T) {
	s := &Server{cfg: config.Config{}}
	if !s.allowOrigin("https://evil.example") {
		t.Fatal("an unconfigured OriginSuffix must not restrict origins")
	}
}

func TestAllowOrigin_SuffixMatch(t *testing.T) {
	s := &Server{cfg: config.Config{OriginSuffix: ".igoserver.example"}}
	if !s.allowOrigin("https://play.igoserver.example") {
		t.Fatal("expected a suffix match to be allowed")
	}
	if s.allowOrigin("https://evil.com") {
		t.Fatal("expected a non-matching origin to be rejected")
	}
}

func TestWebsocketHandler_RejectsDisallowedOrigin(t *testing.T) {
	s := &Server{cfg: config.Config{OriginSuffix: "^https://igoserver.example"}, conns: newConnectionRegistry()}
	srv := httptest.NewServer(http.HandlerFunc(s.websocketHandler))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Origin", "https://evil.com")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a disallowed origin, got %d", resp.StatusCode)
	}
}

func TestRegisterRoutes_RoutesHealthz(t *testing.T) {
	s := &Server{}
	srv := httptest.NewServer(s.registerRoutes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
