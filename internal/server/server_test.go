package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealthEndpointIsOpen(t *testing.T) {
	cfg := newTestConfig(t)
	h := New(cfg).Handler()

	rr := doAuthed(h, http.MethodGet, "/health", nil, "", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("/health without auth = %d: %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Status     string `json:"status"`
		Version    string `json:"version"`
		Components map[string]struct {
			Status string `json:"status"`
		} `json:"components"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("status = %q, want healthy", body.Status)
	}
	if body.Version != "test" {
		t.Errorf("version = %q, want test", body.Version)
	}
	for _, comp := range []string{"database", "storage"} {
		if body.Components[comp].Status != "up" {
			t.Errorf("component %s = %q, want up", comp, body.Components[comp].Status)
		}
	}
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	cfg := newTestConfig(t)
	h := New(cfg).Handler()

	_ = cfg.DB.Close()

	rr := doAuthed(h, http.MethodGet, "/health", nil, "", nil, "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("/health with closed db = %d, want 503", rr.Code)
	}
}

func TestMetricsEndpointIsOpen(t *testing.T) {
	cfg := newTestConfig(t)
	h := New(cfg).Handler()

	rr := doAuthed(h, http.MethodGet, "/metrics", nil, "", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics without auth = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Errorf("/metrics output does not look like a Prometheus exposition")
	}
}

func TestResponsesDefaultToJSONContentType(t *testing.T) {
	cfg := newTestConfig(t)
	addTestUser(t, cfg.Users)
	h := New(cfg).Handler()
	cookie, _ := login(t, h)

	rr := doAuthed(h, http.MethodGet, "/isLoggedIn", nil, "", cookie, "")
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	// Error paths carry it too.
	rr = doAuthed(h, http.MethodGet, "/files", nil, "", nil, "")
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("rejection Content-Type = %q, want application/json", ct)
	}
}

func TestUnknownRoute(t *testing.T) {
	cfg := newTestConfig(t)
	h := New(cfg).Handler()

	rr := doAuthed(h, http.MethodGet, "/no-such-route", nil, "", nil, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown route = %d, want 404", rr.Code)
	}
}

func TestMalformedLoginForm(t *testing.T) {
	cfg := newTestConfig(t)
	h := New(cfg).Handler()

	// An unparseable form is treated like any other bad credential set.
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("malformed login form = %d, want 403", rr.Code)
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/download/abc123": "/download/{id}",
		"/delete/abc123":   "/delete/{id}",
		"/deleteexpired":   "/deleteexpired",
		"/files":           "/files",
		"/upload":          "/upload",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Errorf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
