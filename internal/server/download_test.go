package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestDownloadRoundTrip(t *testing.T) {
	cfg := newTestConfig(t)
	addTestUser(t, cfg.Users)
	h := New(cfg).Handler()
	cookie, csrf := login(t, h)

	content := "the quick brown fox"
	uploadFile(t, h, cookie, csrf, "dl1", "notes.txt", content)

	rr := doAuthed(h, http.MethodGet, "/download/dl1", nil, "", cookie, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("download = %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != content {
		t.Errorf("download body = %q, want %q", rr.Body.String(), content)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Content-Type = %q, want application/octet-stream", ct)
	}
	cd := rr.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "attachment") || !strings.Contains(cd, `"notes.txt"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestDownloadMissingRecord(t *testing.T) {
	cfg := newTestConfig(t)
	addTestUser(t, cfg.Users)
	h := New(cfg).Handler()
	cookie, _ := login(t, h)

	rr := doAuthed(h, http.MethodGet, "/download/nope", nil, "", cookie, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("download of unknown id = %d, want 404", rr.Code)
	}
	var resp struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Msg != "Not Found" {
		t.Errorf("msg = %q, want Not Found", resp.Msg)
	}
}

func TestDownloadRecordWithoutBlob(t *testing.T) {
	cfg := newTestConfig(t)
	addTestUser(t, cfg.Users)
	h := New(cfg).Handler()
	cookie, _ := login(t, h)

	// A row with no bytes behind it: the client sees the same 404 as for
	// an unknown id, not a server fault.
	now := time.Now()
	if _, err := cfg.Files.Insert(FileRecord{
		ID: "ghost", Name: "ghost.bin", Size: 10,
		UploadTime: now, ExpireTime: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rr := doAuthed(h, http.MethodGet, "/download/ghost", nil, "", cookie, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("download without blob = %d, want 404", rr.Code)
	}
	var resp struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Msg != "Not Found" {
		t.Errorf("msg = %q, want Not Found", resp.Msg)
	}
}
