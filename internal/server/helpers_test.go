package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

const (
	testUsername = "test"
	testPassword = "helloworld"
)

// newTestConfig builds a full Config against a throwaway SQLite file and
// upload directory.
func newTestConfig(t *testing.T) Config {
	t.Helper()

	dir := t.TempDir()
	db, err := OpenDB(filepath.Join(dir, "filedrop_test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	files, err := NewFilesStore(db, "files")
	if err != nil {
		t.Fatalf("NewFilesStore: %v", err)
	}
	users, err := NewUsersStore(db, "users")
	if err != nil {
		t.Fatalf("NewUsersStore: %v", err)
	}
	blobs, err := NewBlobStore(filepath.Join(dir, "uploaded"))
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}

	return Config{
		Addr:  ":0",
		Build: BuildInfo{Version: "test"},
		Auth: AuthConfig{
			SessionSecret: "test-secret",
			SessionTTL:    time.Hour,
			CookieName:    "token",
			Users:         users,
		},
		DB:               db,
		Files:            files,
		Users:            users,
		Blobs:            blobs,
		FileLifetimeDays: 7,
	}
}

// addTestUser provisions the standard test account.
func addTestUser(t *testing.T, users *UsersStore) {
	t.Helper()
	info, err := CreatePasswordHash(testPassword)
	if err != nil {
		t.Fatalf("CreatePasswordHash: %v", err)
	}
	n, err := users.AddUser(UserRecord{Username: testUsername, PasswordHashInfo: info})
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if n != 1 {
		t.Fatalf("AddUser inserted %d rows, want 1", n)
	}
}

// login posts the test credentials and returns the session cookie and the
// anti-forgery token from the response body.
func login(t *testing.T, h http.Handler) (*http.Cookie, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/login",
		bytes.NewBufferString("username="+testUsername+"&password="+testPassword))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rr.Code, rr.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("login set no session cookie")
	}

	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	if body.CSRFToken == "" {
		t.Fatalf("login returned no csrfToken")
	}
	return cookie, body.CSRFToken
}

// multipartUpload builds a multipart body with the given metadata fields
// and file parts (contents keyed by part filename).
func multipartUpload(t *testing.T, fields map[string]string, fileContents ...string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for i, content := range fileContents {
		part, err := mw.CreateFormFile("file", "part.bin")
		if err != nil {
			t.Fatalf("create file part %d: %v", i, err)
		}
		if _, err := io.WriteString(part, content); err != nil {
			t.Fatalf("write file part %d: %v", i, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

// doAuthed performs a request carrying the session cookie and, when csrf
// is non-empty, the anti-forgery header.
func doAuthed(h http.Handler, method, path string, body io.Reader, contentType string, cookie *http.Cookie, csrf string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// uploadFile drives a complete upload through the router and returns the
// decoded FileRecord from the response.
func uploadFile(t *testing.T, h http.Handler, cookie *http.Cookie, csrf, id, name, content string) FileRecord {
	t.Helper()

	body, ct := multipartUpload(t, map[string]string{
		"name": name,
		"size": strconv.Itoa(len(content)),
		"id":   id,
	}, content)
	rr := doAuthed(h, http.MethodPost, "/upload", body, ct, cookie, csrf)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload returned %d: %s", rr.Code, rr.Body.String())
	}

	var rec FileRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return rec
}
