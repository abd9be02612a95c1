package server

import (
	"net/http"
	"path/filepath"
	"strconv"
	"time"
)

// uploadHandler handles POST /upload. The multipart form must carry the
// metadata fields "name", "size", and "id" (legacy clients send
// "filename"/"filesize") and exactly one file part. The blob is written
// to disk first; only then is the metadata row inserted.
//
// The two writes are not atomic: a crash between them leaves a blob with
// no record. That window is accepted; orphaned blobs are harmless beyond
// the disk they occupy.
func (cfg Config) uploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Buffer small parts in memory, spill the rest to disk.
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			sendErr(w, r, "failed to parse upload form", nil, err)
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		name := formValue(r, "name", "filename")
		sizeRaw := formValue(r, "size", "filesize")
		id := formValue(r, "id")
		if name == "" || id == "" || sizeRaw == "" {
			sendErr(w, r, `expected "name", "id", and "size" parameters in the form data`, map[string]any{
				"got": map[string]string{"name": name, "id": id, "size": sizeRaw},
			}, nil)
			return
		}

		size, err := strconv.ParseInt(sizeRaw, 10, 64)
		if err != nil || size < 0 {
			sendErr(w, r, `expected "size" to be a non-negative integer`, map[string]any{
				"got": map[string]string{"size": sizeRaw},
			}, err)
			return
		}

		files := r.MultipartForm.File["file"]
		if len(files) != 1 {
			sendErr(w, r, "cannot upload more than 1 file", map[string]any{
				"attemptedCount": len(files),
			}, nil)
			return
		}

		now := time.Now()
		record := FileRecord{
			ID:         id,
			Name:       name,
			Size:       size,
			UploadTime: now,
			ExpireTime: now.AddDate(0, 0, cfg.FileLifetimeDays),
		}

		part, err := files[0].Open()
		if err != nil {
			sendErr(w, r, "failed to upload files", nil, err)
			return
		}
		defer func() { _ = part.Close() }()

		written, err := cfg.Blobs.Write(record.ID, filepath.Ext(record.Name), part)
		if err != nil {
			sendErr(w, r, "failed to upload files", nil, err)
			return
		}

		// The blob is on disk at this point. An insert failure below
		// orphans it; that inconsistency is accepted (see above).
		numChanged, err := cfg.Files.Insert(record)
		if err != nil {
			sendErr(w, r, "failed to persist upload to metadata", nil, err)
			return
		}
		if numChanged != 1 {
			sendErr(w, r, "failed to persist upload to metadata", map[string]any{
				"numChanged": numChanged,
			}, nil)
			return
		}

		uploadsTotal.Inc()
		uploadBytesTotal.Add(float64(written))
		sendJSON(w, http.StatusOK, record)
	}
}

// formValue returns the first non-empty value among the given field names.
func formValue(r *http.Request, names ...string) string {
	for _, n := range names {
		if v := r.PostFormValue(n); v != "" {
			return v
		}
	}
	return ""
}

// filesHandler handles GET /files: a listing of every record, including
// expired ones that the sweep has not yet removed.
func (cfg Config) filesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := cfg.Files.ListAll()
		if err != nil {
			sendErr(w, r, "failed to list files", nil, err)
			return
		}
		sendJSON(w, http.StatusOK, map[string]any{"files": files})
	}
}
