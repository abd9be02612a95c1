package server

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

// downloadHandler handles GET /download/{id}. A missing metadata row and
// a missing blob both answer 404 with msg "Not Found"; any other storage
// fault is a 500, so callers can tell absence from malfunction by status
// alone.
func (cfg Config) downloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		record, err := cfg.Files.Get(id)
		if err != nil {
			if errors.Is(err, ErrFileNotFound) {
				sendJSON(w, http.StatusNotFound, map[string]any{"msg": "Not Found"})
				return
			}
			sendErr(w, r, "failed to look up file", nil, err)
			return
		}

		blob, err := cfg.Blobs.Open(record.ID, filepath.Ext(record.Name))
		if err != nil {
			// Metadata without a blob: the upload never completed, or the
			// bytes were pruned out-of-band. Still "not found", not a fault.
			if errors.Is(err, fs.ErrNotExist) {
				sendJSON(w, http.StatusNotFound, map[string]any{"msg": "Not Found"})
				return
			}
			sendErr(w, r, "failed to read file", nil, err)
			return
		}
		defer func() { _ = blob.Close() }()

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, record.Name))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, blob); err != nil {
			// Headers are gone; nothing to send the client. Log and move on.
			logCopyFailure(r, err)
			return
		}
		downloadsTotal.Inc()
	}
}
