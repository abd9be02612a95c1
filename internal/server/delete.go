package server

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// deleteHandler handles DELETE /delete/{id}. It always answers success
// with the id: the row count is meaningless to the client because the
// expiry sweep may have raced us and removed the row first. The real
// contract is that the file is gone from subsequent listings. The blob
// on disk is left alone (accepted gap).
func (cfg Config) deleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if _, err := cfg.Files.DeleteByID(id); err != nil {
			sendErr(w, r, "failed to delete file", nil, err)
			return
		}
		sendJSON(w, http.StatusOK, map[string]any{"id": id})
	}
}

// deleteExpiredHandler handles DELETE /deleteexpired: a client-triggered
// expiry sweep. The count stays server-side; the client gets an empty
// success either way. Blobs of expired files stay on disk (accepted gap).
func (cfg Config) deleteExpiredHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := cfg.Files.DeleteExpired(time.Now())
		if err != nil {
			sendErr(w, r, "failed to delete expired files", nil, err)
			return
		}
		if n > 0 {
			rid := middleware.GetReqID(r.Context())
			log.Printf("rid=%s msg=expired_files_deleted count=%d", rid, n)
			expiredDeletedTotal.Add(float64(n))
		}
		sendJSON(w, http.StatusOK, map[string]any{})
	}
}
