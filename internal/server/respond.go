package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// sendJSON writes a JSON body with the given status.
func sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// logCopyFailure records a streaming failure after the response headers
// have already been written, when it is too late to change the status.
func logCopyFailure(r *http.Request, err error) {
	rid := middleware.GetReqID(r.Context())
	log.Printf("rid=%s method=%s path=%s msg=%q err=%v", rid, r.Method, r.URL.Path, "stream_interrupted", err)
}

// sendErr reports a request failure as a 500 with a message plus optional
// caller-relevant detail fields. The wrapped internal error goes to the
// log only; clients never see it.
func sendErr(w http.ResponseWriter, r *http.Request, msg string, details map[string]any, err error) {
	rid := middleware.GetReqID(r.Context())
	log.Printf("rid=%s method=%s path=%s msg=%q err=%v", rid, r.Method, r.URL.Path, msg, err)

	body := map[string]any{"msg": msg}
	for k, v := range details {
		body[k] = v
	}
	sendJSON(w, http.StatusInternalServerError, body)
}
