package server

import (
	"context"
	"net/http"
	"os"
	"time"
)

type componentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type health struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Commit     string                     `json:"commit,omitempty"`
	Components map[string]componentHealth `json:"components"`
}

// healthHandler reports process health: database reachability and upload
// directory accessibility. Degraded components flip the status and the
// response code to 503.
func (cfg Config) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := health{
			Status:     "healthy",
			Timestamp:  time.Now().UTC(),
			Version:    cfg.Build.Version,
			Commit:     cfg.Build.Commit,
			Components: make(map[string]componentHealth),
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := cfg.DB.PingContext(ctx); err != nil {
			h.Status = "unhealthy"
			h.Components["database"] = componentHealth{Status: "down", Message: "database unreachable"}
		} else {
			h.Components["database"] = componentHealth{Status: "up"}
		}

		if _, err := os.Stat(cfg.Blobs.dir); err != nil {
			h.Status = "unhealthy"
			h.Components["storage"] = componentHealth{Status: "down", Message: "upload directory unavailable"}
		} else {
			h.Components["storage"] = componentHealth{Status: "up"}
		}

		status := http.StatusOK
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		sendJSON(w, status, h)
	}
}
