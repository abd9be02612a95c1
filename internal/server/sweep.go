package server

import (
	"context"
	"log"
	"time"
)

// SweepConfig controls the background expiry sweep. The sweep removes
// expired metadata rows only; blobs on disk are never touched, matching
// the behavior of the client-triggered /deleteexpired endpoint.
type SweepConfig struct {
	Enabled  bool
	Interval time.Duration
	Files    *FilesStore
}

// StartSweep runs the periodic expiry sweep until ctx is cancelled. It
// runs once immediately so a restart doesn't postpone overdue cleanup by
// a full interval.
func StartSweep(ctx context.Context, cfg SweepConfig) {
	if !cfg.Enabled {
		log.Printf("service=sweep msg=%q", "disabled")
		return
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}

	log.Printf("service=sweep msg=%q interval=%s", "starting", cfg.Interval)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	runSweep(cfg)

	for {
		select {
		case <-ctx.Done():
			log.Printf("service=sweep msg=%q", "shutting_down")
			return
		case <-ticker.C:
			runSweep(cfg)
		}
	}
}

func runSweep(cfg SweepConfig) {
	start := time.Now()
	n, err := cfg.Files.DeleteExpired(start)
	if err != nil {
		log.Printf("service=sweep msg=%q err=%v", "sweep_failed", err)
		return
	}
	if n > 0 {
		expiredDeletedTotal.Add(float64(n))
	}
	log.Printf("service=sweep msg=%q deleted=%d duration_ms=%d",
		"sweep_complete", n, time.Since(start).Milliseconds())
}
