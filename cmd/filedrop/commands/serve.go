package commands

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"filedrop/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the filedrop HTTP service",
	Long: `Run the filedrop HTTP service. Configuration comes from the
environment:

  FILEDROP_ADDR            listen address (default :8080)
  FILEDROP_DB              SQLite database path (default ./filedrop.db)
  FILEDROP_UPLOAD_DIR      blob directory (default ./uploaded)
  FILEDROP_LIFETIME_DAYS   file lifetime in days (default 7)
  FILEDROP_SESSION_SECRET  session/anti-forgery HMAC secret (required)
  FILEDROP_SESSION_TTL     session lifetime (default 12h)
  FILEDROP_SWEEP_ENABLED   background expiry sweep (default false)
  FILEDROP_SWEEP_INTERVAL  sweep interval (default 1h)`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServe()
	},
}

func runServe() error {
	addr := getenvDefault("FILEDROP_ADDR", ":8080")
	dbPath := getenvDefault("FILEDROP_DB", "./filedrop.db")
	uploadDir := getenvDefault("FILEDROP_UPLOAD_DIR", "./uploaded")
	secret := os.Getenv("FILEDROP_SESSION_SECRET")

	// Refuse to start without a secret: a guessable session key would
	// let anyone mint valid sessions.
	if secret == "" {
		log.Printf("service=filedrop msg=%q", "FILEDROP_SESSION_SECRET is required")
		return errors.New("FILEDROP_SESSION_SECRET is required")
	}

	lifetimeDays := 7
	if v := os.Getenv("FILEDROP_LIFETIME_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("service=filedrop msg=%q got=%q", "bad FILEDROP_LIFETIME_DAYS", v)
			return errors.New("bad FILEDROP_LIFETIME_DAYS")
		}
		lifetimeDays = n
	}

	sessionTTL := 12 * time.Hour
	if v := os.Getenv("FILEDROP_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Printf("service=filedrop msg=%q got=%q", "bad FILEDROP_SESSION_TTL", v)
			return errors.New("bad FILEDROP_SESSION_TTL")
		}
		sessionTTL = d
	}

	db, err := server.OpenDB(dbPath)
	if err != nil {
		log.Printf("service=filedrop msg=%q err=%v", "db_open_failed", err)
		return err
	}
	defer func() { _ = db.Close() }()

	files, err := server.NewFilesStore(db, "files")
	if err != nil {
		log.Printf("service=filedrop msg=%q err=%v", "files_store_init_failed", err)
		return err
	}
	users, err := server.NewUsersStore(db, "users")
	if err != nil {
		log.Printf("service=filedrop msg=%q err=%v", "users_store_init_failed", err)
		return err
	}
	blobs, err := server.NewBlobStore(uploadDir)
	if err != nil {
		log.Printf("service=filedrop msg=%q err=%v", "blob_store_init_failed", err)
		return err
	}

	srv := server.New(server.Config{
		Addr:  addr,
		Build: server.BuildInfo{Version: Version, Commit: Commit},
		Auth: server.AuthConfig{
			SessionSecret: secret,
			SessionTTL:    sessionTTL,
			CookieName:    "token",
			Users:         users,
		},
		DB:               db,
		Files:            files,
		Users:            users,
		Blobs:            blobs,
		FileLifetimeDays: lifetimeDays,
	})

	// Background expiry sweep, cancelled on shutdown.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go server.StartSweep(sweepCtx, server.SweepConfig{
		Enabled:  os.Getenv("FILEDROP_SWEEP_ENABLED") == "true",
		Interval: parseDurationDefault(os.Getenv("FILEDROP_SWEEP_INTERVAL"), time.Hour),
		Files:    files,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=filedrop msg=%q addr=%s version=%s commit=%s",
			"starting", addr, Version, Commit)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=filedrop msg=%q signal=%s", "shutting_down", sig.String())
		stopSweep()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=filedrop msg=%q err=%v", "shutdown_error", err)
			return err
		}
		log.Printf("service=filedrop msg=%q", "shutdown_complete")
		return nil
	case err := <-errCh:
		if err != nil {
			log.Printf("service=filedrop msg=%q err=%v", "server_error", err)
		}
		return err
	}
}

func parseDurationDefault(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return def
}
