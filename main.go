package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

// version is set at build time via ldflags.
var version = "dev"

// defaultOverlayURL is the overlay host that resolves ls_anytx lookups.
const defaultOverlayURL = "https://overlay-us-1.bsvb.tech"

func main() {
	addr := flag.String("addr", envOrDefault("RECEIPTS_ADDR", "127.0.0.1:3321"), "listen address for the UI-facing API")
	dataDir := flag.String("data-dir", os.Getenv("RECEIPTS_DATA_DIR"), "directory for the receipt database (default ~/.digital-receipts)")
	overlayURL := flag.String("overlay-url", envOrDefault("RECEIPTS_OVERLAY", defaultOverlayURL), "overlay lookup host")
	logLevel := flag.String("log-level", envOrDefault("RECEIPTS_LOG_LEVEL", "info"), "log level (debug|info|warn|error)")
	memory := flag.Bool("memory", false, "keep receipts in memory instead of SQLite")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))

	logger.Info("Starting digital receipts service", "version", version, "overlay", *overlayURL)

	var repo ReceiptRepository
	if *memory {
		logger.Warn("Using in-memory receipt store, receipts are lost on exit")
		repo = NewMemoryRepository()
	} else {
		dir, err := resolveDataDir(*dataDir)
		if err != nil {
			log.Fatalf("Failed to resolve data directory: %v", err)
		}
		repo, err = NewSQLiteRepository(dir, logger)
		if err != nil {
			log.Fatalf("Failed to open receipt store: %v", err)
		}
	}

	locator := NewOverlayLocator(*overlayURL, logger)
	receipts := NewReceiptService(locator, repo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer := NewHTTPServer(receipts, logger)
	go func() {
		if err := httpServer.Start(ctx, *addr); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down...")
	cancel()
	httpServer.Stop()
	logger.Info("Goodbye")
}

// resolveDataDir returns the configured data directory, defaulting to
// ~/.digital-receipts.
func resolveDataDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".digital-receipts"), nil
}

// envOrDefault returns the environment value for key, or fallback when unset.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseLevel maps a config string to a slog level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
