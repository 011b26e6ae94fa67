package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"lookout-gallery/internal/store"
)

const (
	// Default timeout for store operations
	defaultTimeout = 30 * time.Second
	// Default data directory path
	defaultDataDir = "/data"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	dbPath := filepath.Join(dataDir, "thumbnails.db")

	st, err := store.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open thumbnail store: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATA_DIR is set correctly (current: %s)\n", dataDir)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
		}
	}()

	if retention := os.Getenv("CACHE_RETENTION"); retention != "" {
		d, err := time.ParseDuration(retention)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid CACHE_RETENTION %q: %v\n", retention, err)
			os.Exit(1)
		}
		st.SetRetention(d)
	}

	switch command {
	case "purge":
		if !purgeExpired(ctx, st) {
			os.Exit(1)
		}
	case "clear":
		if !clearAll(ctx, st) {
			os.Exit(1)
		}
	case "status":
		if !showStatus(ctx, st) {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command\n\n")
		printUsage()
		os.Exit(1)
	}
}

func purgeExpired(ctx context.Context, st *store.Store) bool {
	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	removed, err := st.PurgeExpired(opCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: purge failed: %v\n", err)
		return false
	}
	fmt.Printf("Removed %d expired records\n", removed)
	return true
}

func clearAll(ctx context.Context, st *store.Store) bool {
	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, _, err := st.Stats(opCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read store stats: %v\n", err)
		return false
	}

	if err := st.Clear(opCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: clear failed: %v\n", err)
		return false
	}
	fmt.Printf("Removed all %d records\n", total)
	return true
}

func showStatus(ctx context.Context, st *store.Store) bool {
	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, expired, err := st.Stats(opCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read store stats: %v\n", err)
		return false
	}

	fmt.Printf("Total records:   %d\n", total)
	fmt.Printf("Expired records: %d\n", expired)
	return true
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: purgecache <command>

Commands:
  purge    Remove records older than the retention window
  clear    Remove all cached thumbnail records
  status   Show record counts

Environment:
  DATA_DIR         Data directory containing thumbnails.db (default: %s)
  CACHE_RETENTION  Retention window as a Go duration (default: 720h)
`, defaultDataDir)
}
