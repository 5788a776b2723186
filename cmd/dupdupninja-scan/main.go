// Command dupdupninja-scan is a development harness for exercising the
// scan engine and query engine directly from a terminal, without going
// through the C ABI. It is not part of the Stable Boundary; it exists for
// local testing and manual verification as its own process entry point.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/mnj/dupdupninja-v2/internal/cancel"
	"github.com/mnj/dupdupninja-v2/internal/config"
	"github.com/mnj/dupdupninja-v2/internal/db"
	"github.com/mnj/dupdupninja-v2/internal/query"
	"github.com/mnj/dupdupninja-v2/internal/scan"
	"github.com/mnj/dupdupninja-v2/internal/videosnap"
)

// version is injected at build time via -ldflags; defaults to "dev".
var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	root := flag.String("root", "", "folder to scan (overrides config scan_roots[0] if set)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})))

	scanRoot := *root
	if scanRoot == "" && len(cfg.ScanRoots) > 0 {
		scanRoot = cfg.ScanRoots[0]
	}
	if scanRoot == "" {
		slog.Error("no scan root given: pass -root or set scan_roots in config")
		os.Exit(1)
	}

	runID := uuid.New().String()
	slog.Info("dupdupninja-scan starting",
		"version", version, "run_id", runID, "db_path", cfg.DBPath, "root", scanRoot)

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("open fileset", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	tok := cancel.New()
	go watchSignals(tok)

	excludePaths := make(map[string]struct{}, len(cfg.ExcludePaths))
	for _, p := range cfg.ExcludePaths {
		excludePaths[p] = struct{}{}
	}

	opts := scan.Options{
		ExcludeDotfiles:  cfg.ExcludeDotfiles,
		ExcludePaths:     excludePaths,
		Workers:          cfg.ConcurrentProcessing,
		CaptureSnapshots: cfg.CaptureSnapshots,
		SnapshotCount:    cfg.SnapshotsPerVideo,
		SnapshotMaxDim:   cfg.SnapshotMaxDim,
	}
	if cfg.CaptureSnapshots {
		opts.VideoDecoder = videosnap.NewFFmpegDecoder()
	}

	started := time.Now()
	res := scan.Run(store, scanRoot, tok, opts, &scan.Progress{}, func(s scan.Snapshot) {
		slog.Info("scan progress",
			"phase", s.Phase,
			"files_seen", s.FilesSeen,
			"files_hashed", s.FilesHashed,
			"files_skipped", s.FilesSkipped,
			"bytes_seen", humanize.Bytes(uint64(s.BytesSeen)))
	})
	elapsed := time.Since(started)

	slog.Info("scan finished",
		"outcome", res.Outcome,
		"elapsed", elapsed.Round(time.Millisecond),
		"files_seen", humanize.Comma(res.FilesSeen),
		"files_hashed", humanize.Comma(res.FilesHashed),
		"files_skipped", humanize.Comma(res.FilesSkipped),
		"bytes_seen", humanize.Bytes(uint64(res.BytesSeen)))
	if res.Err != nil {
		slog.Error("scan failed", "error", res.Err)
		os.Exit(1)
	}

	printSummary(store)
}

func printSummary(store *db.Store) {
	exact, err := query.ExactGroups(store.DB(), 50, 0)
	if err != nil {
		slog.Error("list exact groups", "error", err)
		return
	}
	fmt.Printf("\n%d exact-duplicate group(s):\n", len(exact))
	for _, g := range exact {
		fmt.Printf("  %s (%d files)\n", g.Label, len(g.Files))
		for _, f := range g.Files {
			fmt.Printf("    %s\n", f.Path)
		}
	}

	similar, err := query.SimilarGroups(store.DB(), 50, 0, query.SimilarOptions{})
	if err != nil {
		slog.Error("list similar groups", "error", err)
		return
	}
	fmt.Printf("\n%d near-duplicate group(s):\n", len(similar))
	for _, g := range similar {
		fmt.Printf("  base file #%d\n", g.BaseFileID)
		for _, m := range g.Members {
			fmt.Printf("    %s (phash distance %d, %.2f%% confidence)\n", m.Path, m.PHashDistance, m.ConfidencePct)
		}
	}
}

func watchSignals(tok *cancel.Token) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	slog.Info("dupdupninja-scan: cancelling scan on signal")
	tok.Cancel()
}

// parseLogLevel converts a config string ("debug", "info", "warn", "error")
// to its slog.Level equivalent. Unknown values default to Info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
