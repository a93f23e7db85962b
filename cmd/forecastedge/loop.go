package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/adapters/notify"
	"github.com/alejandrodnm/forecastedge/internal/adapters/storage"
	"github.com/alejandrodnm/forecastedge/internal/application/engine"
	"github.com/alejandrodnm/forecastedge/internal/application/scanner"
	"github.com/alejandrodnm/forecastedge/internal/ledger"
)

const stopFile = "STOP"

func runLoop(ctx context.Context, s *scanner.Scanner, e *engine.Engine, store *storage.SQLiteStorage, notifier *notify.Console, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("loop started, press Ctrl+C or create STOP file to exit")
	fmt.Printf("[PAPER] scan + lifecycle every %s\n", interval)

	runCycle(ctx, s, e)

	for {
		select {
		case <-ctx.Done():
			slog.Info("loop stopped (signal)")
			runStats(context.Background(), store, notifier)
			return
		case <-ticker.C:
			if _, err := os.Stat(stopFile); err == nil {
				slog.Info("STOP file detected, shutting down")
				os.Remove(stopFile)
				runStats(ctx, store, notifier)
				return
			}
			runCycle(ctx, s, e)
		}
	}
}

// runCycle: primero el scanner abre posiciones, luego el engine evalúa stops y resoluciones.
func runCycle(ctx context.Context, s *scanner.Scanner, e *engine.Engine) {
	if _, err := s.RunCycle(ctx); err != nil {
		slog.Error("scan cycle failed", "err", err)
	}
	if ctx.Err() != nil {
		return
	}
	if _, err := e.RunOnce(ctx); err != nil {
		slog.Error("lifecycle pass failed", "err", err)
	}
}

func runStats(ctx context.Context, store *storage.SQLiteStorage, notifier *notify.Console) {
	positions, err := store.GetAllPositions(ctx)
	if err != nil {
		slog.Error("failed to load positions", "err", err)
		return
	}
	if err := notifier.PrintStats(ledger.ComputeStats(positions)); err != nil {
		slog.Warn("notifier error", "err", err)
	}
}

func runHistory(ctx context.Context, store *storage.SQLiteStorage, notifier *notify.Console, window time.Duration) {
	to := time.Now()
	signals, err := store.GetSignals(ctx, to.Add(-window), to)
	if err != nil {
		slog.Error("failed to load signals", "err", err)
		os.Exit(1)
	}
	notifier.PrintSignals(signals)
}
