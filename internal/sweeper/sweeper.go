// Package sweeper runs the background agent: periodic heartbeat signals
// and auto-resolution of signals nobody picked up.
package sweeper

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"healflow/internal/config"
	"healflow/internal/store"
	"healflow/internal/sysmon"
)

// Sweeper owns the background loop. All state lives in the store; the
// sweeper shares nothing with the HTTP handlers except the store itself.
type Sweeper struct {
	store   *store.Store
	monitor *sysmon.Monitor
	cfg     config.SweeperConfig
	logger  *zap.Logger

	lastHeartbeat time.Time
}

// New builds a sweeper. monitor may be nil; heartbeats then carry only the
// nominal status. The heartbeat clock starts at construction, so the first
// heartbeat lands one full interval after boot.
func New(s *store.Store, monitor *sysmon.Monitor, cfg config.SweeperConfig, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		store:         s,
		monitor:       monitor,
		cfg:           cfg,
		logger:        logger.Named("sweeper"),
		lastHeartbeat: time.Now(),
	}
}

// Run ticks until the context is cancelled. Errors inside a tick are
// logged and the loop continues; the sweeper never takes the process down.
func (sw *Sweeper) Run(ctx context.Context) {
	sw.logger.Info("background agent started",
		zap.Duration("tick", sw.cfg.Tick),
		zap.Duration("stale_after", sw.cfg.StaleAfter))

	ticker := time.NewTicker(sw.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("background agent stopped")
			return
		case <-ticker.C:
			sw.Tick()
		}
	}
}

// Tick runs one sweep: heartbeat if due, then stale-signal resolution.
// Exported so tests can drive the sweeper without wall-clock waits.
func (sw *Sweeper) Tick() {
	now := time.Now()
	if now.Sub(sw.lastHeartbeat) >= sw.cfg.HeartbeatEvery {
		if err := sw.heartbeat(); err != nil {
			sw.logger.Error("heartbeat failed", zap.Error(err))
		} else {
			sw.lastHeartbeat = now
		}
	}

	if err := sw.autoResolveStale(); err != nil {
		sw.logger.Error("auto-resolve sweep failed", zap.Error(err))
	}
}

func (sw *Sweeper) heartbeat() error {
	metadata := map[string]any{"status": "nominal"}
	if sw.monitor != nil {
		metadata = sw.monitor.Metadata()
	}
	_, err := sw.store.CreateSignal(store.SignalInput{
		Type:     "HEARTBEAT",
		Severity: store.SeveritySystem,
		Source:   "SystemMonitor",
		Metadata: metadata,
	})
	return err
}

// autoResolveStale resolves pending and processing signals older than the
// configured threshold and records an incident for each, crediting the
// background agent.
func (sw *Sweeper) autoResolveStale() error {
	limit := sw.cfg.BatchLimit
	if limit <= 0 {
		limit = 20
	}

	pending, err := sw.store.ListSignals(store.SignalFilter{Limit: limit, Status: store.SignalPending})
	if err != nil {
		return err
	}
	processing, err := sw.store.ListSignals(store.SignalFilter{Limit: limit, Status: store.SignalProcessing})
	if err != nil {
		return err
	}

	cutoff := time.Now().UTC().Add(-sw.cfg.StaleAfter)
	for _, sig := range append(pending, processing...) {
		ts, err := store.ParseTime(sig.Timestamp)
		if err != nil {
			sw.logger.Warn("unparseable signal timestamp",
				zap.String("signal_id", sig.ID),
				zap.String("timestamp", sig.Timestamp))
			continue
		}
		if !ts.Before(cutoff) {
			continue
		}

		notes := "Auto-resolved by Background AI Agent"
		if sig.Severity == store.SeverityCritical {
			notes += " (Emergency Protocol)"
		}
		revenue := float64(rand.Intn(49001) + 1000)

		resolved, err := sw.store.AutoResolveSignal(sig, notes, revenue)
		if err != nil {
			sw.logger.Error("auto-resolve failed",
				zap.String("signal_id", sig.ID),
				zap.Error(err))
			continue
		}
		if resolved {
			sw.logger.Info("auto-resolved stale signal",
				zap.String("signal_id", sig.ID),
				zap.String("type", sig.Type),
				zap.String("severity", sig.Severity))
		}
	}
	return nil
}
