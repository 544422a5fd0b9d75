// Package daemon keeps conversation statistics current while an export
// directory changes.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jasperwreed/msgstats/internal/watcher"
)

// Config holds configuration for the refresh daemon
type Config struct {
	Inbox      string        `json:"inbox"`
	Pattern    string        `json:"pattern"`
	Debounce   time.Duration `json:"debounce"`
	StatusFile string        `json:"status_file,omitempty"`
}

// RefreshFunc recomputes whatever the daemon keeps current. events is nil
// for the initial refresh.
type RefreshFunc func(ctx context.Context, events []watcher.Event) error

// Metrics tracks daemon activity
type Metrics struct {
	EventsReceived  int64     `json:"events_received"`
	EventsCoalesced int64     `json:"events_coalesced"`
	Refreshes       int64     `json:"refreshes"`
	RefreshFailures int64     `json:"refresh_failures"`
	StartTime       time.Time `json:"start_time"`
	LastRefresh     time.Time `json:"last_refresh"`
	LastError       string    `json:"last_error,omitempty"`
	mu              sync.RWMutex
}

// Snapshot is a copy of Metrics safe to read without locking.
type Snapshot struct {
	EventsReceived  int64     `json:"events_received"`
	EventsCoalesced int64     `json:"events_coalesced"`
	Refreshes       int64     `json:"refreshes"`
	RefreshFailures int64     `json:"refresh_failures"`
	StartTime       time.Time `json:"start_time"`
	LastRefresh     time.Time `json:"last_refresh"`
	LastError       string    `json:"last_error,omitempty"`
}

func (m *Metrics) snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		EventsReceived:  m.EventsReceived,
		EventsCoalesced: m.EventsCoalesced,
		Refreshes:       m.Refreshes,
		RefreshFailures: m.RefreshFailures,
		StartTime:       m.StartTime,
		LastRefresh:     m.LastRefresh,
		LastError:       m.LastError,
	}
}

// Daemon re-runs a refresh whenever export files in the inbox change.
// Refreshes never overlap; changes arriving during a refresh are folded into
// the next one.
type Daemon struct {
	config  Config
	watcher *watcher.ExportWatcher
	refresh RefreshFunc
	pending chan struct{}
	metrics *Metrics
	logger  *zap.Logger

	mu     sync.Mutex
	queued []watcher.Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(config Config, refresh RefreshFunc, logger *zap.Logger) (*Daemon, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	exportWatcher, err := watcher.NewExportWatcher(config.Pattern, config.Debounce, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create export watcher: %w", err)
	}

	d := &Daemon{
		config:  config,
		watcher: exportWatcher,
		refresh: refresh,
		pending: make(chan struct{}, 1),
		metrics: &Metrics{StartTime: time.Now()},
		logger:  logger.Named("daemon"),
	}
	exportWatcher.AddHandler(d.handleEvents)

	return d, nil
}

// Start runs the initial refresh and begins watching. A failing initial
// refresh stops the daemon before anything is watched.
func (d *Daemon) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.runRefresh(nil); err != nil {
		d.cancel()
		d.watcher.Stop()
		return err
	}

	if err := d.watcher.WatchInbox(d.config.Inbox); err != nil {
		d.cancel()
		d.watcher.Stop()
		return err
	}

	if err := d.watcher.Start(); err != nil {
		d.cancel()
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	d.wg.Add(1)
	go d.processEvents()

	d.logger.Info("watching exports",
		zap.String("inbox", d.config.Inbox),
		zap.Int("directories", len(d.watcher.WatchedPaths())))
	return nil
}

// Stop stops the daemon
func (d *Daemon) Stop() error {
	d.cancel()

	if err := d.watcher.Stop(); err != nil {
		d.logger.Warn("error stopping watcher", zap.Error(err))
	}

	d.wg.Wait()

	if d.config.StatusFile != "" {
		os.Remove(d.config.StatusFile)
	}
	return nil
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}

	<-d.ctx.Done()
	return d.Stop()
}

func (d *Daemon) Metrics() Snapshot {
	return d.metrics.snapshot()
}

// handleEvents queues a watcher batch without blocking the watcher loop.
func (d *Daemon) handleEvents(events []watcher.Event) error {
	d.metrics.mu.Lock()
	d.metrics.EventsReceived += int64(len(events))
	d.metrics.mu.Unlock()

	d.mu.Lock()
	d.queued = append(d.queued, events...)
	d.mu.Unlock()

	select {
	case d.pending <- struct{}{}:
	default:
		d.metrics.mu.Lock()
		d.metrics.EventsCoalesced += int64(len(events))
		d.metrics.mu.Unlock()
	}
	return nil
}

// processEvents runs one refresh for everything queued since the last one
func (d *Daemon) processEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-d.pending:
			d.mu.Lock()
			events := d.queued
			d.queued = nil
			d.mu.Unlock()

			if len(events) == 0 {
				continue
			}
			if err := d.runRefresh(events); err != nil {
				d.logger.Error("refresh failed", zap.Int("events", len(events)), zap.Error(err))
			}
		}
	}
}

func (d *Daemon) runRefresh(events []watcher.Event) error {
	err := d.refresh(d.ctx, events)

	d.metrics.mu.Lock()
	d.metrics.Refreshes++
	d.metrics.LastRefresh = time.Now()
	if err != nil {
		d.metrics.RefreshFailures++
		d.metrics.LastError = err.Error()
	} else {
		d.metrics.LastError = ""
	}
	d.metrics.mu.Unlock()

	if d.config.StatusFile != "" {
		if werr := d.writeStatusFile(); werr != nil {
			d.logger.Warn("failed to write status file", zap.Error(werr))
		}
	}
	return err
}

// Status is what the daemon writes to its status file
type Status struct {
	PID       int       `json:"pid"`
	Status    string    `json:"status"`
	Config    Config    `json:"config"`
	Metrics   Snapshot  `json:"metrics"`
	Watching  []string  `json:"watching"`
	UpdatedAt time.Time `json:"updated_at"`
}

// writeStatusFile writes current status to file
func (d *Daemon) writeStatusFile() error {
	status := Status{
		PID:       os.Getpid(),
		Status:    "running",
		Config:    d.config,
		Metrics:   d.metrics.snapshot(),
		Watching:  d.watcher.WatchedPaths(),
		UpdatedAt: time.Now(),
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically
	tmpFile := d.config.StatusFile + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpFile, d.config.StatusFile)
}

// ReadStatus reads a status file; a missing file means the daemon is stopped.
func ReadStatus(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Status{Status: "stopped"}, nil
		}
		return nil, err
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
