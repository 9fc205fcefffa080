package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"github.com/Fullex26/noticehook/internal/analysers"
	"github.com/Fullex26/noticehook/internal/config"
	"github.com/Fullex26/noticehook/internal/eventbus"
	"github.com/Fullex26/noticehook/internal/notifiers"
	"github.com/Fullex26/noticehook/internal/sources"
	"github.com/Fullex26/noticehook/internal/store"
	"github.com/Fullex26/noticehook/pkg/models"
)

// Version is set at build time via ldflags: -X github.com/Fullex26/noticehook/internal/daemon.Version=<tag>
var Version = "dev"

// LogLevel is the level of the process-wide slog handler. Config reloads
// update it in place.
var LogLevel slog.LevelVar

// Daemon is the main noticehook process
type Daemon struct {
	mu      sync.Mutex
	cfg     *config.Config
	cfgPath string

	bus      *eventbus.Bus
	store    *store.Store
	notifier *notifiers.Webhook
	dedup    *analysers.Deduplicator
	sources  []sources.Source
}

// New creates a new daemon instance. cfgPath is watched for changes while
// the daemon runs; pass "" to disable reloading.
func New(cfg *config.Config, cfgPath string) (*Daemon, error) {
	bus := eventbus.New()

	// Open delivery store
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		cfgPath:  cfgPath,
		bus:      bus,
		store:    db,
		notifier: notifiers.NewWebhook(cfg.Webhook, nil, db),
	}

	bus.Subscribe(models.TopicNoticeMessage, d.notifier.Handle)

	// Register sources
	if cfg.Intake.Enabled {
		intake := sources.NewIntake(cfg.Intake.Listen, bus)
		if cfg.Intake.DedupWindow > 0 {
			d.dedup = analysers.NewDeduplicator(time.Duration(cfg.Intake.DedupWindow) * time.Second)
			intake.WithDedup(d.dedup)
		}
		d.sources = append(d.sources, intake)
	}

	return d, nil
}

// Run starts the daemon and blocks until interrupted
func (d *Daemon) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return d.Serve(ctx)
}

// Serve runs sources, the config watcher and the prune schedule until ctx
// is cancelled, then releases everything.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := d.config()

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Store.PruneSchedule, d.prune); err != nil {
		return fmt.Errorf("scheduling prune: %w", err)
	}
	if d.dedup != nil {
		if _, err := sched.AddFunc("@every 1m", func() { d.dedup.Cleanup() }); err != nil {
			return fmt.Errorf("scheduling dedup cleanup: %w", err)
		}
	}

	// Start all sources
	var wg sync.WaitGroup
	for _, s := range d.sources {
		wg.Add(1)
		go func(s sources.Source) {
			defer wg.Done()
			slog.Info("starting source", "name", s.Name())
			if err := s.Start(ctx); err != nil {
				slog.Error("source failed", "name", s.Name(), "error", err)
			}
		}(s)
	}

	if d.cfgPath != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := config.Watch(ctx, d.cfgPath, d.reload); err != nil {
				slog.Error("config watcher failed", "path", d.cfgPath, "error", err)
			}
		}()
	}

	sched.Start()

	hostname, _ := os.Hostname()
	slog.Info("noticehook started",
		"version", Version,
		"hostname", hostname,
		"sources", len(d.sources),
		"webhook_active", d.notifier.State(),
	)
	if _, err := sddaemon.SdNotify(false, sddaemon.SdNotifyReady); err != nil {
		slog.Warn("systemd notify failed", "error", err)
	}

	<-ctx.Done()
	slog.Info("shutting down...")
	_, _ = sddaemon.SdNotify(false, sddaemon.SdNotifyStopping)

	<-sched.Stop().Done()
	wg.Wait()

	// Cleanup
	for _, s := range d.sources {
		_ = s.Stop()
	}
	// Accepted notices finish their delay and dispatch before the store closes.
	d.bus.Wait()
	_ = d.store.Close()

	slog.Info("noticehook stopped")
	return nil
}

// Send publishes one notice and waits for the notifier to finish with it
func (d *Daemon) Send(notice models.Notice) {
	d.bus.PublishSync(models.TopicNoticeMessage, notice)
}

// TestNotifier sends a test message to the configured webhook
func (d *Daemon) TestNotifier() error {
	slog.Info("testing notifier", "name", d.notifier.Name())
	if err := d.notifier.Test(); err != nil {
		return fmt.Errorf("%s: %w", d.notifier.Name(), err)
	}
	slog.Info("notifier OK", "name", d.notifier.Name())
	return nil
}

// Close releases the store for short-lived commands that never call Serve
func (d *Daemon) Close() error {
	return d.store.Close()
}

func (d *Daemon) config() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// reload applies a changed config file. The webhook section, the retention
// period and the log level take effect live; intake and store paths need a
// restart.
func (d *Daemon) reload(next *config.Config) {
	d.mu.Lock()
	prev := d.cfg
	d.cfg = next
	d.mu.Unlock()

	d.notifier.Reconfigure(next.Webhook)

	if prev.Log != next.Log {
		LogLevel.Set(next.Log.SlogLevel())
		slog.Info("log level changed", "level", next.Log.Level)
	}

	if prev.Intake != next.Intake || prev.Store.Path != next.Store.Path ||
		prev.Store.PruneSchedule != next.Store.PruneSchedule {
		slog.Warn("intake and store changes take effect after restart")
	}
}

func (d *Daemon) prune() {
	days := d.config().Store.RetentionDays
	pruned, err := d.store.Prune(days)
	if err != nil {
		slog.Error("failed to prune deliveries", "error", err)
		return
	}
	if pruned > 0 {
		slog.Info("pruned old deliveries", "count", pruned, "retention_days", days)
	}
}
