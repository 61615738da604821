// Package app wires the configured components into a tracker service for
// the command line binaries.
package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/notexe/proofpal/internal/config"
	"github.com/notexe/proofpal/internal/dashboard"
	"github.com/notexe/proofpal/internal/dossier"
	"github.com/notexe/proofpal/internal/files"
	"github.com/notexe/proofpal/internal/logging"
	"github.com/notexe/proofpal/internal/reminder"
	"github.com/notexe/proofpal/internal/scheduler"
	"github.com/notexe/proofpal/internal/store"
	"github.com/notexe/proofpal/internal/tracker"
)

// App holds the open resources behind a Service.
type App struct {
	Config  *config.Config
	Service *tracker.Service
	Logger  zerolog.Logger

	store *store.Store
}

// New opens the database and file storage described by cfg and builds the
// service. logOut receives log output; nil means stderr.
func New(cfg *config.Config, logOut io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOut,
	})

	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	fs, err := files.New(cfg.FilesDir)
	if err != nil {
		st.Close()
		return nil, err
	}

	svc := tracker.New(tracker.Deps{
		Store:  st,
		Files:  fs,
		Engine: reminder.NewEngine(st, policy, reminder.WithLogger(logger)),
		Dashboard: dashboard.NewAggregator(st, policy,
			dashboard.WithActivityWindow(cfg.Dashboard.ActivityLimit, cfg.ActivityAge()),
			dashboard.WithUrgentLimit(cfg.Dashboard.UrgentLimit),
		),
		Dossier: dossier.NewBuilder(fs,
			dossier.WithWorkers(cfg.Dossier.Workers),
			dossier.WithTimeout(cfg.DossierTimeout()),
			dossier.WithCompression(cfg.Dossier.Compress),
			dossier.WithMaxPixels(cfg.Dossier.MaxPixels),
		),
		ExportDir: cfg.ExportDir,
	}, tracker.WithLogger(logger))

	logger.Debug().Str("database", cfg.Database).Str("files", cfg.FilesDir).Msg("Storage opened")
	return &App{Config: cfg, Service: svc, Logger: logger, store: st}, nil
}

// Close releases the database.
func (a *App) Close() error {
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Notifiers returns the reminder channels enabled in the configuration.
// Console reminders go to out.
func (a *App) Notifiers(out io.Writer) []scheduler.Notifier {
	var ns []scheduler.Notifier
	if a.Config.Scheduler.Console {
		ns = append(ns, scheduler.NewConsoleNotifier(out))
	}
	if tg := a.Config.Scheduler.Telegram; tg.Enabled() {
		ns = append(ns, scheduler.NewTelegramSender(tg.BotToken, tg.ChatID, scheduler.WithRate(tg.RatePerSec)))
	}
	return ns
}

// Scheduler builds the periodic scan loop with every enabled notifier.
func (a *App) Scheduler(out io.Writer) *scheduler.Scheduler {
	return scheduler.New(a.Service, a.Config.ScanInterval(), a.Notifiers(out)...)
}
