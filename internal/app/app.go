package app

import (
	"context"
	"errors"
	"fmt"

	"precedent/internal/backend"
	"precedent/internal/config"
	"precedent/internal/events"
	"precedent/internal/history"
	"precedent/internal/logger"
	"precedent/internal/render"
	"precedent/internal/search"
	"precedent/internal/tracer"
	"precedent/internal/upload"
)

// App holds the wired components shared by the CLI commands and the TUI.
type App struct {
	Config   *config.AppConfig
	Logger   logger.ILogger
	Client   *backend.Client
	Bus      *events.Bus
	Search   *search.Controller
	Upload   *upload.Controller
	History  *history.Tracker
	Renderer render.Renderer

	shutdownTracer func(context.Context) error
	stopListening  context.CancelFunc
}

// Options tweak construction; the zero value is fine.
type Options struct {
	// Logger replaces the file logger built from config.
	Logger logger.ILogger
}

// New wires every component from cfg.
func New(cfg *config.AppConfig, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		file := cfg.Log.File
		if file == "" {
			file = config.DefaultLogFile()
		}
		log = logger.NewZapLogger(logger.Options{
			FilePath:   file,
			Level:      cfg.Log.Level,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Console:    cfg.Log.Console,
		})
	}

	shutdown := tracer.Init(cfg.Tracing, log)

	client, err := backend.NewClient(backend.Config{BaseURL: cfg.Backend.BaseURL, Logger: log})
	if err != nil {
		_ = shutdown(context.Background())
		return nil, fmt.Errorf("backend client: %w", err)
	}

	bus := events.NewBus(log)
	a := &App{
		Config: cfg,
		Logger: log,
		Client: client,
		Bus:    bus,
		Search: search.NewController(client,
			search.WithTimeout(cfg.RequestTimeout()),
			search.WithDefaultLimit(cfg.Search.DefaultLimit),
			search.WithLogger(log),
		),
		Upload: upload.NewController(client,
			upload.WithNotifier(bus),
			upload.WithTimeout(cfg.UploadTimeout()),
			upload.WithExtensions(cfg.Upload.AllowedExtensions),
			upload.WithLogger(log),
		),
		History: history.NewTracker(client,
			history.WithTimeout(cfg.RequestTimeout()),
			history.WithLogger(log),
		),
		Renderer:       render.Renderer{Links: client},
		shutdownTracer: shutdown,
	}
	log.Info("APP", "components wired", map[string]interface{}{"backend": client.BaseURL()})
	return a, nil
}

// Start subscribes the history tracker to ingest signals. The initial
// history fetch is left to the caller.
func (a *App) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	messages, err := a.Bus.SubscribeIngestSucceeded(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe: %w", err)
	}
	a.stopListening = cancel
	go a.History.Listen(ctx, messages)
	return nil
}

// Close stops listeners and flushes the tracer and logger.
func (a *App) Close() error {
	if a.stopListening != nil {
		a.stopListening()
	}
	var errs []error
	if err := a.Bus.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}
