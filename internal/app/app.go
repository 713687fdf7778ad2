package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pricesync/internal/config"
	"pricesync/internal/fetcher"
	"pricesync/internal/metrics"
	"pricesync/internal/service"
	"pricesync/internal/storage"
)

// closeTimeout bounds connection teardown once the command context is gone.
const closeTimeout = 5 * time.Second

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Recorder *metrics.Recorder
	RunID    string
}

// NewApp constructs a new application handle. Every handle carries its own run id.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	runID := uuid.NewString()
	return &App{
		Config:   cfg,
		Logger:   logger.With().Str("component", "app").Str("run_id", runID).Logger(),
		Recorder: metrics.NewRecorder(),
		RunID:    runID,
	}
}

func (a *App) newFetcher() *fetcher.NBP {
	return fetcher.NewNBP(fetcher.NBPOptions{
		BaseURL:   a.Config.NBP.BaseURL,
		Table:     a.Config.NBP.Table,
		Timeout:   a.Config.NBP.Timeout,
		UserAgent: a.Config.NBP.UserAgent,
	}, a.Logger)
}

func (a *App) newService() *service.Service {
	open := func(ctx context.Context) (storage.PriceStore, func(), error) {
		return a.openStore(ctx)
	}
	return service.New(service.OptionsFromConfig(a.Config.Sync), a.newFetcher(), open, a.Recorder, a.Logger)
}

// openStore opens one connection for one unit of work. The returned closer
// releases it and is safe to defer.
func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	allow, err := a.Config.AllowList()
	if err != nil {
		return nil, nil, err
	}

	conn, err := storage.Connect(ctx, a.Config.Database)
	if err != nil {
		a.Logger.Error().Err(err).Str("host", a.Config.Database.Host).Msg("unable to connect to database")
		return nil, nil, err
	}

	store := storage.NewStore(conn, allow, storage.Options{
		ReferenceColumn: a.Config.Schema.ReferenceColumn,
		Precision:       a.Config.Schema.Precision,
		Scale:           a.Config.Schema.Scale,
	}, a.Logger)

	closer := func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("closing database connection")
		}
	}
	return store, closer, nil
}

// withSignals bounds a command by SIGINT and SIGTERM.
func withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

// finish stamps a successful command and pushes the run metrics. A failed
// push is logged and never masks the command outcome.
func (a *App) finish(ctx context.Context, err error) error {
	if err == nil {
		a.Recorder.MarkSuccess(time.Now().UTC())
	}

	url := a.Config.Metrics.PushgatewayURL
	if url != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if perr := a.Recorder.Push(pushCtx, url, a.Config.Metrics.Job); perr != nil {
			a.Logger.Warn().Err(perr).Str("url", url).Msg("unable to push metrics")
		}
	}
	return err
}
