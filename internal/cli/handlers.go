package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/BartekS5/stravaetl/internal/cache"
	"github.com/BartekS5/stravaetl/internal/checkpoint"
	"github.com/BartekS5/stravaetl/internal/config"
	"github.com/BartekS5/stravaetl/internal/etl"
	"github.com/BartekS5/stravaetl/internal/metrics"
	"github.com/BartekS5/stravaetl/internal/strava"
	"github.com/BartekS5/stravaetl/pkg/database"
	"github.com/BartekS5/stravaetl/pkg/logger"
	"github.com/google/uuid"
)

// Stage names used in logs and the stage metrics.
const (
	stageExtract       = "extract"
	stageBackfill      = "backfill"
	stageTransformLoad = "transform_load"
)

// app holds what a single command run needs. Everything it opens is released
// by close.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	closers []func() error
}

func newApp(cfg *config.Config) (*app, error) {
	base, err := logger.New(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		log:     base.With("run_id", uuid.NewString()),
		metrics: metrics.New(),
	}
	a.closers = append(a.closers, base.Close)
	return a, nil
}

// finish records the stage, pushes metrics when a Pushgateway is configured
// and releases resources. The stage error is returned unchanged.
func (a *app) finish(ctx context.Context, stage string, started time.Time, err error) error {
	a.metrics.ObserveStage(stage, started, err)
	if err != nil {
		a.log.Error().Err(err).Str("stage", stage).Msg("Stage failed")
	} else {
		a.log.Info().Str("stage", stage).Dur("took", time.Since(started)).Msg("Stage finished")
	}

	if a.cfg.PushgatewayURL != "" {
		if perr := a.metrics.Push(ctx, a.cfg.PushgatewayURL, a.cfg.MetricsJob); perr != nil {
			a.log.Warn().Err(perr).Msg("Metrics not pushed")
		}
	}

	a.close()
	return err
}

func (a *app) close() {
	// Reverse order; the log file goes last.
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			fmt.Fprintf(os.Stderr, "close: %v\n", err)
		}
	}
	a.closers = nil
}

func (a *app) checkpointStore() (checkpoint.Store, error) {
	if a.cfg.CheckpointBackend == config.CheckpointPostgres {
		db, err := database.OpenGorm(a.cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		return checkpoint.NewGormStore(db)
	}
	return checkpoint.NewFileStore(a.cfg.DataDir), nil
}

func (a *app) loader(ctx context.Context) (etl.Loader, error) {
	switch a.cfg.DBDriver {
	case config.DBMongo:
		client, err := database.ConnectMongo(ctx, a.cfg.MongoConnString)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Disconnect(dctx)
		})
		return etl.NewMongoLoader(client, a.cfg.MongoDatabase, a.log), nil

	case config.DBSQLServer:
		return a.sqlLoader(ctx, database.DriverSQLServer, a.cfg.SQLConnString)

	default:
		return a.sqlLoader(ctx, database.DriverPostgres, a.cfg.PostgresDSN())
	}
}

func (a *app) sqlLoader(ctx context.Context, driver, dsn string) (etl.Loader, error) {
	db, err := database.ConnectSQL(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	return etl.NewSQLLoader(db, driver, a.log)
}

func (a *app) extractor() (*etl.Extractor, error) {
	store, err := a.checkpointStore()
	if err != nil {
		return nil, err
	}
	s := a.cfg.Strava
	client := strava.NewClient(s.APIURL, s.HTTPTimeout)

	return &etl.Extractor{
		API: client,
		Tokens: &strava.TokenSource{
			OAuth:   strava.NewOAuthConfig(s.ClientID, s.ClientSecret, s.TokenURL),
			HTTP:    client.HTTP,
			DataDir: a.cfg.DataDir,
			Lookup:  a.cfg.RefreshToken,
			Log:     a.log,
		},
		Checkpoints: store,
		Cache:       cache.New(a.cfg.DataDir),
		Log:         a.log,
		PageSize:    s.PageSize,
		MaxPages:    s.MaxPages,
	}, nil
}

func loadConfig(extra ...func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	for _, check := range extra {
		if err := check(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

// runExtract runs the extract stage, or a backfill when since is set.
func runExtract(ctx context.Context, since *time.Time) error {
	cfg, err := loadConfig((*config.Config).ValidateStrava)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	stage := stageExtract
	if since != nil {
		stage = stageBackfill
	}
	started := time.Now()
	a.log.Info().Str("stage", stage).Strs("accounts", cfg.Accounts).Str("log_file", a.log.Path()).Msg("Starting")

	ext, err := a.extractor()
	if err != nil {
		return a.finish(ctx, stage, started, err)
	}
	p := &etl.Pipeline{
		Accounts:  cfg.Accounts,
		Extractor: ext,
		Metrics:   a.metrics,
		Log:       a.log,
	}

	var sum etl.ExtractSummary
	if since != nil {
		sum, err = p.Backfill(ctx, *since)
	} else {
		sum, err = p.Extract(ctx)
	}
	if err == nil {
		for _, account := range cfg.Accounts {
			if n, ok := sum.Fetched[account]; ok {
				a.log.Info().Str("account", account).Int("fetched", n).
					Msgf("%s: %d activities, checkpoint %s", account, n, checkpoint.Format(sum.Checkpoints[account]))
			}
		}
		if len(sum.Failed) > 0 {
			a.log.Warn().Strs("accounts", sum.Failed).Msg("Some accounts were skipped")
		}
	}
	return a.finish(ctx, stage, started, err)
}

func runTransformLoad(ctx context.Context) error {
	cfg, err := loadConfig((*config.Config).ValidateLoader)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	started := time.Now()
	a.log.Info().Str("stage", stageTransformLoad).Str("db_driver", cfg.DBDriver).Str("log_file", a.log.Path()).Msg("Starting")

	loader, err := a.loader(ctx)
	if err != nil {
		return a.finish(ctx, stageTransformLoad, started, err)
	}
	p := &etl.Pipeline{
		Accounts: cfg.Accounts,
		Cache:    cache.New(cfg.DataDir),
		Loader:   loader,
		Metrics:  a.metrics,
		Log:      a.log,
	}

	_, err = p.TransformLoad(ctx)
	return a.finish(ctx, stageTransformLoad, started, err)
}

// runCheckpointShow prints every account's checkpoint without writing
// anything, including the default for accounts that have none yet.
func runCheckpointShow(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.NewWriter(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}
	defer a.close()

	store, err := a.checkpointStore()
	if err != nil {
		return err
	}
	return printCheckpoints(ctx, out, store, cfg.Accounts)
}

func printCheckpoints(ctx context.Context, out io.Writer, store checkpoint.Store, accounts []string) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tUNIX\tUTC")
	for _, account := range accounts {
		ts, err := store.Get(ctx, account)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", account, ts, checkpoint.Format(ts))
	}
	return w.Flush()
}
