package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwulff/calo/internal/audio"
	"github.com/jwulff/calo/internal/config"
	"github.com/jwulff/calo/internal/db"
	"github.com/jwulff/calo/internal/logger"
	"github.com/jwulff/calo/internal/nutrition"
	"github.com/jwulff/calo/internal/openai"
	"github.com/jwulff/calo/internal/recorder"
	"github.com/jwulff/calo/internal/report"
	"github.com/jwulff/calo/internal/state"
	"go.uber.org/zap"
)

// env is everything a command needs, built from the config file and flags.
type env struct {
	cfg      config.Config
	cfgPath  string
	log      *zap.Logger
	store    *db.Store
	state    *state.Container
	pipeline *recorder.Pipeline
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return config.Config{}, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// setup opens the store and builds the pipeline. toFile sends logs to the
// configured log file, used when the terminal belongs to the TUI or to the
// MCP stdio transport.
func setup(toFile bool) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	opts := logger.Options{Debug: debug, Quiet: !debug}
	if toFile {
		opts = logger.Options{Path: cfg.LogPath, Debug: debug}
	}
	log, err := logger.New(opts)
	if err != nil {
		return nil, err
	}

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Close(log)
		return nil, fmt.Errorf("open database: %w", err)
	}

	st := state.New(cfg.APIKey, report.Today(time.Now()))
	ai := openai.NewClient(st.APIKey, openai.Options{
		BaseURL:            cfg.OpenAIBaseURL,
		TranscriptionModel: cfg.TranscriptionModel,
		ExtractionModel:    cfg.ExtractionModel,
	})
	foods := nutrition.NewClient(cfg.FoodDBURL, cfg.FoodDBPageSize, log.Named("off"))
	mic := audio.NewCommandMicrophone(cfg.RecordCommand, log.Named("mic"))

	p := recorder.New(recorder.Deps{
		Mic:         mic,
		Transcriber: ai,
		Extractor:   ai,
		Lookup:      foods,
		Store:       store,
		State:       st,
		Log:         log.Named("pipeline"),
		Timeouts:    cfg.Timeouts,
	})

	log.Debug("calo ready",
		zap.String("db", cfg.DBPath),
		zap.Bool("api_key_set", cfg.APIKey != ""),
	)
	return &env{
		cfg:      cfg,
		cfgPath:  resolvedConfigPath(),
		log:      log,
		store:    store,
		state:    st,
		pipeline: p,
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.log.Warn("close database", zap.Error(err))
	}
	logger.Close(e.log)
}

// openStore opens just the database for read-only reporting commands.
func openStore() (*db.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// dateArg returns args[0] as a validated date, or today.
func dateArg(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return report.Today(time.Now()), nil
	}
	if _, err := report.ParseDate(args[0]); err != nil {
		return "", fmt.Errorf("invalid date %q, want YYYY-MM-DD", args[0])
	}
	return args[0], nil
}
