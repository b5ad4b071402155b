package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vaibhavmahiwal/medverify/internal/extract"
	"github.com/vaibhavmahiwal/medverify/internal/fetch"
	"github.com/vaibhavmahiwal/medverify/internal/pipeline"
	"github.com/vaibhavmahiwal/medverify/internal/store"
	"github.com/vaibhavmahiwal/medverify/internal/trust"
	"github.com/vaibhavmahiwal/medverify/internal/verdict"
	anthropicpkg "github.com/vaibhavmahiwal/medverify/pkg/anthropic"
	"github.com/vaibhavmahiwal/medverify/pkg/gemini"
)

// appEnv holds the initialized store and pipeline shared by the serve,
// verify, and history commands.
type appEnv struct {
	Store    store.ResultStore
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp builds the store, the model clients, and the verification
// pipeline. Callers should defer env.Close().
func initApp(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	if cfg.Gemini.Key == "" {
		zap.L().Warn("MEDVERIFY_GEMINI_KEY not set, grounded judgments will fail")
	}
	geminiClient := gemini.NewClient(cfg.Gemini.Key,
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithModel(cfg.Gemini.Model),
		gemini.WithRateLimit(cfg.Gemini.RequestsPerSecond),
	)

	// The style judge and term extractor tolerate a nil client and degrade
	// to their local fallbacks.
	var anthropicClient anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		anthropicClient = anthropicpkg.NewClient(cfg.Anthropic.Key)
	} else {
		zap.L().Warn("MEDVERIFY_ANTHROPIC_KEY not set, style analysis and term extraction fall back to heuristics")
	}

	rater, err := initSourceRater()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var proxies fetch.ProxySource = fetch.Direct{}
	if cfg.Fetch.ProxyListURL != "" {
		proxies = fetch.NewListSource(cfg.Fetch.ProxyListURL,
			time.Duration(cfg.Fetch.ProxyTTLMinutes)*time.Minute)
	}
	fetcher := fetch.NewHTTPFetcher(proxies,
		fetch.WithAttempts(cfg.Fetch.Attempts),
		fetch.WithTimeout(time.Duration(cfg.Fetch.TimeoutSecs)*time.Second),
	)

	p := pipeline.New(
		rater,
		trust.NewStyleEstimator(anthropicClient, cfg.Anthropic.Model),
		fetcher,
		extract.NewLLMExtractor(anthropicClient, cfg.Anthropic.Model),
		verdict.NewEngine(geminiClient, cfg.Gemini.Model),
		st,
	)

	return &appEnv{Store: st, Pipeline: p}, nil
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.ResultStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
		if err != nil {
			return nil, eris.Wrap(err, "init postgres store")
		}
		zap.L().Info("store: postgres backend")
		return st, nil
	case "sqlite":
		st, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite store")
		}
		zap.L().Info("store: sqlite backend", zap.String("path", cfg.Store.DatabaseURL))
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func initSourceRater() (*trust.SourceRater, error) {
	if cfg.Trust.PatternsFile == "" {
		return trust.NewSourceRater(), nil
	}
	rater, err := trust.NewSourceRaterFromFile(cfg.Trust.PatternsFile)
	if err != nil {
		return nil, eris.Wrapf(err, "load trust patterns %s", cfg.Trust.PatternsFile)
	}
	zap.L().Info("trust: patterns loaded", zap.String("file", cfg.Trust.PatternsFile))
	return rater, nil
}
