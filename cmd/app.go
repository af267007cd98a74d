package cmd

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"hindsight/internal/config"
	"hindsight/internal/llm"
	"hindsight/internal/resolve"
	"hindsight/internal/rules"
	"hindsight/internal/store"
)

// app is the wired core shared by every subcommand.
type app struct {
	paths    config.Paths
	store    *store.SQLiteStore
	rules    *rules.Live
	model    *llm.FixClient
	resolver *resolve.Resolver
}

// openApp opens storage, loads the rules and builds the model client and
// resolver from the loaded config. Failing to open storage is fatal; a
// missing model is not.
func openApp(ctx context.Context) (*app, error) {
	paths := cfg.Paths()
	if err := paths.Ensure(); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, paths.DB())
	if err != nil {
		return nil, fmt.Errorf("cannot open storage: %w", err)
	}

	if seeded, err := st.Brain().SeedIfEmpty(ctx); err != nil {
		logger.Warn("seeding knowledge base failed", zap.Error(err))
	} else if seeded {
		logger.Info("knowledge base seeded with curated fixes")
	}

	rl, err := rules.NewLive(paths.Rules(), logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load rules: %w", err)
	}

	provider, err := llm.New(ctx, cfg.Model, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	model := llm.NewFixClient(provider, cfg.ModelTimeout(), logger)

	r := resolve.New(resolve.Deps{
		Rules:     rl,
		History:   st.History(),
		Knowledge: st.Brain(),
		Model:     model,
		Log:       logger,
	}, resolve.Options{
		RecallLimit:    cfg.Recall.Limit,
		CommunityLimit: cfg.Fix.CommunityLimit,
	})

	return &app{paths: paths, store: st, rules: rl, model: model, resolver: r}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("close store", zap.Error(err))
	}
}

// workingDir returns the directory context is detected in.
func workingDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return os.Getwd()
}
