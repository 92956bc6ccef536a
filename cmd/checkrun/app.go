package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	githubadapter "github.com/ericfisherdev/checkrunsync/internal/adapter/driven/github"
	"github.com/ericfisherdev/checkrunsync/internal/adapter/driven/actions"
	sqliteadapter "github.com/ericfisherdev/checkrunsync/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/checkrunsync/internal/adapter/driven/statefile"
	"github.com/ericfisherdev/checkrunsync/internal/application"
	"github.com/ericfisherdev/checkrunsync/internal/config"
	"github.com/ericfisherdev/checkrunsync/internal/domain/port/driven"
)

// app is the composition root shared by all subcommands.
type app struct {
	cfg     *config.Config
	store   *statefile.Store
	journal driven.CheckRunJournal // nil when no journal is configured.
	service *application.CheckRunService
	db      *sqliteadapter.DB
}

func newApp(ctx context.Context, cfg *config.Config, stdout io.Writer) (*app, error) {
	a := &app{
		cfg:   cfg,
		store: statefile.NewStore(cfg.StatePath, cfg.PrivateKey),
	}

	if cfg.HasJournal() {
		db, err := sqliteadapter.NewDB(ctx, cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.journal = sqliteadapter.NewJournalRepo(db)
		slog.Debug("journal opened", "path", db.Path())
	}

	auth, err := githubadapter.NewAppAuthenticator(cfg.AppID, cfg.PrivateKey, cfg.APIURL)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create app authenticator: %w", err)
	}

	factory, err := githubadapter.NewClientFactory(cfg.APIURL)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create check run client factory: %w", err)
	}

	var secrets driven.SecretSink
	if cfg.MaskSecrets {
		secrets = actions.NewMasker(stdout)
	}

	tokens := application.NewTokenManager(auth, a.store, secrets, a.journal)
	clients := application.NewCheckRunClientProvider(factory)
	a.service = application.NewCheckRunService(tokens, clients, a.store, a.journal)
	return a, nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		slog.Error("error closing journal", "error", err)
	}
}
