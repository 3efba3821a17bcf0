package main

import (
	"context"
	"fmt"
	"os"

	"github.com/notedrop/service/internal/cache"
	"github.com/notedrop/service/internal/classify"
	"github.com/notedrop/service/internal/config"
	"github.com/notedrop/service/internal/db"
	"github.com/notedrop/service/internal/github"
	"github.com/notedrop/service/internal/logging"
	"github.com/notedrop/service/internal/objectstore"
	"github.com/notedrop/service/internal/store"
)

// openDurable returns the persistent cache tier selected by CACHE_DURABLE.
func openDurable(ctx context.Context, cfg *config.Config, log logging.Logger) (cache.Durable, error) {
	switch cfg.Cache.Durable {
	case config.DurableBadger:
		b, err := cache.OpenBadger(cache.BadgerConfig{Path: cfg.Cache.BadgerPath})
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "durable cache ready", "kind", "badger", "path", cfg.Cache.BadgerPath)
		return b, nil

	case config.DurablePostgres:
		if err := db.Migrate(ctx, cfg.DatabaseURL, log); err != nil {
			return nil, fmt.Errorf("database migration failed: %w", err)
		}
		pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		return &pooledPostgres{PostgresStore: cache.NewPostgres(pool), close: pool.Close}, nil

	default:
		return cache.Nop{}, nil
	}
}

// pooledPostgres closes the pool together with the cache tier.
type pooledPostgres struct {
	*cache.PostgresStore
	close func()
}

func (p *pooledPostgres) Close() error {
	p.close()
	return nil
}

// buildBackends registers every known backend. A backend whose settings are
// incomplete is registered as disabled so that it still shows up in the
// catalog and fails its writes with a configuration error.
func buildBackends(ctx context.Context, cfg *config.Config, classifier *classify.Classifier, log logging.Logger) []store.Backend {
	return []store.Backend{
		buildGitHub(ctx, cfg, classifier, log),
		buildObjectStore(ctx, cfg, classifier, log),
	}
}

func buildGitHub(ctx context.Context, cfg *config.Config, classifier *classify.Classifier, log logging.Logger) store.Backend {
	const label = "GitHub repository"
	gh := cfg.GitHub
	if reason := gh.MissingReason(); reason != "" {
		return store.NewDisabled(github.ID, label, reason)
	}

	var tokens github.TokenSource = github.StaticToken(gh.Token)
	if gh.UsesApp() {
		key, err := os.ReadFile(gh.PrivateKeyFile)
		if err != nil {
			log.Error(ctx, "read GitHub App private key", "error", err)
			return store.NewDisabled(github.ID, label, "GitHub App private key could not be read")
		}
		app, err := github.NewAppTokenSource(gh.AppID, gh.InstallationID, key, github.WithAppAPIBase(gh.APIBase))
		if err != nil {
			log.Error(ctx, "GitHub App credentials rejected", "error", err)
			return store.NewDisabled(github.ID, label, "GitHub App credentials are invalid")
		}
		tokens = app
	}

	client := github.NewClient(github.Config{
		Owner:   gh.Owner,
		Repo:    gh.Repo,
		Branch:  gh.Branch,
		APIBase: gh.APIBase,
		RawBase: gh.RawBase,
		Tokens:  tokens,
	})
	return github.NewBackend(client, github.BackendConfig{
		Root:        cfg.UploadsRoot,
		Concurrency: cfg.ListConcurrency,
		CommitDates: gh.CommitDates,
		Classifier:  classifier,
		Logger:      log,
	})
}

func buildObjectStore(ctx context.Context, cfg *config.Config, classifier *classify.Classifier, log logging.Logger) store.Backend {
	const label = "S3 bucket"
	sc := cfg.Storage
	if reason := sc.MissingReason(); reason != "" {
		return store.NewDisabled(objectstore.ID, label, reason)
	}

	client, err := objectstore.NewClient(objectstore.ClientConfig{
		Endpoint:  sc.Endpoint,
		AccessKey: sc.AccessKey,
		SecretKey: sc.SecretKey,
		Region:    sc.Region,
		UseSSL:    sc.UseSSL,
	})
	if err != nil {
		log.Error(ctx, "object storage init failed", "error", err)
		return store.NewDisabled(objectstore.ID, label, "object storage client could not be created")
	}
	if sc.CreateBucket {
		if err := objectstore.EnsureBucket(ctx, client, sc.Bucket, sc.Region, log); err != nil {
			log.Warn(ctx, "bucket bootstrap failed", "bucket", sc.Bucket, "error", err)
		}
	}

	return objectstore.NewBackend(client, objectstore.BackendConfig{
		Bucket:        sc.Bucket,
		Root:          cfg.UploadsRoot,
		PresignExpiry: sc.PresignExpiry,
		Concurrency:   cfg.ListConcurrency,
		Classifier:    classifier,
		Logger:        log,
	})
}
