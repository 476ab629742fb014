package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/importiq/importiq-cli/internal/ingest"
	"github.com/importiq/importiq-cli/internal/match"
	"github.com/importiq/importiq-cli/internal/store"
	"github.com/importiq/importiq-cli/pkg/places"
	"github.com/importiq/importiq-cli/pkg/routing"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "importiq.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initRouter returns nil when no routing key is configured; callers treat a
// nil client as enhancement disabled.
func initRouter() routing.Client {
	if cfg.Routing.Key == "" {
		return nil
	}
	opts := []routing.Option{
		routing.WithBatchSize(cfg.Routing.BatchSize),
		routing.WithBatchDelay(time.Duration(cfg.Routing.BatchDelayMs) * time.Millisecond),
	}
	if cfg.Routing.BaseURL != "" {
		opts = append(opts, routing.WithBaseURL(cfg.Routing.BaseURL))
	}
	return routing.NewClient(cfg.Routing.Key, opts...)
}

func initPlaces() (places.Client, error) {
	if cfg.Places.Key == "" {
		return nil, eris.New("places API key is required (IMPORTIQ_PLACES_KEY)")
	}
	var opts []places.Option
	if cfg.Places.BaseURL != "" {
		opts = append(opts, places.WithBaseURL(cfg.Places.BaseURL))
	}
	return places.NewClient(cfg.Places.Key, opts...), nil
}

func initEngine(st store.Store) *match.Engine {
	policy := match.CapacityPolicy{
		DefaultPercent: cfg.Match.DefaultCapacity,
		ClosedPercent:  cfg.Match.ClosedCapacity,
		BusyPercent:    cfg.Match.BusyCapacity,
	}
	return match.NewEngine(st, initRouter(), policy, cfg.Match.EnhanceTopN)
}

func initOrchestrator(st store.Store) *ingest.Orchestrator {
	fetcher := ingest.NewFetcher(
		ingest.WithUserAgent(cfg.Ingest.UserAgent),
		ingest.WithTimeout(time.Duration(cfg.Ingest.TimeoutSecs)*time.Second),
		ingest.WithRequestDelay(time.Duration(cfg.Ingest.RequestDelayMs)*time.Millisecond),
	)
	scorer := ingest.NewScorer(cfg.Ingest.QualityThreshold)
	cooldown := time.Duration(cfg.Ingest.CooldownSecs) * time.Second
	return ingest.NewOrchestrator(st, fetcher, scorer, cooldown)
}
