package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/importiq/importiq-cli/internal/cluster"
	"github.com/importiq/importiq-cli/internal/discovery"
	"github.com/importiq/importiq-cli/internal/geo"
	"github.com/importiq/importiq-cli/internal/ingest"
	"github.com/importiq/importiq-cli/internal/monitoring"
	"github.com/importiq/importiq-cli/internal/schedule"
)

var (
	ingestSource  string
	ingestCatalog string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "External data ingestion",
}

var ingestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run ingestion jobs once, sequentially",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		jobs, err := loadJobs()
		if err != nil {
			return err
		}

		results := initOrchestrator(st).RunAll(ctx, jobs)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

var ingestScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run ingestion and discovery on their cron schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		jobs, err := loadJobs()
		if err != nil {
			return err
		}
		orch := initOrchestrator(st)

		sched := schedule.New()

		// Sources carrying their own cron run on it; the rest share the
		// global ingestion schedule.
		shared := make([]ingest.JobDescriptor, 0, len(jobs))
		for _, job := range jobs {
			if job.Cron == "" {
				shared = append(shared, job)
				continue
			}
			solo := []ingest.JobDescriptor{job}
			err = sched.Add(ctx, "ingestion:"+job.Source, job.Cron, func(ctx context.Context) error {
				orch.RunAll(ctx, solo)
				return nil
			})
			if err != nil {
				return err
			}
		}
		if len(shared) > 0 {
			err = sched.Add(ctx, "ingestion", cfg.Schedule.Ingestion, func(ctx context.Context) error {
				orch.RunAll(ctx, shared)
				return nil
			})
			if err != nil {
				return err
			}
		}

		collector := monitoring.NewCollector(st)
		err = sched.Add(ctx, "health", cfg.Schedule.Health, func(ctx context.Context) error {
			stale, err := collector.StaleSources(ctx)
			if err != nil {
				return err
			}
			for _, s := range stale {
				zap.L().Warn("source gone stale",
					zap.String("source", s.Source),
					zap.Time("last_run", s.LastRun),
				)
			}
			return nil
		})
		if err != nil {
			return err
		}

		err = sched.Add(ctx, "clusters", cfg.Schedule.Clusters, func(ctx context.Context) error {
			_, err := cluster.NewAnalyzer(st).Run(ctx)
			return err
		})
		if err != nil {
			return err
		}

		// Discovery only runs when a places key is configured.
		if pc, err := initPlaces(); err == nil {
			job := discovery.NewJob(st, pc,
				cfg.Discovery.QueryTerms,
				cfg.Discovery.SearchRadiusKm,
				cfg.Discovery.SuitabilityCutoff,
				cfg.Discovery.RateLimitPerSecond,
			)
			center := geo.Point{Lat: cfg.Discovery.CenterLat, Lng: cfg.Discovery.CenterLng}
			err = sched.Add(ctx, "discovery", cfg.Schedule.Discovery, func(ctx context.Context) error {
				_, err := job.Run(ctx, center)
				return err
			})
			if err != nil {
				return err
			}
		} else {
			zap.L().Warn("discovery schedule disabled", zap.Error(err))
		}

		sched.Start()
		defer sched.Stop()
		zap.L().Info("scheduler running",
			zap.String("ingestion_cron", cfg.Schedule.Ingestion),
			zap.Int("jobs", len(jobs)),
		)

		<-ctx.Done()
		return nil
	},
}

// loadJobs reads the source catalog; a missing --catalog flag falls back to
// the configured path.
func loadJobs() ([]ingest.JobDescriptor, error) {
	path := ingestCatalog
	if path == "" {
		path = cfg.Ingest.CatalogPath
	}
	jobs, err := ingest.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	if ingestSource == "" {
		return jobs, nil
	}
	for _, j := range jobs {
		if j.Source == ingestSource {
			return []ingest.JobDescriptor{j}, nil
		}
	}
	return nil, eris.Errorf("source %q not found in catalog %s", ingestSource, path)
}

func init() {
	ingestRunCmd.Flags().StringVar(&ingestSource, "source", "", "run a single source by name")
	ingestCmd.PersistentFlags().StringVar(&ingestCatalog, "catalog", "", "source catalog path (defaults to config)")
	ingestCmd.AddCommand(ingestRunCmd)
	ingestCmd.AddCommand(ingestScheduleCmd)
	rootCmd.AddCommand(ingestCmd)
}
