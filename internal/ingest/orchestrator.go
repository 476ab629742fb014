package ingest

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/monitoring"
	"github.com/importiq/importiq-cli/internal/store"
)

// RunResult is the outcome of one ingestion job.
type RunResult struct {
	Source           string
	Success          bool
	RecordsFound     int
	RecordsProcessed int
	ExecutionTime    time.Duration
	Errors           []string
}

// Orchestrator executes ingestion jobs strictly sequentially, sleeping a
// fixed cooldown between jobs so no pair of sources ever hits the network
// back to back. A failing job is logged and skipped; it never blocks the
// jobs queued behind it.
type Orchestrator struct {
	store    store.Store
	fetcher  *Fetcher
	scorer   *Scorer
	cooldown time.Duration
}

// NewOrchestrator wires an orchestrator against a store and shared fetcher.
func NewOrchestrator(st store.Store, f *Fetcher, scorer *Scorer, cooldown time.Duration) *Orchestrator {
	if scorer == nil {
		scorer = NewScorer(DefaultQualityThreshold)
	}
	return &Orchestrator{store: st, fetcher: f, scorer: scorer, cooldown: cooldown}
}

// RunAll executes every job ordered by priority (lowest number first) and
// returns one result per job. Context cancellation stops the queue between
// jobs, never mid-record.
func (o *Orchestrator) RunAll(ctx context.Context, jobs []JobDescriptor) []RunResult {
	log := zap.L().With(zap.String("component", "ingest.orchestrator"))

	ordered := make([]JobDescriptor, len(jobs))
	copy(ordered, jobs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	results := make([]RunResult, 0, len(ordered))
	for i, job := range ordered {
		if ctx.Err() != nil {
			log.Warn("run aborted", zap.Int("jobs_remaining", len(ordered)-i))
			break
		}

		res := o.Run(ctx, job)
		results = append(results, res)
		if !res.Success {
			log.Error("job failed",
				zap.String("source", job.Source),
				zap.Strings("errors", res.Errors),
			)
		}

		if i < len(ordered)-1 && o.cooldown > 0 {
			select {
			case <-time.After(o.cooldown):
			case <-ctx.Done():
			}
		}
	}
	return results
}

// Run executes a single job: fetch, score, audit, upsert, record metrics.
// Every fetched record lands in the raw audit trail before any upsert is
// attempted, and a metrics-write failure never affects entity persistence.
func (o *Orchestrator) Run(ctx context.Context, job JobDescriptor) RunResult {
	log := zap.L().With(
		zap.String("component", "ingest.orchestrator"),
		zap.String("source", job.Source),
	)
	start := time.Now()

	jobCtx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	result := RunResult{Source: job.Source}

	adapter, err := NewAdapter(job, o.fetcher)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		o.finish(ctx, &result, start)
		return result
	}

	log.Info("job starting", zap.String("kind", string(job.Kind)))
	items, err := o.fetchWithRetry(jobCtx, log, adapter, job.MaxRetries)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		o.finish(ctx, &result, start)
		return result
	}
	result.RecordsFound = len(items)

	for _, item := range items {
		if err := o.processItem(jobCtx, job, item, &result); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	result.Success = true
	o.finish(ctx, &result, start)
	log.Info("job complete",
		zap.Int("found", result.RecordsFound),
		zap.Int("processed", result.RecordsProcessed),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("elapsed", result.ExecutionTime),
	)
	return result
}

// fetchWithRetry re-attempts a failed fetch up to maxRetries extra times
// with a linear backoff. Context cancellation cuts the attempts short.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, log *zap.Logger, adapter Adapter, maxRetries int) ([]RawItem, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			log.Warn("retrying fetch",
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr),
			)
		}
		items, err := adapter.Fetch(ctx)
		if err == nil {
			return items, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// processItem scores one record, appends the audit row, and upserts the
// entity when the record is valid. The audit append happens first; if it
// fails the upsert is skipped so no entity ever exists without its raw row.
func (o *Orchestrator) processItem(ctx context.Context, job JobDescriptor, item RawItem, result *RunResult) error {
	score := o.scorer.Score(item.Payload)
	valid := o.scorer.Valid(score)
	monitoring.IngestRecords.WithLabelValues(job.Source, strconv.FormatBool(valid)).Inc()

	var processed []byte
	if valid {
		var err error
		processed, err = marshalEntity(item.Payload)
		if err != nil {
			return &ParseError{Source: job.Source, Detail: "encode processed payload", Err: err}
		}
	}

	rec := &model.RawIngestionRecord{
		Source:       job.Source,
		DataType:     string(item.Payload.Kind),
		RawPayload:   item.Raw,
		Processed:    processed,
		QualityScore: score,
		Valid:        valid,
	}
	if err := o.store.AppendRawRecord(ctx, rec); err != nil {
		return err
	}

	if !valid {
		// Audited but never promoted. The rejection lands in the run's
		// error list and metrics.
		return &QualityRejection{Source: job.Source, Score: score}
	}

	var err error
	switch item.Payload.Kind {
	case KindTariff:
		err = o.store.UpsertTariffCode(ctx, item.Payload.Tariff)
	case KindAuction:
		err = o.store.UpsertAuctionListing(ctx, item.Payload.Auction)
	case KindRegulation:
		err = o.store.UpsertRegulatoryRequirement(ctx, item.Payload.Regulation)
	}
	if err != nil {
		return err
	}
	result.RecordsProcessed++
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, result *RunResult, start time.Time) {
	result.ExecutionTime = time.Since(start)

	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	monitoring.IngestRuns.WithLabelValues(result.Source, outcome).Inc()
	monitoring.IngestDuration.WithLabelValues(result.Source).Observe(result.ExecutionTime.Seconds())

	successRate := 0.0
	if result.RecordsFound > 0 {
		successRate = float64(result.RecordsProcessed) / float64(result.RecordsFound)
	}
	m := &model.IngestionRunMetrics{
		Source:           result.Source,
		RecordsFound:     result.RecordsFound,
		RecordsProcessed: result.RecordsProcessed,
		SuccessRate:      successRate,
		ExecutionTime:    result.ExecutionTime,
		Errors:           result.Errors,
	}
	if err := o.store.RecordRunMetrics(ctx, m); err != nil {
		zap.L().Error("record run metrics failed",
			zap.String("source", result.Source),
			zap.Error(err),
		)
	}
}

func marshalEntity(p Payload) ([]byte, error) {
	switch p.Kind {
	case KindTariff:
		return json.Marshal(p.Tariff)
	case KindAuction:
		return json.Marshal(p.Auction)
	case KindRegulation:
		return json.Marshal(p.Regulation)
	default:
		return nil, nil
	}
}
