package ingest

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// SourceConfig carries the source-specific knobs an adapter needs.
type SourceConfig struct {
	URL         string
	WorkbookURL string
	Country     string
	Authority   string
	CodePrefix  string
}

// JobDescriptor describes one ingestion job for the orchestrator. Cron, when
// set, puts the source on its own schedule instead of the shared ingestion
// cron; it is only consulted by the scheduler, never by RunAll.
type JobDescriptor struct {
	Source     string
	Kind       PayloadKind
	Priority   int
	Cron       string
	MaxRetries int
	Timeout    time.Duration
	Config     SourceConfig
}

// Adapter turns a source-specific fetch into a sequence of raw items. One
// malformed record degrades to an opaque payload instead of failing the
// batch; a whole-document failure returns a transport or parse error.
type Adapter interface {
	Name() string
	Kind() PayloadKind
	Fetch(ctx context.Context) ([]RawItem, error)
}

// NewAdapter builds the adapter for a job descriptor.
func NewAdapter(desc JobDescriptor, f *Fetcher) (Adapter, error) {
	switch desc.Kind {
	case KindTariff:
		return NewTariffAdapter(desc.Source, desc.Config, f), nil
	case KindAuction:
		return NewAuctionAdapter(desc.Source, desc.Config, f), nil
	case KindRegulation:
		return NewRegulationAdapter(desc.Source, desc.Config, f), nil
	default:
		return nil, eris.Errorf("ingest: no adapter for kind %q", desc.Kind)
	}
}
