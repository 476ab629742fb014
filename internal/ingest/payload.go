package ingest

import "github.com/importiq/importiq-cli/internal/model"

// PayloadKind tags which source schema a parsed record follows.
type PayloadKind string

const (
	KindTariff     PayloadKind = "tariff"
	KindAuction    PayloadKind = "auction"
	KindRegulation PayloadKind = "regulation"
	// KindOpaque marks a record that could not be parsed into a known
	// schema. The raw bytes are preserved for the audit trail.
	KindOpaque PayloadKind = "opaque"
)

// Payload is a tagged union of the known source schemas. Exactly one of the
// typed fields is non-nil for its kind; KindOpaque carries only raw bytes.
type Payload struct {
	Kind       PayloadKind
	Tariff     *model.TariffCode
	Auction    *model.AuctionListing
	Regulation *model.RegulatoryRequirement
	Opaque     []byte
}

// RawItem pairs the pre-transformation bytes of one fetched record with its
// parsed payload. Raw is always set, even when parsing failed.
type RawItem struct {
	Raw     []byte
	Payload Payload
}
