package ingest

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/importiq/importiq-cli/internal/model"
)

// AuctionAdapter ingests salvage-auction lot feeds served as JSON. One
// malformed lot degrades to an opaque payload; the rest of the feed parses
// normally.
type AuctionAdapter struct {
	name string
	cfg  SourceConfig
	f    *Fetcher
}

func NewAuctionAdapter(name string, cfg SourceConfig, f *Fetcher) *AuctionAdapter {
	return &AuctionAdapter{name: name, cfg: cfg, f: f}
}

func (a *AuctionAdapter) Name() string      { return a.name }
func (a *AuctionAdapter) Kind() PayloadKind { return KindAuction }

type auctionFeed struct {
	Lots []json.RawMessage `json:"lots"`
}

type auctionLot struct {
	LotNumber     string  `json:"lotNumber"`
	Make          string  `json:"make"`
	Model         string  `json:"model"`
	Year          int     `json:"year"`
	VIN           string  `json:"vin"`
	Odometer      int     `json:"odometer"`
	CurrentBid    float64 `json:"currentBid"`
	BuyNowPrice   float64 `json:"buyNowPrice"`
	PrimaryDamage string  `json:"primaryDamage"`
	Location      string  `json:"locationName"`
	SaleDate      string  `json:"saleDate"`
	URL           string  `json:"lotUrl"`
}

func (a *AuctionAdapter) Fetch(ctx context.Context) ([]RawItem, error) {
	log := zap.L().With(zap.String("component", "ingest.auction"), zap.String("source", a.name))

	body, err := a.f.Get(ctx, a.name, a.cfg.URL)
	if err != nil {
		return nil, err
	}

	var feed auctionFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, &ParseError{Source: a.name, Detail: "lot feed", Err: err}
	}

	items := make([]RawItem, 0, len(feed.Lots))
	for _, raw := range feed.Lots {
		var lot auctionLot
		if err := json.Unmarshal(raw, &lot); err != nil {
			log.Warn("malformed lot", zap.Error(err))
			items = append(items, RawItem{
				Raw:     raw,
				Payload: Payload{Kind: KindOpaque, Opaque: raw},
			})
			continue
		}
		items = append(items, RawItem{
			Raw: raw,
			Payload: Payload{
				Kind: KindAuction,
				Auction: &model.AuctionListing{
					Source:            a.name,
					LotNumber:         lot.LotNumber,
					Make:              lot.Make,
					Model:             lot.Model,
					Year:              lot.Year,
					VIN:               strings.ToUpper(strings.TrimSpace(lot.VIN)),
					Mileage:           lot.Odometer,
					CurrentBid:        lot.CurrentBid,
					BuyNowPrice:       lot.BuyNowPrice,
					DamageDescription: lot.PrimaryDamage,
					DamageSeverity:    ClassifyDamageSeverity(lot.PrimaryDamage),
					Location:          lot.Location,
					SaleDate:          lot.SaleDate,
					URL:               lot.URL,
				},
			},
		})
	}
	return items, nil
}

var (
	majorDamageKeywords = []string{"major", "severe", "total loss", "flood", "fire", "rollover"}
	minorDamageKeywords = []string{"minor", "light", "superficial", "cosmetic"}
)

// ClassifyDamageSeverity buckets a free-form damage description. Unknown
// descriptions classify as moderate rather than minor, so an unlabeled lot
// is never presented as lightly damaged.
func ClassifyDamageSeverity(desc string) string {
	d := strings.ToLower(desc)
	for _, kw := range majorDamageKeywords {
		if strings.Contains(d, kw) {
			return "major"
		}
	}
	for _, kw := range minorDamageKeywords {
		if strings.Contains(d, kw) {
			return "minor"
		}
	}
	return "moderate"
}
