package ingest

import (
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/importiq/importiq-cli/internal/model"
)

// RegulationAdapter extracts import requirements from an agency's published
// requirement tables. Authority and country come from the source config since
// agency pages rarely state them in machine-readable form.
type RegulationAdapter struct {
	name string
	cfg  SourceConfig
	f    *Fetcher
}

func NewRegulationAdapter(name string, cfg SourceConfig, f *Fetcher) *RegulationAdapter {
	return &RegulationAdapter{name: name, cfg: cfg, f: f}
}

func (a *RegulationAdapter) Name() string      { return a.name }
func (a *RegulationAdapter) Kind() PayloadKind { return KindRegulation }

var minAgeRe = regexp.MustCompile(`(\d+)[-\s]year`)

func (a *RegulationAdapter) Fetch(ctx context.Context) ([]RawItem, error) {
	body, err := a.f.Get(ctx, a.name, a.cfg.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Source: a.name, Detail: "requirement document", Err: err}
	}

	var items []RawItem
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		title := strings.TrimSpace(cells.Eq(0).Text())
		summary := strings.TrimSpace(cells.Eq(1).Text())
		if title == "" {
			return
		}

		minAge := 0
		if m := minAgeRe.FindStringSubmatch(strings.ToLower(title + " " + summary)); m != nil {
			minAge, _ = strconv.Atoi(m[1])
		}

		raw, err := goquery.OuterHtml(row)
		if err != nil {
			raw = title + "|" + summary
		}
		items = append(items, RawItem{
			Raw: []byte(raw),
			Payload: Payload{
				Kind: KindRegulation,
				Regulation: &model.RegulatoryRequirement{
					Key:           requirementKey(a.cfg.Country, a.cfg.Authority, title),
					Authority:     a.cfg.Authority,
					Country:       a.cfg.Country,
					Title:         title,
					Summary:       summary,
					MinVehicleAge: minAge,
					SourceURL:     a.cfg.URL,
				},
			},
		})
	})
	return items, nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// requirementKey builds the natural key for a requirement row.
func requirementKey(country, authority, title string) string {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(title), "-"), "-")
	return strings.ToLower(country) + "/" + strings.ToLower(authority) + "/" + slug
}
