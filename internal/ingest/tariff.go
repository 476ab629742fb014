package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/importiq/importiq-cli/internal/model"
)

// TariffAdapter extracts vehicle tariff codes from a published chapter table.
// The primary document is HTML; when a revision workbook URL is configured it
// is parsed as well, so mid-cycle rate corrections are picked up.
type TariffAdapter struct {
	name string
	cfg  SourceConfig
	f    *Fetcher
}

func NewTariffAdapter(name string, cfg SourceConfig, f *Fetcher) *TariffAdapter {
	if cfg.CodePrefix == "" {
		cfg.CodePrefix = "8703"
	}
	return &TariffAdapter{name: name, cfg: cfg, f: f}
}

func (a *TariffAdapter) Name() string      { return a.name }
func (a *TariffAdapter) Kind() PayloadKind { return KindTariff }

func (a *TariffAdapter) Fetch(ctx context.Context) ([]RawItem, error) {
	log := zap.L().With(zap.String("component", "ingest.tariff"), zap.String("source", a.name))

	body, err := a.f.Get(ctx, a.name, a.cfg.URL)
	if err != nil {
		return nil, err
	}
	items, err := a.parseChapterTable(body)
	if err != nil {
		return nil, err
	}
	log.Debug("parsed chapter table", zap.Int("rows", len(items)))

	if a.cfg.WorkbookURL != "" {
		wb, err := a.f.Get(ctx, a.name, a.cfg.WorkbookURL)
		if err != nil {
			// The workbook supplements the chapter table; its absence is
			// not fatal to the run.
			log.Warn("revision workbook fetch failed", zap.Error(err))
		} else {
			wbItems, err := a.parseWorkbook(wb)
			if err != nil {
				log.Warn("revision workbook parse failed", zap.Error(err))
			} else {
				items = append(items, wbItems...)
			}
		}
	}
	return items, nil
}

func (a *TariffAdapter) parseChapterTable(body []byte) ([]RawItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Source: a.name, Detail: "chapter document", Err: err}
	}

	var items []RawItem
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 3 {
			return
		}
		code := cleanTariffCode(cells.Eq(0).Text())
		if !strings.HasPrefix(code, a.cfg.CodePrefix) {
			return
		}

		desc := strings.TrimSpace(cells.Eq(1).Text())
		rateGeneral := strings.TrimSpace(cells.Eq(2).Text())
		rateSpecial := ""
		if cells.Length() > 3 {
			rateSpecial = strings.TrimSpace(cells.Eq(3).Text())
		}

		raw, err := goquery.OuterHtml(row)
		if err != nil {
			raw = code + "|" + desc
		}

		countryRates := map[string]string{"general": rateGeneral}
		if rateSpecial != "" {
			countryRates["special"] = rateSpecial
		}
		items = append(items, RawItem{
			Raw: []byte(raw),
			Payload: Payload{
				Kind: KindTariff,
				Tariff: &model.TariffCode{
					Code:            code,
					Description:     desc,
					BaseRateText:    rateGeneral,
					RatePercent:     parseRatePercent(rateGeneral),
					VehicleCategory: classifyVehicleCategory(desc),
					EngineCategory:  classifyEngineCategory(desc),
					CountryRates:    countryRates,
					SourceURL:       a.cfg.URL,
				},
			},
		})
	})
	return items, nil
}

func (a *TariffAdapter) parseWorkbook(data []byte) ([]RawItem, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, &ParseError{Source: a.name, Detail: "revision workbook", Err: err}
	}
	if len(f.Sheets) == 0 {
		return nil, &ParseError{Source: a.name, Detail: "revision workbook has no sheets"}
	}

	var items []RawItem
	for i, row := range f.Sheets[0].Rows {
		if i == 0 {
			// header row
			continue
		}
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			cells = append(cells, strings.TrimSpace(c.String()))
		}
		if len(cells) < 3 {
			continue
		}
		code := cleanTariffCode(cells[0])
		if !strings.HasPrefix(code, a.cfg.CodePrefix) {
			continue
		}
		raw, _ := json.Marshal(cells)
		items = append(items, RawItem{
			Raw: raw,
			Payload: Payload{
				Kind: KindTariff,
				Tariff: &model.TariffCode{
					Code:            code,
					Description:     cells[1],
					BaseRateText:    cells[2],
					RatePercent:     parseRatePercent(cells[2]),
					VehicleCategory: classifyVehicleCategory(cells[1]),
					EngineCategory:  classifyEngineCategory(cells[1]),
					CountryRates:    map[string]string{"general": cells[2]},
					SourceURL:       a.cfg.WorkbookURL,
				},
			},
		})
	}
	return items, nil
}

var (
	nonCodeRe     = regexp.MustCompile(`[^0-9.]`)
	ratePercentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
)

// cleanTariffCode strips whitespace and formatting, leaving digits and dots.
func cleanTariffCode(raw string) string {
	return nonCodeRe.ReplaceAllString(raw, "")
}

// parseRatePercent extracts a percentage from free-form rate text. Non
// ad-valorem rates ("Free", cents per unit) come back as zero; the original
// text is kept alongside in BaseRateText.
func parseRatePercent(text string) float64 {
	m := ratePercentRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

func classifyVehicleCategory(desc string) string {
	d := strings.ToLower(desc)
	switch {
	case containsAny(d, "passenger", "sedan", "coupe", "hatchback"):
		return "passenger_car"
	case containsAny(d, "commercial", "truck", "van", "goods"):
		return "commercial_vehicle"
	case containsAny(d, "motorcycle", "cycle", "bike"):
		return "motorcycle"
	case containsAny(d, "trailer", "semi-trailer"):
		return "trailer"
	case containsAny(d, "suv", "utility", "sport"):
		return "suv"
	default:
		return "other"
	}
}

func classifyEngineCategory(desc string) string {
	d := strings.ToLower(desc)
	switch {
	case strings.Contains(d, "electric"):
		return "electric"
	case strings.Contains(d, "hybrid"):
		return "hybrid"
	case containsAny(d, "not exceeding 3,000 cc", "under 3,000 cc", "less than 3000cc"):
		return "under_3000cc"
	case containsAny(d, "exceeding 3,000 cc", "over 3,000 cc", "more than 3000cc"):
		return "over_3000cc"
	default:
		return "unspecified"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
