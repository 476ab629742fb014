package ingest

import (
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Sources []catalogSource `yaml:"sources"`
}

type catalogSource struct {
	Source      string `yaml:"source"`
	Type        string `yaml:"type"`
	Priority    int    `yaml:"priority"`
	Cron        string `yaml:"cron"`
	MaxRetries  int    `yaml:"max_retries"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	URL         string `yaml:"url"`
	WorkbookURL string `yaml:"workbook_url"`
	Country     string `yaml:"country"`
	Authority   string `yaml:"authority"`
	CodePrefix  string `yaml:"code_prefix"`
}

// LoadCatalog reads the YAML source catalog and returns job descriptors.
func LoadCatalog(path string) ([]JobDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog bytes. Unknown source types are rejected so a
// typo in the catalog fails loudly at load time instead of at run time.
func ParseCatalog(data []byte) ([]JobDescriptor, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, eris.Wrap(err, "catalog: parse yaml")
	}
	if len(cf.Sources) == 0 {
		return nil, eris.New("catalog: no sources defined")
	}

	jobs := make([]JobDescriptor, 0, len(cf.Sources))
	seen := make(map[string]bool, len(cf.Sources))
	for _, src := range cf.Sources {
		if src.Source == "" {
			return nil, eris.New("catalog: source entry missing name")
		}
		if seen[src.Source] {
			return nil, eris.Errorf("catalog: duplicate source %q", src.Source)
		}
		seen[src.Source] = true

		kind := PayloadKind(src.Type)
		switch kind {
		case KindTariff, KindAuction, KindRegulation:
		default:
			return nil, eris.Errorf("catalog: source %q has unknown type %q", src.Source, src.Type)
		}
		if src.URL == "" {
			return nil, eris.Errorf("catalog: source %q missing url", src.Source)
		}
		if src.Cron != "" {
			if _, err := cron.ParseStandard(src.Cron); err != nil {
				return nil, eris.Wrapf(err, "catalog: source %q has invalid cron %q", src.Source, src.Cron)
			}
		}

		timeout := time.Duration(src.TimeoutSecs) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		jobs = append(jobs, JobDescriptor{
			Source:     src.Source,
			Kind:       kind,
			Priority:   src.Priority,
			Cron:       src.Cron,
			MaxRetries: src.MaxRetries,
			Timeout:    timeout,
			Config: SourceConfig{
				URL:         src.URL,
				WorkbookURL: src.WorkbookURL,
				Country:     src.Country,
				Authority:   src.Authority,
				CodePrefix:  src.CodePrefix,
			},
		})
	}
	return jobs, nil
}
