package model

import "time"

// Config is the complete pipeline configuration. It is built once in the
// CLI layer and passed into the pipeline at construction; nothing reads
// the environment or global state below the CLI.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Search  SearchConfig  `yaml:"search"`
	Extract ExtractConfig `yaml:"extract"`
	Cache   CacheConfig   `yaml:"cache"`
	Rate    RateConfig    `yaml:"rate"`
	Robots  RobotsConfig  `yaml:"robots"`
	Paths   PathsConfig   `yaml:"paths"`
}

// HTTPConfig controls page and subpage fetches.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// SearchConfig controls the external website search service.
type SearchConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	APIKey     string        `yaml:"-"`
	Retries    int           `yaml:"retries"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxResults int           `yaml:"max_results"`
	Denylist   []string      `yaml:"denylist"`
}

// ExtractConfig controls the field-extraction heuristics.
type ExtractConfig struct {
	PhoneRegion    string `yaml:"phone_region"`
	DistrictPolicy string `yaml:"district_policy"`
	AddressPolicy  string `yaml:"address_policy"`
}

// CacheConfig controls the fetched-page cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
}

// RateConfig controls politeness pacing.
type RateConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	RowDelay          time.Duration `yaml:"row_delay"`
}

// RobotsConfig controls robots.txt checking.
type RobotsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// PathsConfig names the roster input and the two outputs.
type PathsConfig struct {
	Input      string `yaml:"input"`
	OutputJSON string `yaml:"output_json"`
	OutputXLSX string `yaml:"output_xlsx"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      15 * time.Second,
			UserAgent:    "Mozilla/5.0 (compatible; rosterfill/0.1)",
			MaxBodyBytes: 2_000_000,
		},
		Search: SearchConfig{
			Endpoint:   "https://google.serper.dev/search",
			Retries:    5,
			Backoff:    2 * time.Second,
			MaxResults: 5,
			Denylist:   []string{"indiastudychannel.com"},
		},
		Extract: ExtractConfig{
			PhoneRegion:    "IN",
			DistrictPolicy: "rich",
			AddressPolicy:  "accumulate",
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".rosterfill-cache",
			TTL:     24 * time.Hour,
		},
		Rate: RateConfig{
			RequestsPerSecond: 1,
			Burst:             2,
			RowDelay:          time.Second,
		},
		Robots: RobotsConfig{
			Enabled: true,
		},
		Paths: PathsConfig{
			Input:      "roster.xlsx",
			OutputJSON: "roster_checkpoint.json",
			OutputXLSX: "roster_enriched.xlsx",
		},
	}
}
