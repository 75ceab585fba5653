package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for diarykeeper
type Config struct {
	// Where snapshots and the desired-member list live
	Data DataConfig `yaml:"data" json:"data"`

	// Crawl defaults applied to sites that leave them unset
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// HTTP behaviour of the page fetcher
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Request pacing shared by every fetch
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Asset archiver and export packaging
	Archive ArchiveConfig `yaml:"archive" json:"archive"`

	// S3 sink, used when archive.sink is "s3"
	S3 S3Config `yaml:"s3" json:"s3"`

	// Date spread used for history archive file times
	History HistoryConfig `yaml:"history" json:"history"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Site definitions; defaults cover every supported group
	Sites []SiteConfig `yaml:"sites" json:"sites"`
}

// DataConfig holds on-disk locations
type DataConfig struct {
	Directory          string `yaml:"directory" json:"directory"`
	DesiredMembersFile string `yaml:"desired_members_file" json:"desired_members_file"`
}

// CrawlConfig holds crawl defaults
type CrawlConfig struct {
	Lanes   int `yaml:"lanes" json:"lanes"`
	MaxPage int `yaml:"max_page" json:"max_page"`
	// BackfillConcurrency bounds detail fetches during content backfill
	BackfillConcurrency int `yaml:"backfill_concurrency" json:"backfill_concurrency"`
}

// FetchConfig holds page fetcher settings
type FetchConfig struct {
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	RandomUserAgent bool          `yaml:"random_user_agent" json:"random_user_agent"`
	MaxBodySize     int64         `yaml:"max_body_size" json:"max_body_size"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" json:"burst_size"`
}

// ArchiveConfig holds archiver and export settings
type ArchiveConfig struct {
	Concurrency    int           `yaml:"concurrency" json:"concurrency"`
	RetryAttempts  int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay" json:"retry_delay"`
	DefaultWindow  time.Duration `yaml:"default_window" json:"default_window"`
	FileTimeOffset time.Duration `yaml:"file_time_offset" json:"file_time_offset"`
	OutputDir      string        `yaml:"output_dir" json:"output_dir"`
	Sink           string        `yaml:"sink" json:"sink"`
	FileName       string        `yaml:"file_name" json:"file_name"`
}

// S3Config holds the S3 sink settings
type S3Config struct {
	Bucket    string `yaml:"bucket" json:"bucket"`
	Region    string `yaml:"region" json:"region"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Prefix    string `yaml:"prefix" json:"prefix"`
	PathStyle bool   `yaml:"path_style" json:"path_style"`
}

// HistoryConfig spreads history collections over a date range.
// Collection n is dated StartDay + (n-StartIndex) * (EndDay-StartDay)/(EndIndex-StartIndex).
type HistoryConfig struct {
	StartDay   string `yaml:"start_day" json:"start_day"`
	EndDay     string `yaml:"end_day" json:"end_day"`
	StartIndex int    `yaml:"start_index" json:"start_index"`
	EndIndex   int    `yaml:"end_index" json:"end_index"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Directory:          "./data",
			DesiredMembersFile: "Desired_Member_List.JSON",
		},
		Crawl: CrawlConfig{
			Lanes:               1,
			MaxPage:             1000,
			BackfillConcurrency: 1,
		},
		Fetch: FetchConfig{
			Timeout:     30 * time.Second,
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			MaxBodySize: 20 << 20,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Archive: ArchiveConfig{
			Concurrency:    runtime.NumCPU(),
			RetryAttempts:  3,
			RetryDelay:     time.Second,
			DefaultWindow:  7 * 24 * time.Hour,
			FileTimeOffset: 8 * time.Hour,
			OutputDir:      "./Export",
			Sink:           "local",
			FileName:       "exported_images.zip",
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		History: HistoryConfig{
			StartDay:   "2019-02-11",
			EndDay:     "2025-05-27",
			StartIndex: 1,
			EndIndex:   59,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Sites: DefaultSites(),
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if dir := os.Getenv("DIARYKEEPER_DATA_DIR"); dir != "" {
		c.Data.Directory = dir
	}
	if desired := os.Getenv("DIARYKEEPER_DESIRED_MEMBERS_FILE"); desired != "" {
		c.Data.DesiredMembersFile = desired
	}

	if lanes := os.Getenv("DIARYKEEPER_LANES"); lanes != "" {
		var val int
		fmt.Sscanf(lanes, "%d", &val)
		if val > 0 {
			c.Crawl.Lanes = val
		}
	}

	if ua := os.Getenv("DIARYKEEPER_USER_AGENT"); ua != "" {
		c.Fetch.UserAgent = ua
	}
	if random := os.Getenv("DIARYKEEPER_RANDOM_USER_AGENT"); random != "" {
		c.Fetch.RandomUserAgent = strings.ToLower(random) == "true"
	}

	if rps := os.Getenv("DIARYKEEPER_REQUESTS_PER_SECOND"); rps != "" {
		var val float64
		fmt.Sscanf(rps, "%g", &val)
		if val > 0 {
			c.RateLimit.RequestsPerSecond = val
		}
	}

	if concurrency := os.Getenv("DIARYKEEPER_ARCHIVE_CONCURRENCY"); concurrency != "" {
		var val int
		fmt.Sscanf(concurrency, "%d", &val)
		if val > 0 {
			c.Archive.Concurrency = val
		}
	}
	if out := os.Getenv("DIARYKEEPER_OUTPUT_DIR"); out != "" {
		c.Archive.OutputDir = out
	}
	if sink := os.Getenv("DIARYKEEPER_SINK"); sink != "" {
		c.Archive.Sink = sink
	}

	if bucket := os.Getenv("DIARYKEEPER_S3_BUCKET"); bucket != "" {
		c.S3.Bucket = bucket
	}
	if region := os.Getenv("DIARYKEEPER_S3_REGION"); region != "" {
		c.S3.Region = region
	}
	if endpoint := os.Getenv("DIARYKEEPER_S3_ENDPOINT"); endpoint != "" {
		c.S3.Endpoint = endpoint
	}

	if logLevel := os.Getenv("DIARYKEEPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("DIARYKEEPER_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".diarykeeper.yaml",
		".diarykeeper.yml",
		filepath.Join(home, ".config", "diarykeeper", "config.yaml"),
		filepath.Join(home, ".config", "diarykeeper", "config.yml"),
		filepath.Join(home, ".diarykeeper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Data.Directory == "" {
		errs = append(errs, errors.New("data directory is required"))
	}

	if c.Crawl.Lanes <= 0 {
		errs = append(errs, errors.New("crawl lanes must be positive"))
	}
	if c.Crawl.MaxPage <= 0 {
		errs = append(errs, errors.New("crawl max page must be positive"))
	}
	if c.Crawl.BackfillConcurrency <= 0 {
		errs = append(errs, errors.New("backfill concurrency must be positive"))
	}

	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("requests per second must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Archive.Concurrency <= 0 {
		errs = append(errs, errors.New("archive concurrency must be positive"))
	}
	if c.Archive.RetryAttempts <= 0 {
		errs = append(errs, errors.New("archive retry attempts must be positive"))
	}
	switch strings.ToLower(c.Archive.Sink) {
	case "local":
		if c.Archive.OutputDir == "" {
			errs = append(errs, errors.New("archive output directory is required for the local sink"))
		}
	case "s3":
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 bucket is required for the s3 sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid archive sink %q", c.Archive.Sink))
	}

	if _, _, err := c.History.Range(); err != nil {
		errs = append(errs, err)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	seen := make(map[string]bool)
	for i := range c.Sites {
		site := &c.Sites[i]
		if seen[site.ID] {
			errs = append(errs, fmt.Errorf("duplicate site id %q", site.ID))
		}
		seen[site.ID] = true
		if err := site.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Range parses the configured start and end days
func (h HistoryConfig) Range() (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", h.StartDay, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid history start day: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02", h.EndDay, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid history end day: %w", err)
	}
	if h.EndIndex <= h.StartIndex {
		return time.Time{}, time.Time{}, errors.New("history end index must be greater than start index")
	}
	return start, end, nil
}

// Site returns the site with the given id, matched case-insensitively
func (c *Config) Site(id string) (*SiteConfig, error) {
	for i := range c.Sites {
		if strings.EqualFold(c.Sites[i].ID, id) {
			return &c.Sites[i], nil
		}
	}
	return nil, fmt.Errorf("unknown site %q", id)
}

// SnapshotPath resolves a site's snapshot file inside the data directory
func (c *Config) SnapshotPath(site *SiteConfig) string {
	return filepath.Join(c.Data.Directory, site.ID, site.Snapshot)
}

// HistoryPath resolves a site's history snapshot inside the data directory
func (c *Config) HistoryPath(site *SiteConfig) string {
	return filepath.Join(c.Data.Directory, site.ID, "history.json")
}

// DesiredMembersPath resolves the desired-member list location
func (c *Config) DesiredMembersPath() string {
	if filepath.IsAbs(c.Data.DesiredMembersFile) {
		return c.Data.DesiredMembersFile
	}
	return filepath.Join(c.Data.Directory, c.Data.DesiredMembersFile)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["data-dir"].(string); ok && dir != "" {
		c.Data.Directory = dir
	}
	if lanes, ok := flags["lanes"].(int); ok && lanes > 0 {
		c.Crawl.Lanes = lanes
	}
	if rps, ok := flags["requests-per-second"].(float64); ok && rps > 0 {
		c.RateLimit.RequestsPerSecond = rps
	}
	if concurrency, ok := flags["concurrency"].(int); ok && concurrency > 0 {
		c.Archive.Concurrency = concurrency
	}
	if out, ok := flags["output"].(string); ok && out != "" {
		c.Archive.OutputDir = out
	}
	if sink, ok := flags["sink"].(string); ok && sink != "" {
		c.Archive.Sink = sink
	}
	if name, ok := flags["file-name"].(string); ok && name != "" {
		c.Archive.FileName = name
	}
	if random, ok := flags["random-user-agent"].(bool); ok && random {
		c.Fetch.RandomUserAgent = true
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".diarykeeper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)
	config.applySiteDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// applySiteDefaults fills per-site values left unset from the crawl section
func (c *Config) applySiteDefaults() {
	for i := range c.Sites {
		site := &c.Sites[i]
		if site.Lanes <= 0 {
			site.Lanes = c.Crawl.Lanes
		}
		if site.MaxPage <= 0 {
			site.MaxPage = c.Crawl.MaxPage
		}
		if site.Snapshot == "" {
			site.Snapshot = "BlogStatus.JSON"
		}
	}
}
