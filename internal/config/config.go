// Package config loads the crawler configuration from environment
// variables (optionally via a .env file), with viper providing defaults
// and type coercion.
package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hojomatch/hojocrawl/internal/logger"
)

// ErrMissingDatabaseURL indicates DATABASE_URL is not set.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is not set")

// Config is the resolved application configuration.
type Config struct {
	DatabaseURL string
	SeedsFile   string
	Logger      logger.Config
	Crawl       CrawlConfig
	Fetcher     FetcherConfig
	Backfill    BackfillConfig
	Providers   ProvidersConfig
	Server      ServerConfig
}

// CrawlConfig bounds a single crawl run.
type CrawlConfig struct {
	RunID           string
	TimeBudget      time.Duration
	HardKill        time.Duration
	MaxPagesPerRun  int
	MaxPerDomain    int
	ParallelWorkers int
	PerHostLimit    int
	ForceRefresh    bool
}

// FetcherConfig carries the HTTP politeness knobs.
type FetcherConfig struct {
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration
	HeadConnectTimeout time.Duration
	HeadReadTimeout    time.Duration
	HostReadTimeouts   map[string]time.Duration
}

// BackfillConfig tunes the repair ladder.
type BackfillConfig struct {
	Stage1ReadTimeout time.Duration
	LargeBytes        int64
	One               bool
}

// ProvidersConfig holds the optional external provider credentials. An
// empty key disables the corresponding lane.
type ProvidersConfig struct {
	TavilyAPIKey     string
	OpenAIAPIKey     string
	ResearchModel    string
	ResearchDomains  []string
	ResearchTimeout  time.Duration
	ResearchMaxItems int
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Address string
}

// Load resolves the configuration. Init must have been called first.
func Load() (*Config, error) {
	if viper.GetString("database_url") == "" {
		return nil, ErrMissingDatabaseURL
	}

	cfg := &Config{
		DatabaseURL: viper.GetString("database_url"),
		SeedsFile:   viper.GetString("seeds_file"),
		Logger: logger.Config{
			Level:       viper.GetString("log_level"),
			Encoding:    viper.GetString("log_format"),
			Development: viper.GetBool("app_debug"),
		},
		Crawl: CrawlConfig{
			RunID:           viper.GetString("run_id"),
			TimeBudget:      seconds("time_budget_sec"),
			HardKill:        seconds("hard_kill_sec"),
			MaxPagesPerRun:  viper.GetInt("max_pages_per_run"),
			MaxPerDomain:    viper.GetInt("max_per_domain"),
			ParallelWorkers: viper.GetInt("parallel_workers"),
			PerHostLimit:    viper.GetInt("per_host_limit"),
			ForceRefresh:    viper.GetBool("force_refresh"),
		},
		Fetcher: FetcherConfig{
			ConnectTimeout:     seconds("connect_timeout"),
			ReadTimeout:        seconds("read_timeout"),
			HeadConnectTimeout: seconds("head_connect_timeout"),
			HeadReadTimeout:    seconds("head_read_timeout"),
			HostReadTimeouts: map[string]time.Duration{
				"www.chusho.meti.go.jp": seconds("chusho_read_timeout"),
			},
		},
		Backfill: BackfillConfig{
			Stage1ReadTimeout: seconds("single_stage1_read_timeout"),
			LargeBytes:        viper.GetInt64("single_large_bytes"),
			One:               viper.GetBool("single_backfill_one"),
		},
		Providers: ProvidersConfig{
			TavilyAPIKey:     viper.GetString("tavily_api_key"),
			OpenAIAPIKey:     viper.GetString("openai_api_key"),
			ResearchModel:    viper.GetString("dr_model"),
			ResearchDomains:  splitList(viper.GetString("dr_allowed_domains")),
			ResearchTimeout:  seconds("dr_timeout_sec"),
			ResearchMaxItems: viper.GetInt("dr_max_items"),
		},
		Server: ServerConfig{
			Address: viper.GetString("serve_addr"),
		},
	}

	if cfg.Crawl.RunID == "" {
		cfg.Crawl.RunID = strconv.FormatInt(time.Now().Unix(), 10)
	}

	return cfg, nil
}

func seconds(key string) time.Duration {
	return time.Duration(viper.GetInt(key)) * time.Second
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}
