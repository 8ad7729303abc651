package fetcher

import "time"

// Default configuration values.
const (
	defaultConnectTimeout     = 10 * time.Second
	defaultReadTimeout        = 35 * time.Second
	defaultHeadConnectTimeout = 8 * time.Second
	defaultHeadReadTimeout    = 6 * time.Second
	defaultMaxConnectRetries  = 3
	defaultBackoffFactor      = 1.2

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/123.0 Safari/537.36"
	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	defaultAcceptLanguage = "ja,en-US;q=0.9,en;q=0.8"
)

// Config holds HTTP client configuration.
type Config struct {
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration
	HeadConnectTimeout time.Duration
	HeadReadTimeout    time.Duration

	// HostReadTimeouts overrides the read timeout for specific hosts.
	// Some agency sites are reliably slow and need roughly twice the
	// default before first byte.
	HostReadTimeouts  map[string]time.Duration
	UserAgent         string
	MaxConnectRetries int
	BackoffFactor     float64
}

// WithDefaults returns a copy of the config with default values applied
// for zero-value fields.
func (c Config) WithDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.HeadConnectTimeout <= 0 {
		c.HeadConnectTimeout = defaultHeadConnectTimeout
	}
	if c.HeadReadTimeout <= 0 {
		c.HeadReadTimeout = defaultHeadReadTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.MaxConnectRetries <= 0 {
		c.MaxConnectRetries = defaultMaxConnectRetries
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = defaultBackoffFactor
	}

	return c
}

// readTimeoutFor returns the host-tuned read timeout for a host.
func (c Config) readTimeoutFor(host string) time.Duration {
	if t, ok := c.HostReadTimeouts[host]; ok {
		return t
	}

	return c.ReadTimeout
}
