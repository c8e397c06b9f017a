package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Pipeline  PipelineConfig
	Tracking  TrackingConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3001
	Mode string // "debug", "release", "test"; default: "release"

	// StaticDir, when set, is served as the browser client bundle.
	StaticDir string
}

// BrowserConfig controls how browser sessions are acquired.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is passed to the launched browser and to the static fetcher.
	Proxy string

	// Stealth injects anti-automation-detection scripts before navigation.
	Stealth bool // default: true

	// UserAgent is sent by both the static fetcher and browser sessions.
	UserAgent string

	// RemoteEndpoint is a CDP endpoint (ws:// or http://). When set, sessions
	// are opened on the remote browser instead of a local launch.
	RemoteEndpoint string

	// RemoteToken is sent as a bearer credential to RemoteEndpoint.
	RemoteToken string

	// MaxSessions caps simultaneous browser sessions.
	MaxSessions int // default: 4

	// BlockedResourceTypes lists resource types blocked in markup mode.
	// Allowed: Image, Stylesheet, Font, Media, Script. default: none.
	BlockedResourceTypes []string

	// BlockAds blocks well-known ad/tracking hosts in markup mode.
	BlockAds bool // default: false
}

// PipelineConfig holds per-stage timeouts and heuristics.
type PipelineConfig struct {
	// ProbeTimeout bounds the classifier's static fetch.
	ProbeTimeout time.Duration // default: 8s

	// FetchTimeout bounds the static fetcher.
	FetchTimeout time.Duration // default: 10s

	// TextThreshold is the visible-text length below which a page is
	// classified as dynamic.
	TextThreshold int // default: 200

	// NavigationTimeout bounds markup-mode navigation.
	NavigationTimeout time.Duration // default: 30s

	// InterceptNavigationTimeout bounds interception-mode navigation.
	InterceptNavigationTimeout time.Duration // default: 120s

	// GracePeriod is the extra wait for the page's own data call after
	// navigation settles.
	GracePeriod time.Duration // default: 5s

	// SnippetLength is the markup length returned on an interception miss.
	SnippetLength int // default: 500
}

// TrackingConfig describes the tracking-portal target.
type TrackingConfig struct {
	// URLTemplate is formatted with the tracking identifier.
	URLTemplate string // default: "https://www.maersk.com/tracking/%s"

	// CapturePatterns select which responses may carry the payload.
	// Plain entries match as substrings; "re:" entries are regular expressions.
	CapturePatterns []string // default: ["synergy/tracking", "/tracking/"]

	// IDPattern extracts the identifier from a tracking URL (first group).
	IDPattern string // default: "(?i)tracking/([A-Z0-9]+)"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per identity.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per identity.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultUserAgent is a current desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      envOr("WEBPARSER_HOST", "0.0.0.0"),
			Port:      envIntOr("WEBPARSER_PORT", envIntOr("PORT", 3001)),
			Mode:      envOr("WEBPARSER_MODE", "release"),
			StaticDir: os.Getenv("WEBPARSER_STATIC_DIR"),
		},
		Browser: BrowserConfig{
			Headless:             envBoolOr("WEBPARSER_HEADLESS", true),
			NoSandbox:            envBoolOr("WEBPARSER_NO_SANDBOX", true),
			BrowserBin:           envOr("WEBPARSER_BROWSER_BIN", os.Getenv("CHROMIUM_PATH")),
			Proxy:                os.Getenv("WEBPARSER_PROXY"),
			Stealth:              envBoolOr("WEBPARSER_STEALTH", true),
			UserAgent:            envOr("WEBPARSER_USER_AGENT", DefaultUserAgent),
			RemoteEndpoint:       os.Getenv("WEBPARSER_BROWSER_WS_ENDPOINT"),
			RemoteToken:          os.Getenv("WEBPARSER_BROWSER_TOKEN"),
			MaxSessions:          envIntOr("WEBPARSER_MAX_SESSIONS", 4),
			BlockedResourceTypes: envSliceOr("WEBPARSER_BLOCKED_RESOURCES", nil),
			BlockAds:             envBoolOr("WEBPARSER_BLOCK_ADS", false),
		},
		Pipeline: PipelineConfig{
			ProbeTimeout:               envDurationOr("WEBPARSER_PROBE_TIMEOUT", 8*time.Second),
			FetchTimeout:               envDurationOr("WEBPARSER_FETCH_TIMEOUT", 10*time.Second),
			TextThreshold:              envIntOr("WEBPARSER_TEXT_THRESHOLD", 200),
			NavigationTimeout:          envDurationOr("WEBPARSER_NAV_TIMEOUT", 30*time.Second),
			InterceptNavigationTimeout: envDurationOr("WEBPARSER_INTERCEPT_NAV_TIMEOUT", 120*time.Second),
			GracePeriod:                envDurationOr("WEBPARSER_GRACE_PERIOD", 5*time.Second),
			SnippetLength:              envIntOr("WEBPARSER_SNIPPET_LENGTH", 500),
		},
		Tracking: TrackingConfig{
			URLTemplate: envOr("WEBPARSER_TRACKING_URL_TEMPLATE", "https://www.maersk.com/tracking/%s"),
			CapturePatterns: envSliceOr("WEBPARSER_CAPTURE_PATTERNS", []string{
				"synergy/tracking", "/tracking/",
			}),
			IDPattern: envOr("WEBPARSER_TRACKING_ID_PATTERN", `(?i)tracking/([A-Z0-9]+)`),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("WEBPARSER_AUTH_ENABLED", false),
			APIKeys: envSliceOr("WEBPARSER_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("WEBPARSER_RATE_RPS", 2.0),
			Burst:             envIntOr("WEBPARSER_RATE_BURST", 5),
		},
		Log: LogConfig{
			Level:  envOr("WEBPARSER_LOG_LEVEL", "info"),
			Format: envOr("WEBPARSER_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
