package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where slotfinder stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the url of your slotfinder instance.
	InstanceURL string

	// DefaultTimezone is the last-resort zone for records and viewers
	// that carry none.
	DefaultTimezone string // SLOTFINDER_DEFAULT_TIMEZONE (default: UTC)
	// CalendarTimezone anchors date-only records. Empty means the server's
	// local zone.
	CalendarTimezone string // SLOTFINDER_CALENDAR_TIMEZONE

	// AI Configuration
	AIEnabled         bool          // SLOTFINDER_AI_ENABLED
	AILLMProvider     string        // SLOTFINDER_AI_LLM_PROVIDER (default: deepseek)
	AILLMModel        string        // SLOTFINDER_AI_LLM_MODEL (default: deepseek-chat)
	AIDeepSeekAPIKey  string        // SLOTFINDER_AI_DEEPSEEK_API_KEY
	AIDeepSeekBaseURL string        // SLOTFINDER_AI_DEEPSEEK_BASE_URL (default: https://api.deepseek.com)
	AIOpenAIAPIKey    string        // SLOTFINDER_AI_OPENAI_API_KEY
	AIOpenAIBaseURL   string        // SLOTFINDER_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AIOllamaBaseURL   string        // SLOTFINDER_AI_OLLAMA_BASE_URL (default: http://localhost:11434)
	AIParseTimeout    time.Duration // SLOTFINDER_AI_PARSE_TIMEOUT (default: 15s)
	AIMaxConcurrency  int           // SLOTFINDER_AI_MAX_CONCURRENCY (default: 4)

	// Parse cache. Redis is used when CacheRedisAddr is set.
	CacheRedisAddr     string        // SLOTFINDER_CACHE_REDIS_ADDR
	CacheRedisPassword string        // SLOTFINDER_CACHE_REDIS_PASSWORD
	CacheRedisDB       int           // SLOTFINDER_CACHE_REDIS_DB (default: 0)
	CacheTTL           time.Duration // SLOTFINDER_CACHE_TTL (default: 10m)

	// Per-client limit on the parse endpoint.
	ParseRateLimit float64 // SLOTFINDER_PARSE_RATE_LIMIT (default: 2 req/s)
	ParseRateBurst int     // SLOTFINDER_PARSE_RATE_BURST (default: 5)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and the selected provider is reachable.
func (p *Profile) IsAIEnabled() bool {
	if !p.AIEnabled {
		return false
	}
	switch p.AILLMProvider {
	case "openai":
		return p.AIOpenAIAPIKey != ""
	case "deepseek":
		return p.AIDeepSeekAPIKey != ""
	case "ollama":
		return p.AIOllamaBaseURL != ""
	default:
		return false
	}
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// FromEnv loads configuration from SLOTFINDER_* environment variables.
// Unset or unparsable values keep their defaults.
func (p *Profile) FromEnv() {
	p.DefaultTimezone = getEnvOrDefault("SLOTFINDER_DEFAULT_TIMEZONE", "UTC")
	p.CalendarTimezone = os.Getenv("SLOTFINDER_CALENDAR_TIMEZONE")

	p.AIEnabled = os.Getenv("SLOTFINDER_AI_ENABLED") == "true"
	p.AILLMProvider = getEnvOrDefault("SLOTFINDER_AI_LLM_PROVIDER", "deepseek")
	p.AILLMModel = getEnvOrDefault("SLOTFINDER_AI_LLM_MODEL", "deepseek-chat")
	p.AIDeepSeekAPIKey = os.Getenv("SLOTFINDER_AI_DEEPSEEK_API_KEY")
	p.AIDeepSeekBaseURL = getEnvOrDefault("SLOTFINDER_AI_DEEPSEEK_BASE_URL", "https://api.deepseek.com")
	p.AIOpenAIAPIKey = os.Getenv("SLOTFINDER_AI_OPENAI_API_KEY")
	p.AIOpenAIBaseURL = getEnvOrDefault("SLOTFINDER_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AIOllamaBaseURL = getEnvOrDefault("SLOTFINDER_AI_OLLAMA_BASE_URL", "http://localhost:11434")
	p.AIParseTimeout = getDurationEnvOrDefault("SLOTFINDER_AI_PARSE_TIMEOUT", 15*time.Second)
	p.AIMaxConcurrency = getIntEnvOrDefault("SLOTFINDER_AI_MAX_CONCURRENCY", 4)

	p.CacheRedisAddr = os.Getenv("SLOTFINDER_CACHE_REDIS_ADDR")
	p.CacheRedisPassword = os.Getenv("SLOTFINDER_CACHE_REDIS_PASSWORD")
	p.CacheRedisDB = getIntEnvOrDefault("SLOTFINDER_CACHE_REDIS_DB", 0)
	p.CacheTTL = getDurationEnvOrDefault("SLOTFINDER_CACHE_TTL", 10*time.Minute)

	p.ParseRateLimit = getFloatEnvOrDefault("SLOTFINDER_PARSE_RATE_LIMIT", 2)
	p.ParseRateBurst = getIntEnvOrDefault("SLOTFINDER_PARSE_RATE_BURST", 5)
}

// CalendarLocation returns the zone date-only records are anchored to.
func (p *Profile) CalendarLocation() *time.Location {
	if p.CalendarTimezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(p.CalendarTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}

	if p.DefaultTimezone == "" {
		p.DefaultTimezone = "UTC"
	}
	if _, err := time.LoadLocation(p.DefaultTimezone); err != nil {
		return errors.Wrapf(err, "invalid default timezone %q", p.DefaultTimezone)
	}
	if p.CalendarTimezone != "" {
		if _, err := time.LoadLocation(p.CalendarTimezone); err != nil {
			return errors.Wrapf(err, "invalid calendar timezone %q", p.CalendarTimezone)
		}
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "slotfinder")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/slotfinder"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("slotfinder_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	return nil
}
