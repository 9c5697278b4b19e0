package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Panel names accepted by INITIAL_PANEL
const (
	PanelExpressions   = "expressions"
	PanelConversations = "conversations"
	PanelLogs          = "logs"
)

// Sink types accepted by SINK_TYPE
const (
	SinkTerminal = "terminal"
	SinkLog      = "log"
)

// Config holds all dashboard client configuration
type Config struct {
	Origin            *url.URL // Page origin, /ws and /api/* hang off it
	ReconnectDelay    time.Duration
	RefreshInterval   time.Duration
	ConversationLimit int
	AuditLogLimit     int
	KeepAlivePeriod   time.Duration
	RequestTimeout    time.Duration
	PlayingDuration   time.Duration // How long an expression is shown as playing
	InitialPanel      string        // "expressions", "conversations" or "logs"
	SinkType          string        // "terminal" or "log"
	DiscardStalePulls bool          // Drop responses older than the last applied one
	RedisURL          string        // Empty disables the Redis sink
	RedisPassword     string
	RedisChannel      string
	SimulatorPort     int // Port for cmd/lampsim
}

// Default returns the configuration used when no environment overrides are set
func Default() *Config {
	origin, _ := url.Parse("http://localhost:8000")
	return &Config{
		Origin:            origin,
		ReconnectDelay:    3000 * time.Millisecond,
		RefreshInterval:   10000 * time.Millisecond,
		ConversationLimit: 20,
		AuditLogLimit:     50,
		KeepAlivePeriod:   30 * time.Second,
		RequestTimeout:    10 * time.Second,
		PlayingDuration:   3000 * time.Millisecond,
		InitialPanel:      PanelExpressions,
		SinkType:          SinkTerminal,
		DiscardStalePulls: false,
		RedisChannel:      "lelamp:dashboard",
		SimulatorPort:     8000,
	}
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := Default()

	// Optional: LAMP_ORIGIN
	if origin := os.Getenv("LAMP_ORIGIN"); origin != "" {
		u, err := url.Parse(origin)
		if err != nil {
			return nil, fmt.Errorf("invalid LAMP_ORIGIN: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("invalid LAMP_ORIGIN: scheme must be http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("invalid LAMP_ORIGIN: missing host")
		}
		config.Origin = u
	}

	// Optional: RECONNECT_DELAY_MS
	if err := durationEnv("RECONNECT_DELAY_MS", time.Millisecond, &config.ReconnectDelay); err != nil {
		return nil, err
	}

	// Optional: REFRESH_INTERVAL_MS
	if err := durationEnv("REFRESH_INTERVAL_MS", time.Millisecond, &config.RefreshInterval); err != nil {
		return nil, err
	}

	// Optional: CONVERSATION_LIMIT
	if err := intEnv("CONVERSATION_LIMIT", &config.ConversationLimit); err != nil {
		return nil, err
	}

	// Optional: AUDIT_LOG_LIMIT
	if err := intEnv("AUDIT_LOG_LIMIT", &config.AuditLogLimit); err != nil {
		return nil, err
	}

	// Optional: KEEPALIVE_PERIOD (in seconds)
	if err := durationEnv("KEEPALIVE_PERIOD", time.Second, &config.KeepAlivePeriod); err != nil {
		return nil, err
	}

	// Optional: REQUEST_TIMEOUT (in seconds)
	if err := durationEnv("REQUEST_TIMEOUT", time.Second, &config.RequestTimeout); err != nil {
		return nil, err
	}

	// Optional: PLAYING_DURATION_MS
	if err := durationEnv("PLAYING_DURATION_MS", time.Millisecond, &config.PlayingDuration); err != nil {
		return nil, err
	}

	// Optional: INITIAL_PANEL
	if panel := os.Getenv("INITIAL_PANEL"); panel != "" {
		switch strings.ToLower(panel) {
		case PanelExpressions, PanelConversations, PanelLogs:
			config.InitialPanel = strings.ToLower(panel)
		default:
			return nil, fmt.Errorf("invalid INITIAL_PANEL: must be 'expressions', 'conversations', or 'logs'")
		}
	}

	// Optional: SINK_TYPE ("terminal" or "log")
	if sinkType := os.Getenv("SINK_TYPE"); sinkType != "" {
		switch sinkType {
		case SinkTerminal, SinkLog:
			config.SinkType = sinkType
		default:
			return nil, fmt.Errorf("invalid SINK_TYPE: must be 'terminal' or 'log'")
		}
	}

	// Optional: DISCARD_STALE_PULLS
	if discard := os.Getenv("DISCARD_STALE_PULLS"); discard != "" {
		b, err := strconv.ParseBool(discard)
		if err != nil {
			return nil, fmt.Errorf("invalid DISCARD_STALE_PULLS: %w", err)
		}
		config.DiscardStalePulls = b
	}

	// Optional: REDIS_URL, REDIS_PASSWORD, REDIS_CHANNEL
	config.RedisURL = os.Getenv("REDIS_URL")
	config.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if channel := os.Getenv("REDIS_CHANNEL"); channel != "" {
		config.RedisChannel = channel
	}

	// Optional: SIMULATOR_PORT
	if err := intEnv("SIMULATOR_PORT", &config.SimulatorPort); err != nil {
		return nil, err
	}

	return config, nil
}

func intEnv(name string, dst *int) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return fmt.Errorf("invalid %s: must be positive, got %d", name, v)
	}
	*dst = v
	return nil
}

func durationEnv(name string, unit time.Duration, dst *time.Duration) error {
	var n int
	if err := intEnv(name, &n); err != nil {
		return err
	}
	if n > 0 {
		*dst = time.Duration(n) * unit
	}
	return nil
}
