// Package config loads the orchestration core's configuration: compiled
// defaults, an optional YAML file overlay, then environment variable
// overrides — the same layering the teacher's core/config.go uses.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConcurrencyLimits configures the admission layer's concurrent-run caps.
type ConcurrencyLimits struct {
	MaxPerUser int `yaml:"max_per_user"`
	MaxGlobal  int `yaml:"max_global"`
}

// RateLimits configures the three sliding-window buckets.
type RateLimits struct {
	UserPerMinute  int `yaml:"user_per_minute"`
	IPPerHour      int `yaml:"ip_per_hour"`
	TargetPerHour  int `yaml:"target_per_hour"`
}

// Security toggles the SSRF/DNS-rebinding/self-test behavior of the Target Guard.
type Security struct {
	SSRFProtection         bool `yaml:"ssrf_protection"`
	DNSRebindingProtection bool `yaml:"dns_rebinding_protection"`
	SelfTestEnabled        bool `yaml:"self_test_enabled"`
}

// Prompt bounds the sizes the Safety Pipeline enforces on untrusted text.
type Prompt struct {
	MaxContentLength int `yaml:"max_content_length"`
	MaxTotalLength   int `yaml:"max_total_length"`
}

// Config is the complete, typed configuration surface named in spec.md §6.
type Config struct {
	MaxRetries               int           `yaml:"max_retries"`
	MaxObstacleClearAttempts int           `yaml:"max_obstacle_clear_attempts"`
	MaxLoopIterations        int           `yaml:"max_loop_iterations"`
	TestTimeout              time.Duration `yaml:"test_timeout"`
	Concurrency              ConcurrencyLimits `yaml:"concurrent_limit"`
	RateLimit                RateLimits        `yaml:"rate_limit"`
	Security                 Security          `yaml:"security"`
	MaxInputLength           int    `yaml:"orchestrator_max_input_length"`
	Prompt                   Prompt `yaml:"prompt"`
}

// Default returns the compiled-in defaults from spec.md §6's table.
func Default() *Config {
	return &Config{
		MaxRetries:               3,
		MaxObstacleClearAttempts: 3,
		MaxLoopIterations:        50,
		TestTimeout:              30 * time.Minute,
		Concurrency: ConcurrencyLimits{
			MaxPerUser: 3,
			MaxGlobal:  50,
		},
		RateLimit: RateLimits{
			UserPerMinute: 10,
			IPPerHour:     30,
			TargetPerHour: 100,
		},
		Security: Security{
			SSRFProtection:         true,
			DNSRebindingProtection: true,
			SelfTestEnabled:        false,
		},
		MaxInputLength: 1200,
		Prompt: Prompt{
			MaxContentLength: 50000,
			MaxTotalLength:   15000,
		},
	}
}

// Load builds a Config from defaults, an optional YAML file named by
// AGENTCORE_CONFIG_FILE, then environment variable overrides (env always
// wins — lets an operator ship a versioned base file and still tune a
// single knob per deployment).
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("AGENTCORE_CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load config file %q: %w", path, err)
		}
	}

	loadEnv(cfg)
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadEnv(cfg *Config) {
	intFromEnv("AGENTCORE_MAX_RETRIES", &cfg.MaxRetries)
	intFromEnv("AGENTCORE_MAX_OBSTACLE_CLEAR_ATTEMPTS", &cfg.MaxObstacleClearAttempts)
	intFromEnv("AGENTCORE_MAX_LOOP_ITERATIONS", &cfg.MaxLoopIterations)
	durationFromEnv("AGENTCORE_TEST_TIMEOUT", &cfg.TestTimeout)

	intFromEnv("AGENTCORE_CONCURRENCY_MAX_PER_USER", &cfg.Concurrency.MaxPerUser)
	intFromEnv("AGENTCORE_CONCURRENCY_MAX_GLOBAL", &cfg.Concurrency.MaxGlobal)

	intFromEnv("AGENTCORE_RATE_LIMIT_USER_PER_MINUTE", &cfg.RateLimit.UserPerMinute)
	intFromEnv("AGENTCORE_RATE_LIMIT_IP_PER_HOUR", &cfg.RateLimit.IPPerHour)
	intFromEnv("AGENTCORE_RATE_LIMIT_TARGET_PER_HOUR", &cfg.RateLimit.TargetPerHour)

	boolFromEnv("AGENTCORE_SECURITY_SSRF_PROTECTION", &cfg.Security.SSRFProtection)
	boolFromEnv("AGENTCORE_SECURITY_DNS_REBINDING_PROTECTION", &cfg.Security.DNSRebindingProtection)
	boolFromEnv("AGENTCORE_SECURITY_SELF_TEST_ENABLED", &cfg.Security.SelfTestEnabled)

	intFromEnv("AGENTCORE_MAX_INPUT_LENGTH", &cfg.MaxInputLength)
	intFromEnv("AGENTCORE_PROMPT_MAX_CONTENT_LENGTH", &cfg.Prompt.MaxContentLength)
	intFromEnv("AGENTCORE_PROMPT_MAX_TOTAL_LENGTH", &cfg.Prompt.MaxTotalLength)
}

func intFromEnv(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func boolFromEnv(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true")
	}
}

func durationFromEnv(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
