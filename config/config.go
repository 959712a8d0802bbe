package config

import (
	"encoding/json"
	"image"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for monitoring behavior. Fields may be
// loaded from a JSON file, overridden by environment variables (optionally
// from a .env file) and finally by command-line flags.
type Config struct {
	Debug bool `json:"debug"`

	// Monitoring parameters
	CaptureIntervalSeconds float64 `json:"capture_interval_seconds"`
	ConfidenceThreshold    float64 `json:"confidence_threshold"`
	OverlapTolerance       float64 `json:"overlap_tolerance"`
	CooldownSeconds        float64 `json:"cooldown_seconds"`
	FailureCeiling         int     `json:"failure_ceiling"`

	// Capture region persistence; all zero means full screen.
	CaptureX int `json:"capture_x"`
	CaptureY int `json:"capture_y"`
	CaptureW int `json:"capture_w"`
	CaptureH int `json:"capture_h"`

	// Detector backend
	OllamaURL string `json:"ollama_url"`
	Model     string `json:"model"`

	// Zone persistence file
	ZonesPath string `json:"zones_path"`

	// Optional WebSocket event listener address (headless mode), e.g. ":8844".
	Listen string `json:"listen"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:                  false,
		CaptureIntervalSeconds: 1.5,
		ConfidenceThreshold:    0.5,
		OverlapTolerance:       0,
		CooldownSeconds:        8,
		FailureCeiling:         3,
		OllamaURL:              "http://127.0.0.1:11434",
		Model:                  "minicpm-v",
		ZonesPath:              "excluded_areas.json",
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.CaptureIntervalSeconds < 0.1 {
		c.CaptureIntervalSeconds = 1.5
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		c.ConfidenceThreshold = 0.5
	}
	if c.OverlapTolerance < 0 || c.OverlapTolerance >= 1 {
		c.OverlapTolerance = 0
	}
	if c.CooldownSeconds <= 0 {
		c.CooldownSeconds = 8
	}
	if c.FailureCeiling <= 0 {
		c.FailureCeiling = 3
	}
	if c.CaptureW < 0 || c.CaptureH < 0 {
		c.CaptureX, c.CaptureY, c.CaptureW, c.CaptureH = 0, 0, 0, 0
	}
	if c.ZonesPath == "" {
		c.ZonesPath = "excluded_areas.json"
	}
	return nil
}

// Interval returns the capture interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.CaptureIntervalSeconds * float64(time.Second))
}

// Cooldown returns the notification cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds * float64(time.Second))
}

// CaptureRect returns the configured capture rectangle; the zero rectangle
// means full screen.
func (c *Config) CaptureRect() image.Rectangle {
	if c.CaptureW <= 0 || c.CaptureH <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(c.CaptureX, c.CaptureY, c.CaptureX+c.CaptureW, c.CaptureY+c.CaptureH)
}

// Load attempts to read configuration from the given JSON file path, then
// applies environment overrides. If the file does not exist it returns
// defaults. On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		// A half-decoded config is worse than none; hand back clean
		// defaults alongside the error.
		cfg = DefaultConfig()
		cfg.applyEnv()
		_ = cfg.Validate()
		return cfg, err
	}
	cfg.applyEnv()
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// applyEnv overrides fields from the environment, loading a .env file first
// when present.
func (c *Config) applyEnv() {
	_ = godotenv.Load()
	c.OllamaURL = getEnv("PHONEWATCH_OLLAMA_URL", c.OllamaURL)
	c.Model = getEnv("PHONEWATCH_MODEL", c.Model)
	c.ZonesPath = getEnv("PHONEWATCH_ZONES", c.ZonesPath)
	c.Listen = getEnv("PHONEWATCH_LISTEN", c.Listen)
	c.CaptureIntervalSeconds = getEnvAsFloat("PHONEWATCH_INTERVAL", c.CaptureIntervalSeconds)
	c.ConfidenceThreshold = getEnvAsFloat("PHONEWATCH_THRESHOLD", c.ConfidenceThreshold)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
