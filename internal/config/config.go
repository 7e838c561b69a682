package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/bdougie/slidecap/internal/detector"
	"github.com/bdougie/slidecap/internal/title"
)

// EnvPrefix prefixes every environment override, e.g. SLIDECAP_INTERVAL
const EnvPrefix = "SLIDECAP"

// APIKeyEnv holds the credential of the remote title provider
const APIKeyEnv = "DEEPSEEK_API_KEY"

// Title providers
const (
	ProviderDeepSeek = "deepseek"
	ProviderOllama   = "ollama"
	ProviderNone     = "none"
)

// Config is the validated configuration of a capture session
type Config struct {
	Display        int
	Interval       time.Duration
	Mode           detector.Mode
	SSIMThreshold  float64
	TextThreshold  float64
	FaceThreshold  float64
	OutputDir      string
	MaxTitleLength int
	QueueSize      int
	Debug          bool
	Cascade        string
	OCRLanguage    string
	MetricsAddr    string
	LogLevel       string

	Title  TitleConfig
	Ollama OllamaConfig
}

// TitleConfig selects and tunes the title generator
type TitleConfig struct {
	Provider      string
	Endpoint      string
	Model         string
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
	RatePerMinute float64
	APIKey        string
}

// OllamaConfig selects the local model used by the ollama provider
type OllamaConfig struct {
	Model string
}

// SetDefaults registers the default of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("display", 0)
	v.SetDefault("interval", 2*time.Second)
	v.SetDefault("mode", string(detector.ModeText))
	v.SetDefault("ssim_threshold", 0.95)
	v.SetDefault("text_threshold", 0.8)
	v.SetDefault("face_threshold", 0.25)
	v.SetDefault("output_dir", "captured_slides")
	v.SetDefault("max_title_length", 50)
	v.SetDefault("queue_size", 100)
	v.SetDefault("debug", false)
	v.SetDefault("cascade", "haarcascade_frontalface_default.xml")
	v.SetDefault("ocr_language", "eng")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("title.provider", ProviderDeepSeek)
	v.SetDefault("title.endpoint", title.DefaultEndpoint)
	v.SetDefault("title.model", title.DefaultModel)
	v.SetDefault("title.temperature", title.DefaultTemperature)
	v.SetDefault("title.max_tokens", title.DefaultMaxTokens)
	v.SetDefault("title.timeout", title.DefaultTimeout)
	v.SetDefault("title.rate_per_minute", 0)

	v.SetDefault("ollama.model", "llama3.2")
}

// New returns a viper instance with defaults and environment overrides.
// A .env file in the working directory is loaded first; variables already
// set in the environment win.
func New() *viper.Viper {
	_ = gotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges a YAML config file into v
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// Load builds and validates a Config from v
func Load(v *viper.Viper) (Config, error) {
	mode, err := detector.ParseMode(v.GetString("mode"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Display:        v.GetInt("display"),
		Interval:       v.GetDuration("interval"),
		Mode:           mode,
		SSIMThreshold:  v.GetFloat64("ssim_threshold"),
		TextThreshold:  v.GetFloat64("text_threshold"),
		FaceThreshold:  v.GetFloat64("face_threshold"),
		OutputDir:      v.GetString("output_dir"),
		MaxTitleLength: v.GetInt("max_title_length"),
		QueueSize:      v.GetInt("queue_size"),
		Debug:          v.GetBool("debug"),
		Cascade:        v.GetString("cascade"),
		OCRLanguage:    v.GetString("ocr_language"),
		MetricsAddr:    v.GetString("metrics_addr"),
		LogLevel:       v.GetString("log_level"),
		Title: TitleConfig{
			Provider:      strings.ToLower(v.GetString("title.provider")),
			Endpoint:      v.GetString("title.endpoint"),
			Model:         v.GetString("title.model"),
			Temperature:   v.GetFloat64("title.temperature"),
			MaxTokens:     v.GetInt("title.max_tokens"),
			Timeout:       v.GetDuration("title.timeout"),
			RatePerMinute: v.GetFloat64("title.rate_per_minute"),
			APIKey:        os.Getenv(APIKeyEnv),
		},
		Ollama: OllamaConfig{
			Model: v.GetString("ollama.model"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations
func (c Config) Validate() error {
	var errs []error
	if c.Display < 0 {
		errs = append(errs, fmt.Errorf("display must not be negative, got %d", c.Display))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	for name, t := range map[string]float64{
		"ssim_threshold": c.SSIMThreshold,
		"text_threshold": c.TextThreshold,
		"face_threshold": c.FaceThreshold,
	} {
		if t < 0 || t > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %g", name, t))
		}
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if c.MaxTitleLength <= 0 {
		errs = append(errs, fmt.Errorf("max_title_length must be positive, got %d", c.MaxTitleLength))
	}
	if c.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("queue_size must be positive, got %d", c.QueueSize))
	}
	switch c.Title.Provider {
	case ProviderDeepSeek, ProviderOllama, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("unknown title provider %q", c.Title.Provider))
	}
	return errors.Join(errs...)
}

// DebugDir is where preprocessing stages are written in debug mode
func (c Config) DebugDir() string {
	if !c.Debug {
		return ""
	}
	return filepath.Join(c.OutputDir, "debug")
}

// Initialize creates the output directory and, in debug mode, its debug
// subdirectory.
func (c Config) Initialize() error {
	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if dir := c.DebugDir(); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create debug directory: %w", err)
		}
	}
	return nil
}
