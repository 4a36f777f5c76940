package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"stress-curve/api/internal/curve"
)

type Config struct {
	Port string

	LogLevel       string
	LogDevelopment bool

	CurveMode      string
	CurvePoints    int
	CurveMaxPoints int
	ModelsFile     string

	DatabaseURL   string
	CacheMaxAge   time.Duration
	CacheTimeout  time.Duration
	ShutdownGrace time.Duration

	AllowedOrigins []string

	TelegramBotToken string
	WebhookURL       string
}

// keys and the environment variables that feed them
var envKeys = map[string]string{
	"port":                 "PORT",
	"log.level":            "LOG_LEVEL",
	"log.development":      "LOG_DEVELOPMENT",
	"curve.mode":           "CURVE_MODE",
	"curve.points":         "CURVE_POINTS",
	"curve.max_points":     "CURVE_MAX_POINTS",
	"curve.models_file":    "CURVE_MODELS_FILE",
	"database.url":         "DATABASE_URL",
	"cache.max_age":        "CURVE_CACHE_MAX_AGE",
	"cache.timeout":        "CURVE_CACHE_TIMEOUT",
	"server.shutdown":      "SHUTDOWN_GRACE",
	"cors.allowed_origins": "CORS_ALLOWED_ORIGINS",
	"telegram.token":       "TELEGRAM_BOT_TOKEN",
	"telegram.webhook_url": "WEBHOOK_URL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("curve.mode", string(curve.ModeScaled))
	v.SetDefault("curve.points", curve.DefaultPoints)
	v.SetDefault("curve.max_points", 10000)
	v.SetDefault("curve.models_file", "")
	v.SetDefault("database.url", "")
	v.SetDefault("cache.max_age", 24*time.Hour)
	v.SetDefault("cache.timeout", 2*time.Second)
	v.SetDefault("server.shutdown", 10*time.Second)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.webhook_url", "")
}

func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML/TOML/JSON config file (env CONFIG_FILE)")
	fs.String("port", "", "HTTP listen port (env PORT)")
	fs.String("log-level", "", "log level: trace|debug|info|warn|error (env LOG_LEVEL)")
	fs.Bool("log-development", false, "human readable console logs (env LOG_DEVELOPMENT)")
	fs.String("mode", "", "default curve mode: scaled|bilinear (env CURVE_MODE)")
	fs.Int("points", 0, "bilinear sample count and default scaled count (env CURVE_POINTS)")
	fs.String("models", "", "model catalogue YAML file (env CURVE_MODELS_FILE)")
}

var flagKeys = map[string]string{
	"port":            "port",
	"log-level":       "log.level",
	"log-development": "log.development",
	"mode":            "curve.mode",
	"points":          "curve.points",
	"models":          "curve.models_file",
}

// Load resolves configuration. Precedence: flags set on fs, environment
// (after loading .env if present), config file, defaults. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	path := os.Getenv("CONFIG_FILE")
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			path = f.Value.String()
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:             strings.TrimSpace(v.GetString("port")),
		LogLevel:         v.GetString("log.level"),
		LogDevelopment:   v.GetBool("log.development"),
		CurveMode:        v.GetString("curve.mode"),
		CurvePoints:      v.GetInt("curve.points"),
		CurveMaxPoints:   v.GetInt("curve.max_points"),
		ModelsFile:       strings.TrimSpace(v.GetString("curve.models_file")),
		DatabaseURL:      strings.TrimSpace(v.GetString("database.url")),
		CacheMaxAge:      v.GetDuration("cache.max_age"),
		CacheTimeout:     v.GetDuration("cache.timeout"),
		ShutdownGrace:    v.GetDuration("server.shutdown"),
		AllowedOrigins:   splitList(v.GetStringSlice("cors.allowed_origins")),
		TelegramBotToken: strings.TrimSpace(v.GetString("telegram.token")),
		WebhookURL:       strings.TrimSpace(v.GetString("telegram.webhook_url")),
	}
	if cfg.Port == "" {
		cfg.Port = "8000"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList accepts both ["a","b"] and ["a,b"] (the latter is how a single
// environment variable arrives).
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	if _, err := curve.ParseMode(c.CurveMode); err != nil {
		return fmt.Errorf("curve.mode: %w", err)
	}
	if c.CurvePoints < curve.MinPoints {
		return fmt.Errorf("curve.points must be >= %d, got %d", curve.MinPoints, c.CurvePoints)
	}
	if c.CurveMaxPoints < 0 {
		return fmt.Errorf("curve.max_points must be >= 0, got %d", c.CurveMaxPoints)
	}
	if c.CurveMaxPoints > 0 && c.CurvePoints > c.CurveMaxPoints {
		return fmt.Errorf("curve.points (%d) exceeds curve.max_points (%d)", c.CurvePoints, c.CurveMaxPoints)
	}
	if c.CacheMaxAge < 0 {
		return fmt.Errorf("cache.max_age must be >= 0, got %s", c.CacheMaxAge)
	}
	return nil
}

func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return errors.New("missing required env TELEGRAM_BOT_TOKEN")
	}
	return nil
}

// CalculatorOptions builds curve.Options, loading the model catalogue file
// when one is configured.
func (c *Config) CalculatorOptions() (curve.Options, error) {
	mode, err := curve.ParseMode(c.CurveMode)
	if err != nil {
		return curve.Options{}, err
	}
	opts := curve.Options{
		Mode:      mode,
		Points:    c.CurvePoints,
		MaxPoints: c.CurveMaxPoints,
	}
	if c.ModelsFile != "" {
		cat, err := curve.LoadCatalogue(c.ModelsFile)
		if err != nil {
			return curve.Options{}, err
		}
		opts.Catalogue = cat
	}
	return opts, nil
}
