package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Quiz      QuizConfig      `mapstructure:"quiz"`
	Session   SessionConfig   `mapstructure:"session"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type BackendConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	HealthTimeout time.Duration `mapstructure:"health_timeout"`
}

type QuizConfig struct {
	AdvanceDelay time.Duration `mapstructure:"advance_delay"`
}

type SessionConfig struct {
	CookieName    string        `mapstructure:"cookie_name"`
	SecureCookie  bool          `mapstructure:"secure_cookie"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

const (
	envPrefix      = "QUIZWEB"
	configName     = "quizweb"
	defaultBackend = "http://0.0.0.0:5000/quizmaster/api/quiz"
)

// flag -> ключ конфигурации
var flagKeys = map[string]string{
	"addr":          "server.addr",
	"mode":          "server.mode",
	"backend-url":   "backend.base_url",
	"advance-delay": "quiz.advance_delay",
	"log-level":     "log.level",
	"log-file":      "log.file",
}

// RegisterFlags добавляет флаги командной строки в fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "path to the config file (yaml)")
	fs.String("addr", ":8501", "address to listen on")
	fs.String("mode", "release", "gin mode: debug, release or test")
	fs.String("backend-url", "", "base URL of the quiz API, e.g. "+defaultBackend)
	fs.Duration("advance-delay", time.Second, "pause before moving to the next question")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-file", "", "also write JSON logs to this file (rotated)")
}

// Load собирает конфигурацию из значений по умолчанию, файла, окружения (QUIZWEB_*) и флагов.
// Флаги, заданные явно, имеют наивысший приоритет.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := readConfigFile(v, fs); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = DefaultBackendURL()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultBackendURL возвращает адрес API по умолчанию.
// Если заданы REPL_SLUG и REPL_OWNER, используется публичный адрес Replit.
func DefaultBackendURL() string {
	slug := os.Getenv("REPL_SLUG")
	owner := os.Getenv("REPL_OWNER")

	if slug != "" && owner != "" {
		return fmt.Sprintf("https://%s.%s.repl.co/quizmaster/api/quiz", slug, owner)
	}

	return defaultBackend
}

// Validate проверяет согласованность значений.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.base_url %q must be an absolute http(s) URL", c.Backend.BaseURL))
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode %q must be debug, release or test", c.Server.Mode))
	}

	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.max_requests and rate_limit.window must be positive"))
	}

	if c.Quiz.AdvanceDelay < 0 {
		errs = append(errs, errors.New("quiz.advance_delay must not be negative"))
	}

	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session.cookie_name must not be empty"))
	}

	if c.Session.IdleTTL <= 0 || c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("session.idle_ttl and session.sweep_interval must be positive"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8501")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.health_timeout", 2*time.Second)

	v.SetDefault("quiz.advance_delay", time.Second)

	v.SetDefault("session.cookie_name", "quiz_session")
	v.SetDefault("session.secure_cookie", false)
	v.SetDefault("session.idle_ttl", 2*time.Hour)
	v.SetDefault("session.sweep_interval", 5*time.Minute)

	v.SetDefault("rate_limit.max_requests", 120)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	path := ""
	if f := fs.Lookup("config"); f != nil {
		path = f.Value.String()
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}

		return nil
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		return fmt.Errorf("read config: %w", err)
	}

	return nil
}
