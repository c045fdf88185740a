package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the backend configuration, read once at startup.
type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	LogLevel   string `mapstructure:"log_level"`
	RoomName   string `mapstructure:"room_name"`

	LiveKit LiveKit `mapstructure:"livekit"`

	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	TokenRateLimit  int           `mapstructure:"token_rate_limit"`
	TokenRateWindow time.Duration `mapstructure:"token_rate_window"`
}

type LiveKit struct {
	URL       string `mapstructure:"url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// Missing lists the LiveKit environment variables that are not set.
func (c *Config) Missing() []string {
	var out []string
	if c.LiveKit.URL == "" {
		out = append(out, "LIVEKIT_URL")
	}
	if c.LiveKit.APIKey == "" {
		out = append(out, "LIVEKIT_API_KEY")
	}
	if c.LiveKit.APISecret == "" {
		out = append(out, "LIVEKIT_API_SECRET")
	}
	return out
}

var serverEnv = map[string]string{
	"mode":               "MODE",
	"port":               "PORT",
	"static_path":        "STATIC_PATH",
	"log_level":          "LOG_LEVEL",
	"room_name":          "ROOM_NAME",
	"livekit.url":        "LIVEKIT_URL",
	"livekit.api_key":    "LIVEKIT_API_KEY",
	"livekit.api_secret": "LIVEKIT_API_SECRET",
	"token_ttl":          "TOKEN_TTL",
	"token_rate_limit":   "TOKEN_RATE_LIMIT",
	"token_rate_window":  "TOKEN_RATE_WINDOW",
}

// ServerFlags declares the command-line overrides of the backend.
func ServerFlags(fs *pflag.FlagSet) {
	fs.Int("port", 8080, "listen port")
	fs.String("static-path", "./web", "directory served at /")
	fs.String("mode", "release", "gin mode: release or debug")
	fs.String("log-level", "info", "zerolog level")
}

// Load reads the backend configuration from, in increasing priority,
// defaults, config/config.<CONFIG_ENV>.yaml, .env files, the environment and
// fs (which may be nil).
func Load(fs *pflag.FlagSet) (*Config, error) {
	LoadDotEnv()
	v := newViper()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("log_level", "info")
	v.SetDefault("room_name", "debt-collection-room")
	v.SetDefault("livekit.url", "ws://localhost:7880")
	v.SetDefault("livekit.api_key", "")
	v.SetDefault("livekit.api_secret", "")
	v.SetDefault("token_ttl", "6h")
	v.SetDefault("token_rate_limit", 0)
	v.SetDefault("token_rate_window", "1m")

	if err := bindEnv(v, serverEnv); err != nil {
		return nil, err
	}
	if fs != nil {
		for key, flag := range map[string]string{
			"port":        "port",
			"static_path": "static-path",
			"mode":        "mode",
			"log_level":   "log-level",
		} {
			if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Str("room", cfg.RoomName).Msg("config loaded")
	return &cfg, nil
}

// newViper returns a viper instance with the optional YAML file for
// CONFIG_ENV already read.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		log.Debug().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config file")
	}
	return v
}

func bindEnv(v *viper.Viper, keys map[string]string) error {
	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	return nil
}

// LoadDotEnv loads .env.local then .env from the working directory. Variables
// already present in the environment are never overwritten.
func LoadDotEnv() {
	for _, name := range []string{".env.local", ".env"} {
		err := godotenv.Load(name)
		switch {
		case err == nil:
			log.Info().Str("module", "config").Str("file", name).Msg("loaded env file")
		case errors.Is(err, os.ErrNotExist):
		default:
			log.Warn().Err(err).Str("module", "config").Str("file", name).Msg("env file unreadable")
		}
	}
}

// envName turns a viper key into its CALLER_ environment variable.
func envName(prefix, key string) string {
	return prefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
