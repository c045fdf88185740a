package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Caller configures the terminal call client.
type Caller struct {
	BackendURL     string        `mapstructure:"backend_url"`
	RoomName       string        `mapstructure:"room_name"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// FallbackURL is joined when /config cannot be fetched. Empty fails the call.
	FallbackURL string `mapstructure:"fallback_url"`
	MicFile     string `mapstructure:"mic_file"`
	RecordDir   string `mapstructure:"record_dir"`
	AutoStart   bool   `mapstructure:"auto_start"`
	LogLevel    string `mapstructure:"log_level"`
}

var callerKeys = []string{
	"backend_url", "room_name", "connect_timeout", "request_timeout",
	"fallback_url", "mic_file", "record_dir", "auto_start", "log_level",
}

func CallerFlags(fs *pflag.FlagSet) {
	fs.String("backend-url", "http://localhost:8080", "base URL of the token/config backend")
	fs.String("room", "debt-collection-room", "room joined when the backend does not name one")
	fs.Duration("connect-timeout", 30*time.Second, "upper bound for one connection attempt")
	fs.String("fallback-url", "", "LiveKit URL to use when /config is unreachable")
	fs.String("mic-file", "", "Ogg/Opus file published as the microphone (silence when empty)")
	fs.String("record-dir", "", "directory the agent's audio is recorded to")
	fs.Bool("auto-start", false, "start the call immediately")
	fs.String("log-level", "info", "zerolog level")
}

// LoadCaller reads the call client configuration from defaults,
// config/config.<CONFIG_ENV>.yaml (section "caller"), CALLER_* variables and fs.
func LoadCaller(fs *pflag.FlagSet) (*Caller, error) {
	LoadDotEnv()
	v := newViper()
	sub := v.Sub("caller")
	if sub != nil {
		v = sub
	}

	v.SetDefault("backend_url", "http://localhost:8080")
	v.SetDefault("room_name", "debt-collection-room")
	v.SetDefault("connect_timeout", "30s")
	v.SetDefault("request_timeout", "10s")
	v.SetDefault("fallback_url", "")
	v.SetDefault("mic_file", "")
	v.SetDefault("record_dir", "")
	v.SetDefault("auto_start", false)
	v.SetDefault("log_level", "info")

	env := make(map[string]string, len(callerKeys))
	for _, k := range callerKeys {
		env[k] = envName("CALLER", k)
	}
	if err := bindEnv(v, env); err != nil {
		return nil, err
	}
	if fs != nil {
		for key, flag := range map[string]string{
			"backend_url":     "backend-url",
			"room_name":       "room",
			"connect_timeout": "connect-timeout",
			"fallback_url":    "fallback-url",
			"mic_file":        "mic-file",
			"record_dir":      "record-dir",
			"auto_start":      "auto-start",
			"log_level":       "log-level",
		} {
			if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	var cfg Caller
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse caller config: %w", err)
	}
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("backend_url is required")
	}
	return &cfg, nil
}
