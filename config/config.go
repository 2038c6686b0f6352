// Package config resolves pomchat settings. Later sources win: built-in
// defaults, the YAML file, .env and POMCHAT_* environment variables, and
// finally command-line flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const EnvPrefix = "POMCHAT_"

// DefaultFile is read from the working directory when no file is given.
const DefaultFile = "pomchat.yaml"

type Config struct {
	ServerURL     string        `yaml:"server_url"`
	DataPath      string        `yaml:"data_path"`
	LogLevel      string        `yaml:"log_level"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	FocusDuration time.Duration `yaml:"focus_duration"`
	BreakDuration time.Duration `yaml:"break_duration"`
	Notify        bool          `yaml:"notify"`
	ViewPort      int           `yaml:"view_port"`
	RelayURLs     []string      `yaml:"relay_urls"`
	RelayName     string        `yaml:"relay_name"`
	CredKey       string        `yaml:"cred_key"`
}

func Default() *Config {
	dataPath := ""
	if dir, err := os.UserConfigDir(); err == nil {
		dataPath = filepath.Join(dir, "pomchat")
	}
	return &Config{
		ServerURL:     "http://localhost:8000",
		DataPath:      dataPath,
		LogLevel:      "info",
		PollInterval:  5 * time.Second,
		FocusDuration: 25 * time.Minute,
		BreakDuration: 5 * time.Minute,
		Notify:        true,
		ViewPort:      -1,
		RelayName:     "pomchat",
	}
}

// Load builds the config from defaults, path (or DefaultFile when present),
// the .env file and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	_ = godotenv.Load(".env")
	if err := cfg.mergeEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("SERVER_URL", &c.ServerURL)
	str("DATA_PATH", &c.DataPath)
	str("LOG_LEVEL", &c.LogLevel)
	str("RELAY_NAME", &c.RelayName)
	str("CRED_KEY", &c.CredKey)
	for name, dst := range map[string]*time.Duration{
		"POLL_INTERVAL":  &c.PollInterval,
		"FOCUS_DURATION": &c.FocusDuration,
		"BREAK_DURATION": &c.BreakDuration,
	} {
		if err := dur(name, dst); err != nil {
			return err
		}
	}
	if v, ok := lookup(EnvPrefix + "NOTIFY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sNOTIFY: %w", EnvPrefix, err)
		}
		c.Notify = b
	}
	if v, ok := lookup(EnvPrefix + "VIEW_PORT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sVIEW_PORT: %w", EnvPrefix, err)
		}
		c.ViewPort = n
	}
	if v, ok := lookup(EnvPrefix + "RELAY_URLS"); ok && v != "" {
		c.RelayURLs = SplitList(v)
	}
	return nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return errors.New("config: server_url is required")
	}
	if c.PollInterval <= 0 || c.FocusDuration <= 0 || c.BreakDuration <= 0 {
		return errors.New("config: durations must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	return nil
}

// Level is the parsed log level, info when unset.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// SplitList splits comma-separated values, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
