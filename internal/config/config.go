package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/charliek/npcctl/internal/constants"
	"github.com/charliek/npcctl/internal/domain"
)

// Options represents the optional npcctl.yaml file. Connection settings
// live in config.ini; this file only tunes how npcctl runs the client.
type Options struct {
	// SettingsDir holds config.ini; empty means the executable's directory
	SettingsDir string         `yaml:"settings_dir"`
	Client      ClientConfig   `yaml:"client"`
	Timeouts    TimeoutsConfig `yaml:"timeouts"`
	Logs        LogsConfig     `yaml:"logs"`
	API         APIConfig      `yaml:"api"`
}

// ClientConfig describes how the npc client is launched
type ClientConfig struct {
	Executable string            `yaml:"executable"`
	WorkDir    string            `yaml:"work_dir"`
	EnvFile    string            `yaml:"env_file"`
	Env        map[string]string `yaml:"env"`
	// Encoding of the client's output: "local" or a name such as "gbk"
	Encoding string `yaml:"encoding"`
}

// TimeoutsConfig holds the bounded waits as duration strings ("3s", "500ms")
type TimeoutsConfig struct {
	Start     string `yaml:"start"`
	Terminate string `yaml:"terminate"`
	Kill      string `yaml:"kill"`
}

// LogsConfig sizes the in-memory log sink
type LogsConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

// APIConfig defines the HTTP API configuration
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Host    string `yaml:"host"`
	Auth    *bool  `yaml:"auth,omitempty"` // nil = auto-determine based on host
}

// Default returns the options used when no npcctl.yaml exists
func Default() *Options {
	opts := &Options{}
	applyDefaults(opts)
	return opts
}

// Load reads and parses an options file
func Load(path string) (*Options, error) {
	// First check if file exists
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("checking options file: %w", err)
	}

	// Check file permissions for security
	if err := CheckFilePermissions(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading options file: %w", err)
	}

	return Parse(data)
}

// LoadOrDefault is Load with a missing file treated as defaults
func LoadOrDefault(path string) (*Options, error) {
	opts, err := Load(path)
	if errors.Is(err, domain.ErrConfigNotFound) {
		return Default(), nil
	}
	return opts, err
}

// Parse parses options from YAML bytes
func Parse(data []byte) (*Options, error) {
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("%w: parsing yaml: %v", domain.ErrInvalidConfig, err)
	}

	applyDefaults(&opts)

	if err := Validate(&opts); err != nil {
		return nil, err
	}

	return &opts, nil
}

func applyDefaults(opts *Options) {
	if opts.Client.Executable == "" {
		opts.Client.Executable = constants.DefaultExecutable()
	}
	if opts.Client.Encoding == "" {
		opts.Client.Encoding = "local"
	}
	if opts.Timeouts.Start == "" {
		opts.Timeouts.Start = constants.DefaultStartTimeout.String()
	}
	if opts.Timeouts.Terminate == "" {
		opts.Timeouts.Terminate = constants.DefaultTerminateTimeout.String()
	}
	if opts.Timeouts.Kill == "" {
		opts.Timeouts.Kill = constants.DefaultKillTimeout.String()
	}
	if opts.Logs.BufferSize == 0 {
		opts.Logs.BufferSize = constants.DefaultLogBufferSize
	}
	if opts.API.Port == 0 {
		opts.API.Port = constants.DefaultAPIPort
	}
	if opts.API.Host == "" {
		opts.API.Host = constants.DefaultAPIHost
	}
}

// StartTimeout returns the parsed start timeout
func (t TimeoutsConfig) StartTimeout() time.Duration {
	return parseDurationOr(t.Start, constants.DefaultStartTimeout)
}

// TerminateTimeout returns the parsed graceful-termination timeout
func (t TimeoutsConfig) TerminateTimeout() time.Duration {
	return parseDurationOr(t.Terminate, constants.DefaultTerminateTimeout)
}

// KillTimeout returns the parsed kill timeout
func (t TimeoutsConfig) KillTimeout() time.Duration {
	return parseDurationOr(t.Kill, constants.DefaultKillTimeout)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}

// AuthEnabled reports whether the API requires a bearer token. Unless set
// explicitly, auth is required whenever the API is reachable off localhost.
func (a APIConfig) AuthEnabled() bool {
	if a.Auth != nil {
		return *a.Auth
	}
	return !IsLoopbackHost(a.Host)
}
