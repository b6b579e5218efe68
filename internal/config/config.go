package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	minShortCodeLength = 3
	maxShortCodeLength = 20
	maxValidity        = 525600 // one year in minutes
)

var (
	ErrInvalidShortCodeLength = errors.New("short code length must be between 3 and 20")
	ErrInvalidDefaultValidity = errors.New("default validity must be between 1 and 525600 minutes")
)

type Config struct {
	Env             string `yaml:"env"`
	BaseURL         string `yaml:"base_url"`
	ShortCodeLength int    `yaml:"short_code_length"`
	DefaultValidity int    `yaml:"default_validity"`
	HTTPServer      `yaml:"http_server"`
	CORS            `yaml:"cors"`
	Reaper          `yaml:"reaper"`
	Telemetry       `yaml:"telemetry"`
}

// DefaultValidityDuration returns the default validity window of a short code.
func (c *Config) DefaultValidityDuration() time.Duration {
	return time.Duration(c.DefaultValidity) * time.Minute
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

var defaultCORS = CORS{
	AllowedOrigins: []string{"https://*", "http://localhost:3000"},
}

// Reaper configures the background sweep of expired short codes.
// An empty schedule disables it.
type Reaper struct {
	Schedule string `yaml:"schedule"`
}

var defaultReaper = Reaper{
	Schedule: "@every 1m",
}

// Telemetry configures the log shipping client. An empty BaseURL disables it.
type Telemetry struct {
	BaseURL      string        `yaml:"base_url"`
	Email        string        `yaml:"email"`
	Name         string        `yaml:"name"`
	RollNo       string        `yaml:"roll_no"`
	AccessCode   string        `yaml:"access_code"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Stack        string        `yaml:"stack"`
	QueueSize    int           `yaml:"queue_size"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   uint64        `yaml:"max_retries"`
}

var defaultTelemetry = Telemetry{
	Stack:      "backend",
	QueueSize:  1024,
	Timeout:    5 * time.Second,
	MaxRetries: 3,
}

// Load reads the YAML config file at path on top of the defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path == "" {
		return &cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ShortCodeLength < minShortCodeLength || c.ShortCodeLength > maxShortCodeLength {
		return ErrInvalidShortCodeLength
	}
	if c.DefaultValidity < 1 || c.DefaultValidity > maxValidity {
		return ErrInvalidDefaultValidity
	}
	return nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.ShortCodeLength = 6
	cfg.DefaultValidity = 30
	cfg.HTTPServer = defaultHTTPServer
	cfg.CORS = defaultCORS
	cfg.Reaper = defaultReaper
	cfg.Telemetry = defaultTelemetry
}
