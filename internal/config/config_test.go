package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		cfg, err := Load("")

		assert.NoError(t, err)

		var wantCfg Config
		setDefaults(&wantCfg)

		assert.Equal(t, wantCfg, *cfg)
	})

	t.Run("non-existent config file", func(t *testing.T) {
		cfg, err := Load("invalid/path/to/config.yml")

		assert.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Nil(t, cfg)
	})

	t.Run("invalid config file", func(t *testing.T) {
		data := `http_server:
  port: not number
  cert_file: ./crts/example.pem
  key_file: ./crts/example-key.pem`

		f := createTempFile(t, []byte(data))
		cfg, err := Load(f.Name())

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("invalid short code length", func(t *testing.T) {
		f := createTempFile(t, []byte("short_code_length: 2"))
		cfg, err := Load(f.Name())

		assert.ErrorIs(t, err, ErrInvalidShortCodeLength)
		assert.Nil(t, cfg)
	})

	t.Run("invalid default validity", func(t *testing.T) {
		f := createTempFile(t, []byte("default_validity: 525601"))
		cfg, err := Load(f.Name())

		assert.ErrorIs(t, err, ErrInvalidDefaultValidity)
		assert.Nil(t, cfg)
	})

	t.Run("success", func(t *testing.T) {
		data := `env: prod
base_url: https://sho.rt
default_validity: 60
http_server:
  cert_file: ./crts/example.pem
  key_file: ./crts/example-key.pem
cors:
  allowed_origins:
    - https://app.sho.rt
reaper:
  schedule: "@every 5m"
telemetry:
  base_url: http://logs.internal/api
  client_id: id
  client_secret: secret
  timeout: 2s`

		f := createTempFile(t, []byte(data))
		cfg, err := Load(f.Name())

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		var wantCfg Config
		setDefaults(&wantCfg)

		wantCfg.Env = EnvProd
		wantCfg.BaseURL = "https://sho.rt"
		wantCfg.DefaultValidity = 60
		wantCfg.HTTPServer.CertFile = "./crts/example.pem"
		wantCfg.HTTPServer.KeyFile = "./crts/example-key.pem"
		wantCfg.CORS.AllowedOrigins = []string{"https://app.sho.rt"}
		wantCfg.Reaper.Schedule = "@every 5m"
		wantCfg.Telemetry.BaseURL = "http://logs.internal/api"
		wantCfg.Telemetry.ClientID = "id"
		wantCfg.Telemetry.ClientSecret = "secret"
		wantCfg.Telemetry.Timeout = 2 * time.Second

		assert.Equal(t, wantCfg, *cfg)
	})
}

func createTempFile(t testing.TB, data []byte) *os.File {
	t.Helper()

	f, err := os.CreateTemp("", "config.yml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() {
		f.Close()
		os.Remove(f.Name())
	})

	if _, err := f.Write(data); err != nil {
		t.Fatalf("Failed to write to file: %v", err)
	}

	return f
}

func TestConfig_DefaultValidityDuration(t *testing.T) {
	cfg := Config{DefaultValidity: 30}

	assert.Equal(t, 30*time.Minute, cfg.DefaultValidityDuration())
}

func TestHTTPServer_Addr(t *testing.T) {
	s := HTTPServer{Port: 8080}

	assert.Equal(t, ":8080", s.Addr())
}
