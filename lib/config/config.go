// Package config loads the control interface settings from the environment.
// Values from a .env.local file in the working directory are used
// for variables that are not set.
package config

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"

	"projekt/control/lib/metrics"
	"projekt/control/lib/session"
)

const LocalEnvFile = ".env.local"

type Config struct {
	// Directory containing the input and output FIFOs.
	InterfacePath    string        `env:"CONTROL_INTERFACE_PATH, default=/run/ankaios/control_interface"`
	ProtocolVersion  string        `env:"CONTROL_PROTOCOL_VERSION, default=v1"`
	HandshakeTimeout time.Duration `env:"CONTROL_HANDSHAKE_TIMEOUT, default=5s"`
	LogLevel         string        `env:"CONTROL_LOG_LEVEL, default=info"`
	LogEncoding      string        `env:"CONTROL_LOG_ENCODING, default=console"`
	// Listen address of the /metrics endpoint, empty disables it.
	MetricsAddr string `env:"CONTROL_METRICS_ADDR"`
}

func Load(ctx context.Context) (*Config, error) {
	return load(ctx, LocalEnvFile, envconfig.OsLookuper())
}

func load(ctx context.Context, envFile string, lookuper envconfig.Lookuper) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &config,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}

	return &config, nil
}

// SessionOptions maps the configuration onto session options.
// m may be nil.
func (c *Config) SessionOptions(log *zap.Logger, m *metrics.Collector) []session.Option {
	return []session.Option{
		session.WithLogger(log),
		session.WithMetrics(m),
		session.WithHandshakeTimeout(c.HandshakeTimeout),
	}
}
