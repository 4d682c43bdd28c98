// Package config loads gateway configuration from environment variables.
// Process bootstrap and env-var parsing are treated as external-collaborator
// concerns (see spec §1) — this package stays intentionally small.
package config

import (
	"os"

	"github.com/go-rinha/payments-gateway/internal/upstream"
)

// Config holds everything the gateway needs to bind its ingress socket and
// locate the two upstream processors.
type Config struct {
	Host string
	Port string

	Default  upstream.Upstream
	Fallback upstream.Upstream

	DiagAddr string
}

// Load reads configuration from the environment, applying the defaults from
// spec §6.
func Load() Config {
	return Config{
		Host: getenv("RINHA_HOST", "0.0.0.0"),
		Port: getenv("RINHA_PORT", "9999"),

		Default: upstream.New(upstream.Default,
			getenv("RINHA_DEFAULT_UPSTREAM_HOST", "127.0.0.1"),
			getenv("RINHA_DEFAULT_UPSTREAM_PORT", "8001"),
		),
		Fallback: upstream.New(upstream.Fallback,
			getenv("RINHA_FALLBACK_UPSTREAM_HOST", "127.0.0.1"),
			getenv("RINHA_FALLBACK_UPSTREAM_PORT", "8002"),
		),

		DiagAddr: getenv("RINHA_DIAG_ADDR", "127.0.0.1:9090"),
	}
}

// Addr is the host:port the ingress HTTP server binds to.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
