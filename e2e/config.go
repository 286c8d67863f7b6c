package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_URL targets an already-running server; empty means the
	// suite boots an in-process one.
	ServerURL string `envconfig:"E2E_SERVER_URL"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_HISTORY_LIMIT sizes the per-room history of the in-process server
	HistoryLimit int `envconfig:"E2E_HISTORY_LIMIT" default:"100"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
