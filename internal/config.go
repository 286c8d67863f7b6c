// Package internal holds process-level plumbing: environment configuration
// and the logger factory.
package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Addr                 string        `env:"ADDR,default=:8080"`
	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	EnvelopeBufferSize   int           `env:"ENVELOPE_BUFFER_SIZE,default=512"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=5s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,default=100"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
}

// CharacterRune validates that the censoring replacement is exactly one
// character.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
