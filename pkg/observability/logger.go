package observability

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LogConfig configures the process logger
type LogConfig struct {
	Level  string    // debug, info, warn, error
	File   string    // Log file, deleted at startup; empty disables file output
	Stderr io.Writer // Console output, defaults to os.Stderr
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger deletes the previous log file and returns a logger writing to the
// console and a fresh log file. The returned closer releases the file.
func NewLogger(cfg LogConfig) (*logrus.Logger, io.Closer, error) {
	console := cfg.Stderr
	if console == nil {
		console = os.Stderr
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(ParseLevel(cfg.Level))

	if cfg.File == "" {
		logger.SetOutput(console)
		return logger, nopCloser{}, nil
	}

	if err := os.Remove(cfg.File); err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("failed to delete log file %s: %w", cfg.File, err)
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
	}

	logger.SetOutput(io.MultiWriter(console, file))
	return logger, file, nil
}

// ParseLevel parses a log level, falling back to info
func ParseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}
