package simulate

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/critic/pkg/logger"
)

// SetupLogging sends log output to stdout and, when logFile is set, to
// that file too.
func SetupLogging(logFile string) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.Init(logger.WithWriter(w)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the judging tool.
func ShowHelp() {
	os.Stdout.WriteString(`critic judging simulator
========================

Drives a running critic service with concurrent simulated judges and
verifies that every recorded judgment became one match.

Usage:
  go run ./cmd/critic-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -judgments int
        Upper bound on judgments to post (default 1000)
  -group int
        Restrict contests to one group id (default 0, any group)
  -top int
        Ranking rows to fetch for verification (default 50)
  -workers int
        Number of concurrent judges (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -seed int
        Seed for simulated outcomes (default 0, clock based)
  -output string
        Write posted judgments to this JSON file
  -log string
        Also write logs to this file
  -verbose
        Log progress and the whole fetched ranking
  -help
        Show this help
`)
}
