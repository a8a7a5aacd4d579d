package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/critic/internal/simulate"
)

// Default configuration constants.
const (
	defaultJudgments  = 1000
	defaultTopN       = 50
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		judgments  = flag.Int("judgments", defaultJudgments, "Upper bound on judgments to post")
		groupID    = flag.Int64("group", 0, "Restrict contests to one group id")
		topN       = flag.Int("top", defaultTopN, "Ranking rows to fetch for verification")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent judges")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed       = flag.Int64("seed", 0, "Seed for simulated outcomes")
		outputFile = flag.String("output", "", "Write posted judgments to this JSON file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := simulate.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:    *baseURL,
		Judgments:  *judgments,
		GroupID:    *groupID,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		Seed:       *seed,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
