package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lgpdshield/lgpd-shield/internal/batch"
	"github.com/lgpdshield/lgpd-shield/internal/logger"
	"github.com/lgpdshield/lgpd-shield/internal/redact"
)

// patternFile is the standalone pattern-set format for the scrub CLI,
// mirroring the redaction section of the server configuration.
type patternFile struct {
	IncludeDefaults *bool                            `yaml:"include_defaults"`
	Rules           []redact.RuleConfig              `yaml:"rules"`
	Operators       map[string]redact.OperatorConfig `yaml:"operators"`
}

func main() {
	var (
		inputFile    = flag.String("input", "", "Input dataset file (CSV, Parquet, or JSONL)")
		outputFile   = flag.String("output", "", "Output file (default: <input>.scrubbed.<ext>)")
		patternsFile = flag.String("patterns", "", "YAML pattern-set file (default: built-in patterns)")
		batchSize    = flag.Int("batch-size", 1000, "Batch size for processing")
		workers      = flag.Int("workers", 4, "Number of worker goroutines")
		noValidate   = flag.Bool("no-validate", false, "Skip record validation")
		logLevel     = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input dataset.csv --batch-size 500\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input dataset.parquet --workers 8\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input dataset.jsonl --patterns patterns.yaml\n", os.Args[0])
		os.Exit(1)
	}

	output := *outputFile
	if output == "" {
		ext := filepath.Ext(*inputFile)
		output = strings.TrimSuffix(*inputFile, ext) + ".scrubbed" + ext
	}

	log, err := logger.New(logger.Config{Level: *logLevel, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	engine, warnings, err := buildEngine(*patternsFile, log.Logger)
	if err != nil {
		log.Fatal("Failed to build redaction engine", zap.Error(err))
	}
	for _, warning := range warnings {
		log.Warn("Pattern configuration warning", zap.String("warning", warning))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling scrub...")
		cancel()
	}()

	scrubber := batch.NewScrubber(engine, &batch.Config{
		BatchSize:      *batchSize,
		WorkerCount:    *workers,
		ValidateData:   !*noValidate,
		ProgressReport: 1000,
	}, log.WithComponent("batch").Logger)

	result, err := scrubber.ProcessFile(ctx, *inputFile, output)
	if err != nil {
		log.Fatal("Dataset scrub failed", zap.Error(err))
	}

	log.Info("Scrub summary",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("scrubbed_ok", result.ScrubbedOK),
		zap.Int64("failed", result.Failed),
		zap.Int64("skipped", result.Skipped),
		zap.Any("findings", result.Findings),
		zap.String("output", output))

	if result.Failed > 0 {
		os.Exit(2)
	}
}

// buildEngine assembles the engine from an optional YAML pattern set.
func buildEngine(patternsPath string, log *zap.Logger) (*redact.Engine, []string, error) {
	if patternsPath == "" {
		engine, err := redact.NewEngine(redact.DefaultRegistry(), redact.DefaultOperators(), log)
		return engine, nil, err
	}

	data, err := os.ReadFile(patternsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read pattern file: %w", err)
	}

	var patterns patternFile
	if err := yaml.Unmarshal(data, &patterns); err != nil {
		return nil, nil, fmt.Errorf("failed to parse pattern file: %w", err)
	}

	includeDefaults := true
	if patterns.IncludeDefaults != nil {
		includeDefaults = *patterns.IncludeDefaults
	}

	return redact.BuildEngine(patterns.Rules, patterns.Operators, includeDefaults, log)
}
