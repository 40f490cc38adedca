package batch

import (
	"strings"
	"time"
)

// Record is a single row of a labeled text dataset. Text carries the
// payload to scrub; the label columns pass through untouched.
type Record struct {
	Text      string `csv:"text" parquet:"text" json:"text"`
	LabelText string `csv:"label_text" parquet:"label_text" json:"label_text"`
	Label     int    `csv:"label" parquet:"label" json:"label"`
}

// ScrubResult represents the outcome of scrubbing one dataset file.
type ScrubResult struct {
	TotalRecords int64          `json:"total_records"`
	ScrubbedOK   int64          `json:"scrubbed_ok"`
	Failed       int64          `json:"failed"`
	Skipped      int64          `json:"skipped"`
	Findings     map[string]int `json:"findings,omitempty"`
	Duration     time.Duration  `json:"duration"`
	Errors       []string       `json:"errors,omitempty"`
}

// Config contains scrub pipeline configuration
type Config struct {
	BatchSize      int  `yaml:"batch_size" mapstructure:"batch_size"`           // 1000
	WorkerCount    int  `yaml:"worker_count" mapstructure:"worker_count"`       // 4
	ValidateData   bool `yaml:"validate_data" mapstructure:"validate_data"`     // true
	ProgressReport int  `yaml:"progress_report" mapstructure:"progress_report"` // 1000
}

// DefaultConfig returns the scrub pipeline defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      1000,
		WorkerCount:    4,
		ValidateData:   true,
		ProgressReport: 1000,
	}
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSONL   FileFormat = "jsonl"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch {
	case strings.HasSuffix(filename, ".csv"):
		return FormatCSV
	case strings.HasSuffix(filename, ".parquet"):
		return FormatParquet
	case strings.HasSuffix(filename, ".jsonl"), strings.HasSuffix(filename, ".json"):
		return FormatJSONL
	default:
		return FormatCSV
	}
}
