package batch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/lgpdshield/lgpd-shield/internal/redact"
)

const maxRecordedErrors = 10

// Scrubber rewrites labeled text datasets with every detected entity
// redacted. Rows whose text cannot be redacted are dropped from the
// output, never copied through as-is.
type Scrubber struct {
	engine *redact.Engine
	config *Config
	logger *zap.Logger
}

// NewScrubber creates a new dataset scrubber
func NewScrubber(engine *redact.Engine, config *Config, logger *zap.Logger) *Scrubber {
	if config == nil {
		config = DefaultConfig()
	}
	return &Scrubber{
		engine: engine,
		config: config,
		logger: logger,
	}
}

// ProcessFile scrubs a dataset file (CSV, Parquet, or JSONL) into
// outputPath, keeping the input format.
func (s *Scrubber) ProcessFile(ctx context.Context, inputPath, outputPath string) (*ScrubResult, error) {
	format := DetectFileFormat(inputPath)
	s.logger.Info("Starting dataset scrub",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("format", string(format)),
		zap.Int("batch_size", s.config.BatchSize),
		zap.Int("workers", s.config.WorkerCount))

	in, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	reader, err := newRecordReader(format, in)
	if err != nil {
		return nil, err
	}
	writer, err := newRecordWriter(format, out)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &ScrubResult{Findings: make(map[string]int)}

	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		batch, err := s.readBatch(ctx, reader, result)
		if err != nil {
			return result, fmt.Errorf("failed to read batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		scrubbed := s.scrubBatch(batch, result)
		for _, record := range scrubbed {
			if err := writer.Write(record); err != nil {
				return result, fmt.Errorf("failed to write record: %w", err)
			}
		}

		if s.config.ProgressReport > 0 && result.TotalRecords%int64(s.config.ProgressReport) == 0 {
			s.reportProgress(result, start)
		}
	}

	if err := writer.Close(); err != nil {
		return result, fmt.Errorf("failed to finalize output file: %w", err)
	}

	result.Duration = time.Since(start)
	s.logger.Info("Dataset scrub completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("scrubbed_ok", result.ScrubbedOK),
		zap.Int64("failed", result.Failed),
		zap.Int64("skipped", result.Skipped),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// readBatch pulls up to BatchSize valid records from the reader. It
// checks for cancellation per record: a file full of unreadable rows
// must still honor the context, not just the between-batches check.
func (s *Scrubber) readBatch(ctx context.Context, reader recordReader, result *ScrubResult) ([]*Record, error) {
	var batch []*Record
	for len(batch) < s.config.BatchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Warn("Failed to read record", zap.Error(err))
			result.Skipped++
			continue
		}
		if !s.validateRecord(record) {
			result.Skipped++
			continue
		}
		batch = append(batch, record)
	}
	return batch, nil
}

// scrubBatch redacts a batch with a bounded worker pool, preserving
// input order. Failed rows come back nil.
func (s *Scrubber) scrubBatch(batch []*Record, result *ScrubResult) []*Record {
	type rowResult struct {
		record   *Record
		findings []redact.Finding
		err      error
	}

	workers := s.config.WorkerCount
	if workers < 1 {
		workers = 1
	}
	if workers > len(batch) {
		workers = len(batch)
	}

	results := make([]rowResult, len(batch))
	indices := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				redacted, err := s.engine.RedactText(batch[i].Text)
				if err != nil {
					results[i] = rowResult{err: err}
					continue
				}
				results[i] = rowResult{
					record: &Record{
						Text:      redacted.Redacted,
						LabelText: batch[i].LabelText,
						Label:     batch[i].Label,
					},
					findings: redacted.Findings,
				}
			}
		}()
	}

	for i := range batch {
		indices <- i
	}
	close(indices)
	wg.Wait()

	scrubbed := make([]*Record, 0, len(batch))
	for i, row := range results {
		result.TotalRecords++
		if row.err != nil {
			result.Failed++
			if len(result.Errors) < maxRecordedErrors {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", result.TotalRecords-1, row.err))
			}
			s.logger.Warn("Row dropped: redaction failed",
				zap.Int("batch_index", i),
				zap.Error(row.err))
			continue
		}
		result.ScrubbedOK++
		for _, f := range row.findings {
			result.Findings[f.EntityType] += f.Count
		}
		scrubbed = append(scrubbed, row.record)
	}
	return scrubbed
}

// validateRecord validates a data record
func (s *Scrubber) validateRecord(record *Record) bool {
	if !s.config.ValidateData {
		return true
	}
	if strings.TrimSpace(record.Text) == "" {
		s.logger.Debug("Invalid record: empty text")
		return false
	}
	if record.Label != 0 && record.Label != 1 {
		s.logger.Debug("Invalid record: invalid label", zap.Int("label", record.Label))
		return false
	}
	if len(record.Text) > 100000 {
		s.logger.Debug("Invalid record: text too long", zap.Int("length", len(record.Text)))
		return false
	}
	return true
}

// reportProgress reports current processing progress
func (s *Scrubber) reportProgress(result *ScrubResult, start time.Time) {
	elapsed := time.Since(start)
	rate := float64(result.TotalRecords) / elapsed.Seconds()
	s.logger.Info("Scrub progress",
		zap.Int64("records_processed", result.TotalRecords),
		zap.Int64("scrubbed_ok", result.ScrubbedOK),
		zap.Int64("failed", result.Failed),
		zap.Float64("rate_per_sec", rate),
		zap.Duration("elapsed", elapsed))
}

// recordReader yields dataset rows until io.EOF.
type recordReader interface {
	Read() (*Record, error)
}

// recordWriter persists scrubbed rows. Close flushes any buffered state.
type recordWriter interface {
	Write(*Record) error
	Close() error
}

func newRecordReader(format FileFormat, r io.Reader) (recordReader, error) {
	switch format {
	case FormatCSV:
		return newCSVReader(r)
	case FormatJSONL:
		return newJSONLReader(r), nil
	case FormatParquet:
		file, ok := r.(*os.File)
		if !ok {
			return nil, fmt.Errorf("parquet input requires a file")
		}
		return &parquetReader{reader: parquet.NewReader(file)}, nil
	default:
		return nil, fmt.Errorf("unsupported file format: %s", format)
	}
}

func newRecordWriter(format FileFormat, w io.Writer) (recordWriter, error) {
	switch format {
	case FormatCSV:
		return newCSVWriter(w)
	case FormatJSONL:
		return &jsonlWriter{encoder: json.NewEncoder(w)}, nil
	case FormatParquet:
		return &parquetWriter{writer: parquet.NewWriter(w)}, nil
	default:
		return nil, fmt.Errorf("unsupported file format: %s", format)
	}
}

type csvReader struct {
	reader *csv.Reader
}

func newCSVReader(r io.Reader) (*csvReader, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3 // text, label_text, label

	// Skip header
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return &csvReader{reader: reader}, nil
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	return &csvReader{reader: reader}, nil
}

func (c *csvReader) Read() (*Record, error) {
	row, err := c.reader.Read()
	if err != nil {
		return nil, err
	}
	label := 0
	if row[2] == "1" || strings.EqualFold(row[2], "true") {
		label = 1
	}
	return &Record{
		Text:      strings.TrimSpace(row[0]),
		LabelText: strings.TrimSpace(row[1]),
		Label:     label,
	}, nil
}

type csvWriter struct {
	writer *csv.Writer
}

func newCSVWriter(w io.Writer) (*csvWriter, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"text", "label_text", "label"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return &csvWriter{writer: writer}, nil
}

func (c *csvWriter) Write(record *Record) error {
	return c.writer.Write([]string{record.Text, record.LabelText, strconv.Itoa(record.Label)})
}

func (c *csvWriter) Close() error {
	c.writer.Flush()
	return c.writer.Error()
}

// jsonlReader reads one JSON object per line. A stream decoder would
// stall on a malformed object (it never advances past a syntax error), so
// each line is scanned and unmarshaled independently and a bad line costs
// exactly that line.
type jsonlReader struct {
	scanner *bufio.Scanner
	line    int
}

func newJSONLReader(r io.Reader) *jsonlReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &jsonlReader{scanner: scanner}
}

func (j *jsonlReader) Read() (*Record, error) {
	for j.scanner.Scan() {
		j.line++
		line := bytes.TrimSpace(j.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", j.line, err)
		}
		return &record, nil
	}
	if err := j.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

type jsonlWriter struct {
	encoder *json.Encoder
}

func (j *jsonlWriter) Write(record *Record) error {
	return j.encoder.Encode(record)
}

func (j *jsonlWriter) Close() error {
	return nil
}

type parquetReader struct {
	reader *parquet.Reader
}

func (p *parquetReader) Read() (*Record, error) {
	var record Record
	if err := p.reader.Read(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

type parquetWriter struct {
	writer *parquet.Writer
}

func (p *parquetWriter) Write(record *Record) error {
	return p.writer.Write(record)
}

func (p *parquetWriter) Close() error {
	return p.writer.Close()
}
