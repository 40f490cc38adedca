package batch

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lgpdshield/lgpd-shield/internal/redact"
)

func newTestScrubber(t *testing.T) *Scrubber {
	t.Helper()
	engine, err := redact.NewEngine(redact.DefaultRegistry(), redact.DefaultOperators(), zap.NewNop())
	require.NoError(t, err)
	return NewScrubber(engine, &Config{
		BatchSize:      2,
		WorkerCount:    2,
		ValidateData:   true,
		ProgressReport: 0,
	}, zap.NewNop())
}

func TestDetectFileFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFileFormat("data.csv"))
	assert.Equal(t, FormatParquet, DetectFileFormat("data.parquet"))
	assert.Equal(t, FormatJSONL, DetectFileFormat("data.jsonl"))
	assert.Equal(t, FormatJSONL, DetectFileFormat("data.json"))
	assert.Equal(t, FormatCSV, DetectFileFormat("data.unknown"))
}

func TestScrubCSVFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.csv")
	output := filepath.Join(dir, "output.csv")

	content := "text,label_text,label\n" +
		"\"Meu CPF é 123.456.789-01\",reclamacao,1\n" +
		"\"sem dados pessoais aqui\",elogio,0\n" +
		"\"contato: maria@example.com\",contato,1\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0o644))

	scrubber := newTestScrubber(t)
	result, err := scrubber.ProcessFile(context.Background(), input, output)
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.TotalRecords)
	assert.Equal(t, int64(3), result.ScrubbedOK)
	assert.Equal(t, int64(0), result.Failed)
	assert.Equal(t, 1, result.Findings["CPF"])
	assert.Equal(t, 1, result.Findings["EMAIL"])

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + 3 rows

	assert.Equal(t, []string{"text", "label_text", "label"}, rows[0])
	assert.Equal(t, "Meu CPF é *********89-01", rows[1][0])
	assert.Equal(t, "reclamacao", rows[1][1])
	assert.Equal(t, "1", rows[1][2])
	assert.Equal(t, "sem dados pessoais aqui", rows[2][0])
	assert.NotContains(t, rows[3][0], "maria@example.com")
}

func TestScrubCSVSkipsInvalidRows(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.csv")
	output := filepath.Join(dir, "output.csv")

	content := "text,label_text,label\n" +
		"\"\",vazio,0\n" +
		"\"texto valido\",ok,1\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0o644))

	scrubber := newTestScrubber(t)
	result, err := scrubber.ProcessFile(context.Background(), input, output)
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.TotalRecords)
	assert.Equal(t, int64(1), result.Skipped)
}

func TestScrubJSONLFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.jsonl")
	output := filepath.Join(dir, "output.jsonl")

	content := `{"text": "CEP 01310-100, São Paulo", "label_text": "endereco", "label": 1}` + "\n" +
		`{"text": "nada sensivel", "label_text": "outro", "label": 0}` + "\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0o644))

	scrubber := newTestScrubber(t)
	result, err := scrubber.ProcessFile(context.Background(), input, output)
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.TotalRecords)
	assert.Equal(t, 1, result.Findings["CEP"])

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()

	decoder := json.NewDecoder(f)
	var first, second Record
	require.NoError(t, decoder.Decode(&first))
	require.NoError(t, decoder.Decode(&second))

	assert.NotContains(t, first.Text, "01310-100")
	assert.Equal(t, "endereco", first.LabelText)
	assert.Equal(t, 1, first.Label)
	assert.Equal(t, "nada sensivel", second.Text)
}

func TestScrubJSONLSkipsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.jsonl")
	output := filepath.Join(dir, "output.jsonl")

	// The middle line is a truncated object. It must cost exactly one
	// skipped row, not stall the whole file.
	content := `{"text": "primeira linha valida", "label_text": "ok", "label": 0}` + "\n" +
		`{"text": "objeto truncado` + "\n" +
		`{"text": "terceira linha valida", "label_text": "ok", "label": 1}` + "\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0o644))

	scrubber := newTestScrubber(t)
	done := make(chan struct{})
	var result *ScrubResult
	var err error
	go func() {
		defer close(done)
		result, err = scrubber.ProcessFile(context.Background(), input, output)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ProcessFile did not return; malformed line stalled the reader")
	}
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.TotalRecords)
	assert.Equal(t, int64(2), result.ScrubbedOK)
	assert.Equal(t, int64(1), result.Skipped)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()

	decoder := json.NewDecoder(f)
	var first, second Record
	require.NoError(t, decoder.Decode(&first))
	require.NoError(t, decoder.Decode(&second))
	assert.Equal(t, "primeira linha valida", first.Text)
	assert.Equal(t, "terceira linha valida", second.Text)
}

func TestScrubHonorsCancelledContext(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.jsonl")
	output := filepath.Join(dir, "output.jsonl")

	content := `{"text": "linha", "label_text": "ok", "label": 0}` + "\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scrubber := newTestScrubber(t)
	_, err := scrubber.ProcessFile(ctx, input, output)
	require.ErrorIs(t, err, context.Canceled)
}

func TestScrubPreservesRowOrder(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.jsonl")
	output := filepath.Join(dir, "output.jsonl")

	in, err := os.Create(input)
	require.NoError(t, err)
	encoder := json.NewEncoder(in)
	for i := 0; i < 50; i++ {
		require.NoError(t, encoder.Encode(Record{
			Text:      "linha sem dados",
			LabelText: "l" + string(rune('a'+i%26)),
			Label:     i % 2,
		}))
	}
	require.NoError(t, in.Close())

	scrubber := newTestScrubber(t)
	result, err := scrubber.ProcessFile(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, int64(50), result.TotalRecords)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()

	decoder := json.NewDecoder(f)
	for i := 0; i < 50; i++ {
		var record Record
		require.NoError(t, decoder.Decode(&record))
		assert.Equal(t, "l"+string(rune('a'+i%26)), record.LabelText)
		assert.Equal(t, i%2, record.Label)
	}
}
