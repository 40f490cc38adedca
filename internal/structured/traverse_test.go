package structured

import (
	"encoding/json"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lgpdshield/lgpd-shield/internal/redact"
)

func testWalker(t *testing.T, opts ...Option) *Walker {
	t.Helper()
	engine, err := redact.NewEngine(redact.DefaultRegistry(), redact.DefaultOperators(), zap.NewNop())
	require.NoError(t, err)
	return NewWalker(engine, opts...)
}

func TestRedactMapping(t *testing.T) {
	w := testWalker(t)

	value, err := DecodeJSON([]byte(`{"nome": "Maria Silva", "idade": 30}`))
	require.NoError(t, err)

	out, summary, err := w.Redact(value)
	require.NoError(t, err)

	encoded, err := EncodeJSON(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nome": "[NOME PROTEGIDO]", "idade": 30}`, string(encoded))
	assert.Equal(t, 1, summary.Redacted)
	assert.Equal(t, map[string]int{"NOME_COMPLETO": 1}, summary.Findings)
}

func TestMappingKeysUntouched(t *testing.T) {
	w := testWalker(t)

	// A key that itself looks sensitive is structural metadata.
	out, _, err := w.Redact(Mapping(map[string]Value{
		"cpf": String("123.456.789-01"),
	}))
	require.NoError(t, err)

	m, ok := out.Map()
	require.True(t, ok)
	_, hasKey := m["cpf"]
	assert.True(t, hasKey)
	text, _ := m["cpf"].Text()
	assert.Equal(t, "*********89-01", text)
}

func TestShapePreservation(t *testing.T) {
	w := testWalker(t)

	value, err := DecodeJSON([]byte(`{
		"paciente": {"nome": "Ana Clara Dias", "ativo": true, "idade": 41},
		"contatos": ["ana@example.com", null, 1199],
		"obs": "sem dados"
	}`))
	require.NoError(t, err)

	out, _, err := w.Redact(value)
	require.NoError(t, err)
	assert.Equal(t, shape(value), shape(out))
}

// shape renders container kinds and sizes, ignoring leaf content.
func shape(v Value) string {
	switch v.Kind() {
	case KindSequence:
		items, _ := v.Items()
		s := "["
		for _, item := range items {
			s += shape(item) + ","
		}
		return s + "]"
	case KindMapping:
		m, _ := v.Map()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := "{"
		for _, k := range keys {
			s += k + ":" + shape(m[k]) + ";"
		}
		return s + "}"
	default:
		return v.Kind().String()
	}
}

func TestScalarPassthrough(t *testing.T) {
	w := testWalker(t)
	out, summary, err := w.Redact(Scalar(json.Number("11987654321")))
	require.NoError(t, err)
	got, ok := out.ScalarValue()
	require.True(t, ok)
	assert.Equal(t, json.Number("11987654321"), got)
	assert.Zero(t, summary.Leaves)
}

func TestRedactTable(t *testing.T) {
	w := testWalker(t)

	columns := map[string][]interface{}{
		"idade":   {30, 45, 61},
		"contato": {"maria@example.com", "sem email", "jose@provedor.net"},
	}

	out, summary, err := w.RedactTable(columns)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{30, 45, 61}, out["idade"], "numeric column passes through typed")
	assert.Equal(t, "sem email", out["contato"][1])
	assert.NotContains(t, out["contato"][0], "maria@")
	assert.NotContains(t, out["contato"][2], "jose@")
	assert.Equal(t, map[string]int{"EMAIL": 2}, summary.Findings)
}

func TestRedactDocument(t *testing.T) {
	w := testWalker(t)

	doc := Document{Blocks: []Block{
		{Type: BlockParagraph, Text: "Paciente Bruno Costa Lima, CPF 123.456.789-01."},
		{Type: BlockTable, Cells: [][]string{
			{"campo", "valor"},
			{"cep", "01310-100"},
		}},
		{Type: BlockParagraph, Text: "Sem dados pessoais."},
	}}

	out, summary, err := w.RedactDocument(doc)
	require.NoError(t, err)
	require.Len(t, out.Blocks, 3)
	assert.Contains(t, out.Blocks[0].Text, "[NOME PROTEGIDO]")
	assert.NotContains(t, out.Blocks[0].Text, "Bruno")
	assert.Equal(t, "campo", out.Blocks[1].Cells[0][0])
	assert.Equal(t, "[CEP PROTEGIDO]", out.Blocks[1].Cells[1][1])
	assert.Equal(t, "Sem dados pessoais.", out.Blocks[2].Text)
	assert.Equal(t, 1, summary.Findings["CEP"])
}

func TestRedactDocumentUnknownBlock(t *testing.T) {
	w := testWalker(t)
	_, _, err := w.RedactDocument(Document{Blocks: []Block{{Type: "imagem"}}})
	require.ErrorIs(t, err, ErrStructuralMismatch)
}

func TestLeafFailurePolicies(t *testing.T) {
	bad := Sequence(String("ok"), String("inválido\xff\xfe"))

	t.Run("FailClosedAborts", func(t *testing.T) {
		w := testWalker(t)
		_, _, err := w.Redact(bad)
		require.ErrorIs(t, err, redact.ErrMalformedInput)
	})

	t.Run("MarkerOnErrorSubstitutes", func(t *testing.T) {
		w := testWalker(t, WithLeafPolicy(MarkerOnError))
		out, summary, err := w.Redact(bad)
		require.NoError(t, err)
		items, _ := out.Items()
		text, _ := items[1].Text()
		assert.Equal(t, redact.FailureMarker, text)
		assert.Len(t, summary.Warnings, 1)
	})
}

func TestParallelSequence(t *testing.T) {
	w := testWalker(t, WithWorkers(8))

	const rows = 100
	items := make([]Value, rows)
	for i := range items {
		items[i] = String(fmt.Sprintf("linha %d, email pessoa%d@example.com", i, i))
	}

	out, summary, err := w.Redact(Sequence(items...))
	require.NoError(t, err)

	got, _ := out.Items()
	require.Len(t, got, rows)
	for i, item := range got {
		text, _ := item.Text()
		assert.Contains(t, text, fmt.Sprintf("linha %d,", i), "results must reassemble positionally")
		assert.NotContains(t, text, fmt.Sprintf("pessoa%d@example", i))
	}
	assert.Equal(t, rows, summary.Leaves)
	assert.Equal(t, rows, summary.Findings["EMAIL"])
}

func TestFromInterfaceMismatch(t *testing.T) {
	type opaque struct{ x int }
	_, err := FromInterface(opaque{x: 1})
	require.ErrorIs(t, err, ErrStructuralMismatch)

	_, err = FromInterface([]interface{}{"ok", opaque{}})
	require.ErrorIs(t, err, ErrStructuralMismatch)
}
