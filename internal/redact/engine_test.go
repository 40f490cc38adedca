package redact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultRegistry(), DefaultOperators(), zap.NewNop())
	require.NoError(t, err)
	return e
}

func TestNewEngine(t *testing.T) {
	t.Run("EmptyRegistryRejected", func(t *testing.T) {
		_, err := NewEngine(NewRegistry(), DefaultOperators(), zap.NewNop())
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("UncoveredEntityTypeRejected", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register("ORFAO", `\d{5}`, 0.5))
		_, err := NewEngine(r, NewOperators(nil, nil), zap.NewNop())
		require.ErrorIs(t, err, ErrMissingOperator)
	})
}

func TestRedactText(t *testing.T) {
	e := defaultEngine(t)

	t.Run("CPFMasked", func(t *testing.T) {
		res, err := e.RedactText("CPF: 123.456.789-01")
		require.NoError(t, err)
		assert.Equal(t, "CPF: *********89-01", res.Redacted)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, "CPF", res.Findings[0].EntityType)
		assert.Equal(t, 1, res.Findings[0].Count)
	})

	t.Run("EmptyString", func(t *testing.T) {
		res, err := e.RedactText("")
		require.NoError(t, err)
		assert.Equal(t, "", res.Redacted)
		assert.Empty(t, res.Findings)
	})

	t.Run("NoMatchesIsIdentity", func(t *testing.T) {
		in := "texto sem dados pessoais"
		res, err := e.RedactText(in)
		require.NoError(t, err)
		assert.Equal(t, in, res.Redacted)
	})

	t.Run("InvalidUTF8Rejected", func(t *testing.T) {
		_, err := e.RedactText("ok\xff\xfe")
		require.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("OverlappingNamePatterns", func(t *testing.T) {
		// The titled-name pattern outranks the bare full-name pattern, so
		// one replacement covers the whole span, title included.
		res, err := e.RedactText("Dra. Ana Paula Souza")
		require.NoError(t, err)
		assert.Equal(t, "[NOME PROTEGIDO]", res.Redacted)
		assert.Equal(t, 1, strings.Count(res.Redacted, "[NOME PROTEGIDO]"))
	})

	t.Run("FiliacaoContext", func(t *testing.T) {
		res, err := e.RedactText("mãe: Maria das Dores Silva, nascida em 01/02/1960")
		require.NoError(t, err)
		assert.NotContains(t, res.Redacted, "Maria")
		assert.Contains(t, res.Redacted, "[NOME PROTEGIDO]")
		assert.Contains(t, res.Redacted, "[DATA PROTEGIDA]")
	})

	t.Run("EmailKeepsTrailingWindow", func(t *testing.T) {
		res, err := e.RedactText("contato: maria@example.com")
		require.NoError(t, err)
		assert.Equal(t, "contato: *********mple.com", res.Redacted)
	})

	t.Run("AlreadyRedactedIsStable", func(t *testing.T) {
		// Replacement literals do not match any pattern, so redacting
		// redacted output is the identity.
		first, err := e.RedactText("Maria Silva, CEP 01310-100, nascida em 02/03/1990")
		require.NoError(t, err)
		second, err := e.RedactText(first.Redacted)
		require.NoError(t, err)
		assert.Equal(t, first.Redacted, second.Redacted)
		assert.Empty(t, second.Findings)
	})

	t.Run("UnseparatedCardNumberWins", func(t *testing.T) {
		// A bare 16-digit card number also matches the CPF pattern over
		// its first 11 digits; the card pattern's higher score must keep
		// the full span so no digits leak past the mask.
		res, err := e.RedactText("cartão: 4111111111111111")
		require.NoError(t, err)
		assert.Equal(t, "cartão: ************1111", res.Redacted)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, "CARTAO_CREDITO", res.Findings[0].EntityType)
	})

	t.Run("MultipleEntityTypes", func(t *testing.T) {
		res, err := e.RedactText("João Pedro Alves, email joao@provedor.com.br, CEP 04567-890")
		require.NoError(t, err)
		assert.Contains(t, res.Redacted, "[NOME PROTEGIDO]")
		assert.Contains(t, res.Redacted, "[CEP PROTEGIDO]")
		assert.NotContains(t, res.Redacted, "04567-890")
		assert.NotContains(t, res.Redacted, "joao@provedor")
	})
}

func TestRedactTextDeterministic(t *testing.T) {
	e := defaultEngine(t)
	in := "Dra. Ana Paula Souza, CPF 123.456.789-01, mãe: Clara Souza"
	first, err := e.RedactText(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := e.RedactText(in)
		require.NoError(t, err)
		assert.Equal(t, first.Redacted, again.Redacted)
	}
}
