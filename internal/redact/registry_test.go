package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegister(t *testing.T) {
	t.Run("ValidPattern", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register("CPF", `\d{3}\.?\d{3}\.?\d{3}-?\d{2}`, 0.85))
		require.Len(t, r.Patterns(), 1)
		assert.Equal(t, "CPF", r.Patterns()[0].EntityType)
	})

	t.Run("BadRegex", func(t *testing.T) {
		r := NewRegistry()
		err := r.Register("BROKEN", `[unclosed`, 0.5)
		require.ErrorIs(t, err, ErrConfiguration)
		assert.Empty(t, r.Patterns())
	})

	t.Run("EmptyMatchablePattern", func(t *testing.T) {
		r := NewRegistry()
		err := r.Register("STAR", `a*`, 0.5)
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("EmptyEntityType", func(t *testing.T) {
		r := NewRegistry()
		require.ErrorIs(t, r.Register("", `\d+`, 0.5), ErrConfiguration)
	})

	t.Run("ScoreOutOfRange", func(t *testing.T) {
		r := NewRegistry()
		require.ErrorIs(t, r.Register("X", `\d+`, 1.5), ErrConfiguration)
		require.ErrorIs(t, r.Register("X", `\d+`, -0.1), ErrConfiguration)
	})

	t.Run("DuplicateIsNoOp", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register("CPF", `\d{11}`, 0.85))
		require.NoError(t, r.Register("CPF", `\d{11}`, 0.85))
		assert.Len(t, r.Patterns(), 1)
	})

	t.Run("SameEntityTypeMultiplePatterns", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register("NOME", `foo`, 0.8))
		require.NoError(t, r.Register("NOME", `bar`, 0.9))
		assert.Len(t, r.Patterns(), 2)
		assert.Equal(t, []string{"NOME"}, r.EntityTypes())
	})
}

func TestRegistryFingerprint(t *testing.T) {
	a := NewRegistry()
	require.NoError(t, a.Register("CPF", `\d{11}`, 0.85))

	b := NewRegistry()
	require.NoError(t, b.Register("CPF", `\d{11}`, 0.85))
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	require.NoError(t, b.Register("EMAIL", `\S+@\S+`, 0.9))
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestDefaultRegistryCompiles(t *testing.T) {
	r := DefaultRegistry()
	assert.NotEmpty(t, r.Patterns())

	// Every built-in entity type must resolve to an operator.
	ops := DefaultOperators()
	for _, entityType := range r.EntityTypes() {
		_, err := ops.For(entityType)
		assert.NoError(t, err, entityType)
	}
}
