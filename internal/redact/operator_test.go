package redact

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskApply(t *testing.T) {
	tests := []struct {
		name string
		mask Mask
		in   string
		want string
	}{
		{"FromStart", Mask{CharsToMask: 9, MaskingChar: '*'}, "123.456.789-01", "*********89-01"},
		{"FromEnd", Mask{CharsToMask: 4, MaskingChar: '#', FromEnd: true}, "12345678", "1234####"},
		{"ZeroIsNoOp", Mask{CharsToMask: 0, MaskingChar: '*'}, "segredo", "segredo"},
		{"CountExceedsLength", Mask{CharsToMask: 99, MaskingChar: '*'}, "curto", "*****"},
		{"ExactLength", Mask{CharsToMask: 5, MaskingChar: '*'}, "curto", "*****"},
		{"NegativeKeepsTrailingWindow", Mask{CharsToMask: -8, MaskingChar: '*'}, "maria@example.com", "*********mple.com"},
		{"NegativeWindowLargerThanText", Mask{CharsToMask: -10, MaskingChar: '*'}, "a@b.co", "a@b.co"},
		{"MultibyteRunes", Mask{CharsToMask: 3, MaskingChar: '*'}, "João Silva", "***o Silva"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.mask.Apply(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, utf8.RuneCountInString(tt.in), utf8.RuneCountInString(got),
				"masking must preserve rune length")
		})
	}
}

func TestReplaceApply(t *testing.T) {
	op := Replace{NewValue: "[NOME PROTEGIDO]"}
	assert.Equal(t, "[NOME PROTEGIDO]", op.Apply("Maria Silva"))
	assert.Equal(t, "[NOME PROTEGIDO]", op.Apply(""))
}

func TestOperatorsLookup(t *testing.T) {
	t.Run("ExactThenDefault", func(t *testing.T) {
		ops := NewOperators(map[string]Operator{
			"CPF": Mask{CharsToMask: 9, MaskingChar: '*'},
		}, Replace{NewValue: "[DADO PROTEGIDO]"})

		op, err := ops.For("CPF")
		require.NoError(t, err)
		assert.IsType(t, Mask{}, op)

		op, err = ops.For("DESCONHECIDO")
		require.NoError(t, err)
		assert.Equal(t, Replace{NewValue: "[DADO PROTEGIDO]"}, op)
	})

	t.Run("FailsClosedWithoutDefault", func(t *testing.T) {
		ops := NewOperators(nil, nil)
		_, err := ops.For("CPF")
		require.ErrorIs(t, err, ErrMissingOperator)
	})
}

func TestOperatorConfigCompile(t *testing.T) {
	t.Run("Mask", func(t *testing.T) {
		op, err := OperatorConfig{Type: "mask", CharsToMask: 4, MaskingChar: "#", FromEnd: true}.Compile()
		require.NoError(t, err)
		assert.Equal(t, Mask{CharsToMask: 4, MaskingChar: '#', FromEnd: true}, op)
	})

	t.Run("MaskDefaultsToAsterisk", func(t *testing.T) {
		op, err := OperatorConfig{Type: "mask", CharsToMask: 2}.Compile()
		require.NoError(t, err)
		assert.Equal(t, Mask{CharsToMask: 2, MaskingChar: '*'}, op)
	})

	t.Run("MultiCharMaskingCharRejected", func(t *testing.T) {
		_, err := OperatorConfig{Type: "mask", MaskingChar: "**"}.Compile()
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("Replace", func(t *testing.T) {
		op, err := OperatorConfig{Type: "replace", NewValue: "[X]"}.Compile()
		require.NoError(t, err)
		assert.Equal(t, Replace{NewValue: "[X]"}, op)
	})

	t.Run("ReplaceRequiresValue", func(t *testing.T) {
		_, err := OperatorConfig{Type: "replace"}.Compile()
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("UnknownKindRejected", func(t *testing.T) {
		_, err := OperatorConfig{Type: "rot13"}.Compile()
		require.ErrorIs(t, err, ErrConfiguration)
	})
}
