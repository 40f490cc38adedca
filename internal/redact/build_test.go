package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildEngine(t *testing.T) {
	t.Run("DefaultsOnly", func(t *testing.T) {
		engine, warnings, err := BuildEngine(nil, nil, true, zap.NewNop())
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.NotEmpty(t, engine.Registry().EntityTypes())
	})

	t.Run("CustomRuleAndOperator", func(t *testing.T) {
		engine, warnings, err := BuildEngine(
			[]RuleConfig{{EntityType: "MATRICULA", Regex: `MAT-\d{6}`, Score: 0.95}},
			map[string]OperatorConfig{"MATRICULA": {Type: "replace", NewValue: "[MATRICULA PROTEGIDA]"}},
			true, zap.NewNop(),
		)
		require.NoError(t, err)
		assert.Empty(t, warnings)

		res, err := engine.RedactText("funcionário MAT-123456")
		require.NoError(t, err)
		assert.Equal(t, "funcionário [MATRICULA PROTEGIDA]", res.Redacted)
	})

	t.Run("BadOptionalRuleIsWarning", func(t *testing.T) {
		engine, warnings, err := BuildEngine(
			[]RuleConfig{{EntityType: "QUEBRADO", Regex: `[`, Score: 0.5}},
			nil, true, zap.NewNop(),
		)
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "QUEBRADO")
		assert.NotNil(t, engine)
	})

	t.Run("BadRequiredRuleIsFatal", func(t *testing.T) {
		_, _, err := BuildEngine(
			[]RuleConfig{{EntityType: "QUEBRADO", Regex: `[`, Score: 0.5, Required: true}},
			nil, true, zap.NewNop(),
		)
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("OperatorOverride", func(t *testing.T) {
		engine, _, err := BuildEngine(nil,
			map[string]OperatorConfig{"CEP": {Type: "mask", CharsToMask: 5, MaskingChar: "#"}},
			true, zap.NewNop(),
		)
		require.NoError(t, err)
		res, err := engine.RedactText("CEP 01310-100")
		require.NoError(t, err)
		assert.Equal(t, "CEP #####-100", res.Redacted)
	})

	t.Run("UnknownOperatorKindIsFatal", func(t *testing.T) {
		_, _, err := BuildEngine(nil,
			map[string]OperatorConfig{"CEP": {Type: "shuffle"}},
			true, zap.NewNop(),
		)
		require.ErrorIs(t, err, ErrConfiguration)
	})
}
