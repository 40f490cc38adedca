package redact

// The canonical Brazilian LGPD pattern table. This is the single source of
// truth for built-in entity types; deployments extend or override it
// through configuration rather than by forking the table.

const fullName = `\p{Lu}\p{Ll}+(?:\s+(?:d[aeo]s?\s+)?\p{Lu}\p{Ll}+)+`

type defaultPattern struct {
	entityType string
	expr       string
	score      float64
}

var defaultPatterns = []defaultPattern{
	{"CPF", `\d{3}\.?\d{3}\.?\d{3}-?\d{2}`, 0.85},
	{"CNPJ", `\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}`, 0.85},
	{"RG", `\d{1,2}\.\d{3}\.\d{3}-?[\dXx]`, 0.60},
	// Scores above CPF and CNPJ: an unseparated 16-digit card number also
	// matches the CPF pattern over its first 11 digits, and the longer,
	// more specific span must win the overlap.
	{"CARTAO_CREDITO", `\d{4}[ .-]?\d{4}[ .-]?\d{4}[ .-]?\d{4}`, 0.90},
	{"EMAIL", `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`, 0.90},
	{"TELEFONE", `(?:\+55\s?)?(?:\(\d{2}\)\s?|\d{2}\s)?9?\d{4}[-\s]\d{4}`, 0.70},
	{"CEP", `\d{5}-\d{3}`, 0.70},
	{"DATA_NASCIMENTO", `\d{2}/\d{2}/\d{4}`, 0.60},
	{"NOME_COMPLETO", fullName, 0.85},
	// Contextual name patterns score above the bare one so the resolver
	// keeps the larger, more specific span.
	{"NOME_COMPLETO", `(?i:dr|dra|sr|sra|prof|eng)\.\s*` + fullName, 0.90},
	{"FILIACAO", `(?i:m[ãa]e|pai|filia[çc][ãa]o)\s*:\s*` + fullName, 0.90},
}

// DefaultRegistry builds a registry with the built-in pattern table.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range defaultPatterns {
		// The table is tested; a registration failure here is a bug.
		if err := r.Register(p.entityType, p.expr, p.score); err != nil {
			panic(err)
		}
	}
	return r
}

// DefaultOperatorConfigs returns the built-in operator table in its
// serializable form, keyed by entity type plus the "default" fallback.
func DefaultOperatorConfigs() map[string]OperatorConfig {
	return map[string]OperatorConfig{
		"CPF":            {Type: "mask", CharsToMask: 9, MaskingChar: "*"},
		"CNPJ":           {Type: "replace", NewValue: "[CNPJ PROTEGIDO]"},
		"RG":             {Type: "replace", NewValue: "[RG PROTEGIDO]"},
		"CARTAO_CREDITO": {Type: "mask", CharsToMask: -4, MaskingChar: "*"},
		"EMAIL":          {Type: "mask", CharsToMask: -8, MaskingChar: "*"},
		"TELEFONE":       {Type: "replace", NewValue: "[TELEFONE PROTEGIDO]"},
		"CEP":            {Type: "replace", NewValue: "[CEP PROTEGIDO]"},
		"DATA_NASCIMENTO": {Type: "replace", NewValue: "[DATA PROTEGIDA]"},
		"NOME_COMPLETO":   {Type: "replace", NewValue: "[NOME PROTEGIDO]"},
		"FILIACAO":        {Type: "replace", NewValue: "[NOME PROTEGIDO]"},
		"default":         {Type: "replace", NewValue: "[DADO PROTEGIDO]"},
	}
}

// CompileOperators turns a config map into an operator set. The entry
// keyed "default" becomes the fallback.
func CompileOperators(configs map[string]OperatorConfig) (Operators, error) {
	byType := make(map[string]Operator, len(configs))
	var def Operator
	for entityType, cfg := range configs {
		op, err := cfg.Compile()
		if err != nil {
			return Operators{}, err
		}
		if entityType == "default" {
			def = op
			continue
		}
		byType[entityType] = op
	}
	return NewOperators(byType, def), nil
}

// DefaultOperators builds the built-in operator set.
func DefaultOperators() Operators {
	ops, err := CompileOperators(DefaultOperatorConfigs())
	if err != nil {
		panic(err)
	}
	return ops
}
