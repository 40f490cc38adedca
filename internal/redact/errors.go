package redact

import "errors"

var (
	// ErrConfiguration indicates an invalid pattern or operator
	// configuration. The engine refuses to start with a broken setup.
	ErrConfiguration = errors.New("invalid redaction configuration")

	// ErrMissingOperator indicates an entity type with no operator config
	// and no default. The affected call fails closed: matched text is
	// never emitted unredacted.
	ErrMissingOperator = errors.New("no redaction operator configured")

	// ErrMalformedInput indicates input that is not valid UTF-8 text.
	ErrMalformedInput = errors.New("input is not valid UTF-8 text")
)
