package feedback

import "errors"

// Error taxonomy shared by the feedback stores. Handlers branch on these to
// pick status codes; upstream generation failures never surface here because
// they degrade to deterministic mock output instead.
var (
	// ErrNotFound means a referenced record is absent from the store.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation means the input is malformed, e.g. an inconsistent
	// scope/field combination on a preference.
	ErrValidation = errors.New("validation failed")
)
