package diagnosis

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed or missing input field. Nothing was
// sent to the model and nothing was stored.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrUnavailable means no diagnosis could be produced: generation retries
// were exhausted or the model output stayed malformed after the single
// repair attempt. Distinct from a storage failure, where a diagnosis was
// produced but could not be saved.
var ErrUnavailable = errors.New("diagnosis unavailable")
