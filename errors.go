package optimodel

import (
	"fmt"
	"strings"
)

// ValidationError reports a structurally invalid request. The HTTP layer maps
// it to 422; every other pipeline error maps to 503.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// NoAvailableProviderError is terminal: planning produced candidates but
// every one failed at dispatch. It carries each candidate's error in attempt
// order.
type NoAvailableProviderError struct {
	Model  string
	Errors []error
}

func (e *NoAvailableProviderError) Error() string {
	causes := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		causes[i] = err.Error()
	}
	return fmt.Sprintf("no available provider for model %s: [%s]", e.Model, strings.Join(causes, "; "))
}

func (e *NoAvailableProviderError) Unwrap() []error { return e.Errors }
