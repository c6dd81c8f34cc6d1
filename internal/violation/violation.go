package violation

import (
	"fmt"
	"time"
)

// Violation is one rule-evaluation outcome for a tick.
type Violation struct {
	Message string
	Code    Code
	// Context records the fields compared and their thresholds, e.g.
	// "{truck.speed: 131.0, navigation.speedLimit: 100, tolerance: 10}".
	Context string
}

// New builds a Violation with a formatted context string.
func New(code Code, message string, contextFormat string, args ...any) Violation {
	return Violation{
		Message: message,
		Code:    code,
		Context: fmt.Sprintf(contextFormat, args...),
	}
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

// Citation is a violation that has been scored and must be handed to the
// logging and ticketing collaborators.
type Citation struct {
	Time   time.Time
	Points int
	Violation
}
