package engine

import (
	"fmt"
	"strings"
)

// GuardError reports a business rule that blocked a service, independent of
// the transition tables. Rule is a stable machine-readable name.
type GuardError struct {
	Rule    string
	Message string
}

func (e *GuardError) Error() string {
	return e.Message
}

// MisconfiguredDocumentTypeError blocks uploads against a document type with
// no accepted formats configured. The window fails closed rather than
// accepting arbitrary files.
type MisconfiguredDocumentTypeError struct {
	TypeCode string
}

func (e *MisconfiguredDocumentTypeError) Error() string {
	return fmt.Sprintf("document type %s has no accepted formats configured", e.TypeCode)
}

// ValidationClosedError rejects document changes once a validation is
// accepted.
type ValidationClosedError struct {
	ValidationID string
	State        string
}

func (e *ValidationClosedError) Error() string {
	return fmt.Sprintf("validation %s no longer accepts documents in state %q", e.ValidationID, e.State)
}

// translateConstraint maps sqlite constraint violations to GuardError so the
// partial unique indexes backstopping the service guards surface uniformly.
func translateConstraint(err error, rule, message string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "constraint failed") {
		return &GuardError{Rule: rule, Message: message}
	}
	return err
}
