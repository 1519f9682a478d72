package mdpost

import (
	"fmt"
	"strings"
)

// MissingEnvError is returned when required configuration is missing.
type MissingEnvError struct {
	Provider  string
	Variables []string
}

func (e MissingEnvError) Error() string {
	if len(e.Variables) == 0 {
		return fmt.Sprintf("%s credentials not configured", e.Provider)
	}
	return fmt.Sprintf("%s credentials not configured (missing %s)", e.Provider, strings.Join(e.Variables, ", "))
}

// ValidationError captures a problem with the post input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
