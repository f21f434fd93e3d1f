package settings

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCategory is returned when no category with the requested name is
// registered.
var ErrUnknownCategory = errors.New("settings: unknown category")

// ErrTestUnsupported is returned when a connectivity test is requested for a
// category that declares none.
var ErrTestUnsupported = errors.New("settings: category does not support connectivity tests")

// ValidationError carries the rule violations that aborted a save.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "settings: validation failed: " + strings.Join(e.Errors, "; ")
}

// TestError reports a failed connectivity check inside the save workflow.
type TestError struct {
	Message string
}

func (e *TestError) Error() string {
	return fmt.Sprintf("settings: connectivity test failed: %s", e.Message)
}
