package domain

import (
	"errors"
	"fmt"
)

// Reason codes carried by typed errors. User-visible failures report one
// of these plus redacted output, never a raw stack trace.
const (
	ReasonMissingBinary    = "missing_binary"
	ReasonMissingRuntime   = "missing_container_runtime"
	ReasonHostUnreachable  = "host_unreachable"
	ReasonUnsupportedRoute = "unsupported_route"
	ReasonMissingField     = "missing_field"
	ReasonInvalidConfig    = "invalid_config"
	ReasonNonZeroExit      = "non_zero_exit"
	ReasonEmptySnapshot    = "empty_snapshot_listing"
	ReasonIntrospection    = "introspection_failed"
	ReasonOverwriteRisk    = "overwrite_risk"
)

// ErrConflictDeferred signals a deliberate deferral on resource conflict.
// It is an expected scheduling outcome, not a failure.
var ErrConflictDeferred = errors.New("deferred on resource conflict")

// CapabilityError reports a missing binary, missing container runtime, or
// unreachable host. It is raised before any operation is built.
type CapabilityError struct {
	Reason string
	Detail string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability check failed (%s): %s", e.Reason, e.Detail)
}

// ConstructionError reports invalid or incomplete provider configuration.
// It is raised before any operation is built.
type ConstructionError struct {
	Reason string
	// Field names the missing or invalid configuration field.
	Field  string
	Detail string
}

func (e *ConstructionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration (%s): field %q: %s", e.Reason, e.Field, e.Detail)
	}
	return fmt.Sprintf("invalid configuration (%s): %s", e.Reason, e.Detail)
}

// ExecutionError reports a non-zero exit of an external process. Output
// is already redacted when the error leaves the execution engine.
type ExecutionError struct {
	Op       OperationKind
	ExitCode int
	Output   string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Op, e.ExitCode)
}

// IntrospectionError reports failed or empty snapshot path discovery.
// Restore resolution fails closed on it.
type IntrospectionError struct {
	Reason string
	Detail string
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("snapshot introspection failed (%s): %s", e.Reason, e.Detail)
}

// ConfirmationRequiredError blocks a mutating restore that would
// overwrite existing data until the caller supplies the confirmation
// token. Dry runs are never blocked by it.
type ConfirmationRequiredError struct {
	// Targets lists the resolved destinations where data already exists.
	Targets []string
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("restore would overwrite existing data at %d target(s); confirmation required", len(e.Targets))
}
