package dispatch

import "fmt"

// Kind classifies a dispatch failure. Kinds are stable strings used both in
// API responses and in logs; a given failure always maps to the same kind.
type Kind string

const (
	KindBackendUnavailable     Kind = "backend_unavailable"
	KindBackendTimeout         Kind = "backend_timeout"
	KindModelOutputUnparseable Kind = "model_output_unparseable"
	KindMalformedInvocation    Kind = "malformed_invocation"
	KindUnknownTool            Kind = "unknown_tool"
	KindSchemaViolation        Kind = "schema_violation"
	KindInvalidUsername        Kind = "invalid_username"
	KindInvalidRoles           Kind = "invalid_roles"
	KindAlreadyExists          Kind = "already_exists"
	KindUserExists             Kind = "user_exists"
	KindToolExecutionFailed    Kind = "tool_execution_failed"
	KindInternalToolFault      Kind = "internal_tool_fault"
	KindAuditSinkFailure       Kind = "audit_sink_failure"
)

// Error is a classified dispatch failure: a stable kind plus a
// human-readable detail safe to return to the caller.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func newError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), cause: cause}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.cause
}
