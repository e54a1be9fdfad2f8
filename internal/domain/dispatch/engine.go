// Package dispatch runs the invocation pipeline: interpret the instruction,
// shape-check the candidate, validate args against the tool's schema,
// execute, and append an audit record. Each stage either advances or fails
// with a classified error; a failed stage is never retried and no stage is
// skipped.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GeorgeMargineanu/toolgate/internal/domain/audit"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/gateway"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/tool"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/users"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/workspace"
	"github.com/GeorgeMargineanu/toolgate/internal/infra/llm"
)

// Interpreter produces a candidate invocation object for an instruction.
type Interpreter interface {
	Interpret(ctx context.Context, instruction string) (json.RawMessage, error)
}

// Result is a completed dispatch. AuditPersisted is false when execution
// succeeded but the audit sink rejected the append; the record is still
// returned so the caller can surface it.
type Result struct {
	Audit          *audit.Record
	AuditPersisted bool
}

// Engine wires the pipeline stages together.
type Engine struct {
	gateway  Interpreter
	registry *tool.Registry
	sink     audit.Sink
	logger   *slog.Logger
}

func NewEngine(gw Interpreter, registry *tool.Registry, sink audit.Sink, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{gateway: gw, registry: registry, sink: sink, logger: logger}
}

// invocation is the shape every candidate must decode into. Unknown fields
// are rejected; a missing args object defaults to {}.
type invocation struct {
	Tool    string          `json:"tool"`
	Args    json.RawMessage `json:"args"`
	Explain string          `json:"explain"`
}

// Dispatch runs one instruction end to end for the given actor. On success
// the returned Result carries the audit record of what actually ran. On
// failure the *Error's Kind says which stage rejected it and why.
func (e *Engine) Dispatch(ctx context.Context, actor, instruction string) (*Result, *Error) {
	candidate, err := e.gateway.Interpret(ctx, instruction)
	if err != nil {
		return nil, e.classifyInterpretError(err)
	}

	inv, derr := decodeInvocation(candidate)
	if derr != nil {
		return nil, derr
	}

	contract, err := e.registry.Lookup(inv.Tool)
	if err != nil {
		return nil, newError(KindUnknownTool, err, "tool %q is not registered", inv.Tool)
	}

	var args map[string]any
	if err := json.Unmarshal(inv.Args, &args); err != nil || args == nil {
		return nil, newError(KindMalformedInvocation, err, "args is not a JSON object")
	}
	if v := contract.Schema.Validate(args); v != nil {
		return nil, newError(KindSchemaViolation, v, "%s", v.Error())
	}

	result, xerr := e.execute(ctx, contract, inv.Args)
	if xerr != nil {
		return nil, xerr
	}

	rec := audit.NewRecord(actor, contract.Name, inv.Args, result)
	persisted := true
	if err := e.sink.Append(ctx, rec); err != nil {
		// The execution already happened; a sink failure must not turn a
		// successful dispatch into an error.
		persisted = false
		e.logger.Error("audit append failed",
			slog.String("audit_id", rec.ID),
			slog.String("tool", rec.Tool),
			slog.String("actor", rec.Actor),
			slog.String("error", err.Error()))
	}

	return &Result{Audit: rec, AuditPersisted: persisted}, nil
}

// execute runs the tool with panic isolation: a panicking executor is
// reported as an internal fault with a generic detail, the full value goes
// to the log only.
func (e *Engine) execute(ctx context.Context, contract tool.Contract, args json.RawMessage) (result json.RawMessage, derr *Error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool executor panicked",
				slog.String("tool", contract.Name),
				slog.Any("panic", r))
			result = nil
			derr = newError(KindInternalToolFault, fmt.Errorf("panic: %v", r),
				"tool %q failed internally", contract.Name)
		}
	}()

	out, err := contract.Executor.Execute(ctx, args)
	if err != nil {
		return nil, classifyExecuteError(contract.Name, err)
	}
	return out, nil
}

func decodeInvocation(candidate json.RawMessage) (*invocation, *Error) {
	dec := json.NewDecoder(bytes.NewReader(candidate))
	dec.DisallowUnknownFields()

	var inv invocation
	if err := dec.Decode(&inv); err != nil {
		return nil, newError(KindMalformedInvocation, err, "invocation does not match the required shape: %v", err)
	}
	if inv.Tool == "" {
		return nil, newError(KindMalformedInvocation, nil, "invocation is missing the tool field")
	}
	if len(inv.Args) == 0 {
		inv.Args = json.RawMessage(`{}`)
	}
	return &inv, nil
}

func (e *Engine) classifyInterpretError(err error) *Error {
	switch {
	case errors.Is(err, llm.ErrBackendTimeout):
		return newError(KindBackendTimeout, err, "model backend timed out")
	case errors.Is(err, llm.ErrBackendUnavailable):
		return newError(KindBackendUnavailable, err, "model backend unavailable")
	case errors.Is(err, gateway.ErrUnparseableOutput):
		return newError(KindModelOutputUnparseable, err, "%v", err)
	default:
		return newError(KindBackendUnavailable, err, "model backend failed: %v", err)
	}
}

func classifyExecuteError(toolName string, err error) *Error {
	switch {
	case errors.Is(err, users.ErrInvalidUsername):
		return newError(KindInvalidUsername, err, "%v", err)
	case errors.Is(err, users.ErrInvalidRoles):
		return newError(KindInvalidRoles, err, "%v", err)
	case errors.Is(err, users.ErrUserExists):
		return newError(KindUserExists, err, "%v", err)
	case errors.Is(err, tool.ErrTargetExists):
		return newError(KindAlreadyExists, err, "%v", err)
	case errors.Is(err, workspace.ErrPathEscapesRoot):
		return newError(KindToolExecutionFailed, err, "tool %q failed: %v", toolName, err)
	default:
		return newError(KindToolExecutionFailed, err, "tool %q failed: %v", toolName, err)
	}
}
