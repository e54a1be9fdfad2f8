package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/GeorgeMargineanu/toolgate/internal/domain/audit"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/gateway"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/tool"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/users"
	"github.com/GeorgeMargineanu/toolgate/internal/infra/llm"
)

type fixedInterpreter struct {
	candidate string
	err       error
}

func (f fixedInterpreter) Interpret(_ context.Context, _ string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.candidate), nil
}

type fakeSink struct {
	records []*audit.Record
	err     error
}

func (s *fakeSink) Append(_ context.Context, rec *audit.Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

// trackingExecutor records whether Execute ran and returns a canned result
// or a canned error.
type trackingExecutor struct {
	called bool
	result json.RawMessage
	err    error
	panics bool
}

func (e *trackingExecutor) Execute(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	e.called = true
	if e.panics {
		panic("executor blew up: secret internal state")
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, interp Interpreter, exec *trackingExecutor, sink audit.Sink) *Engine {
	t.Helper()

	registry, err := tool.BuildRegistry(tool.Contract{
		Name:        "update_file",
		Description: "Write a file",
		Schema: tool.Schema{
			Required: []string{"path", "content"},
			Fields: []tool.Field{
				{Name: "path", Type: tool.TypeString},
				{Name: "content", Type: tool.TypeString},
				{Name: "overwrite", Type: tool.TypeBoolean},
			},
		},
		Executor: exec,
	})
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}
	return NewEngine(interp, registry, sink, quietLogger())
}

const goodCandidate = `{"tool":"update_file","args":{"path":"a.txt","content":"hi"},"explain":"user asked"}`

func TestEngine_Dispatch_Success(t *testing.T) {
	t.Parallel()

	exec := &trackingExecutor{result: json.RawMessage(`{"path":"a.txt","status":"written"}`)}
	sink := &fakeSink{}
	e := newTestEngine(t, fixedInterpreter{candidate: goodCandidate}, exec, sink)

	res, derr := e.Dispatch(context.Background(), "alice", "write hi to a.txt")
	if derr != nil {
		t.Fatalf("Dispatch() error = %v", derr)
	}
	if !exec.called {
		t.Error("executor was not called")
	}
	if !res.AuditPersisted {
		t.Error("AuditPersisted = false; want true")
	}
	if res.Audit.Actor != "alice" || res.Audit.Tool != "update_file" {
		t.Errorf("audit = %q/%q; want alice/update_file", res.Audit.Actor, res.Audit.Tool)
	}
	if !bytes.Equal(res.Audit.Args, json.RawMessage(`{"path":"a.txt","content":"hi"}`)) {
		t.Errorf("audit args = %s; want exact executed args", res.Audit.Args)
	}
	if !bytes.Equal(res.Audit.Result, exec.result) {
		t.Errorf("audit result = %s; want executor output verbatim", res.Audit.Result)
	}
	if len(sink.records) != 1 || sink.records[0] != res.Audit {
		t.Error("sink did not receive the returned record")
	}
}

func TestEngine_Dispatch_FailuresSkipExecutionAndAudit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		interp   Interpreter
		wantKind Kind
	}{
		{
			name:     "backend unavailable",
			interp:   fixedInterpreter{err: llm.ErrBackendUnavailable},
			wantKind: KindBackendUnavailable,
		},
		{
			name:     "backend timeout",
			interp:   fixedInterpreter{err: llm.ErrBackendTimeout},
			wantKind: KindBackendTimeout,
		},
		{
			name:     "unparseable output",
			interp:   fixedInterpreter{err: fmt.Errorf("%w: raw output %q", gateway.ErrUnparseableOutput, "nope")},
			wantKind: KindModelOutputUnparseable,
		},
		{
			name:     "unknown top-level field",
			interp:   fixedInterpreter{candidate: `{"tool":"update_file","args":{},"bogus":1}`},
			wantKind: KindMalformedInvocation,
		},
		{
			name:     "tool not a string",
			interp:   fixedInterpreter{candidate: `{"tool":42,"args":{}}`},
			wantKind: KindMalformedInvocation,
		},
		{
			name:     "missing tool field",
			interp:   fixedInterpreter{candidate: `{"args":{"path":"a","content":"b"}}`},
			wantKind: KindMalformedInvocation,
		},
		{
			name:     "args not an object",
			interp:   fixedInterpreter{candidate: `{"tool":"update_file","args":["a"]}`},
			wantKind: KindMalformedInvocation,
		},
		{
			name:     "unknown tool",
			interp:   fixedInterpreter{candidate: `{"tool":"delete_everything","args":{}}`},
			wantKind: KindUnknownTool,
		},
		{
			name:     "missing required arg",
			interp:   fixedInterpreter{candidate: `{"tool":"update_file","args":{"path":"a.txt"}}`},
			wantKind: KindSchemaViolation,
		},
		{
			name:     "wrong arg type",
			interp:   fixedInterpreter{candidate: `{"tool":"update_file","args":{"path":"a.txt","content":"x","overwrite":"yes"}}`},
			wantKind: KindSchemaViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exec := &trackingExecutor{result: json.RawMessage(`{}`)}
			sink := &fakeSink{}
			e := newTestEngine(t, tt.interp, exec, sink)

			res, derr := e.Dispatch(context.Background(), "alice", "anything")
			if derr == nil {
				t.Fatalf("Dispatch() succeeded; want kind %s", tt.wantKind)
			}
			if derr.Kind != tt.wantKind {
				t.Errorf("Kind = %s; want %s", derr.Kind, tt.wantKind)
			}
			if res != nil {
				t.Error("Result should be nil on failure")
			}
			if exec.called {
				t.Error("executor ran despite pre-execution failure")
			}
			if len(sink.records) != 0 {
				t.Error("audit record appended for a dispatch that never executed")
			}
		})
	}
}

func TestEngine_Dispatch_ExecutorErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantKind Kind
	}{
		{"invalid username", users.ErrInvalidUsername, KindInvalidUsername},
		{"invalid roles", users.ErrInvalidRoles, KindInvalidRoles},
		{"user exists", users.ErrUserExists, KindUserExists},
		{"target exists", tool.ErrTargetExists, KindAlreadyExists},
		{"generic failure", errors.New("disk full"), KindToolExecutionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exec := &trackingExecutor{err: tt.err}
			sink := &fakeSink{}
			e := newTestEngine(t, fixedInterpreter{candidate: goodCandidate}, exec, sink)

			_, derr := e.Dispatch(context.Background(), "alice", "anything")
			if derr == nil {
				t.Fatalf("Dispatch() succeeded; want kind %s", tt.wantKind)
			}
			if derr.Kind != tt.wantKind {
				t.Errorf("Kind = %s; want %s", derr.Kind, tt.wantKind)
			}
			if len(sink.records) != 0 {
				t.Error("failed execution must not be audited as success")
			}
		})
	}
}

func TestEngine_Dispatch_ExecutorPanicIsolated(t *testing.T) {
	t.Parallel()

	exec := &trackingExecutor{panics: true}
	sink := &fakeSink{}
	e := newTestEngine(t, fixedInterpreter{candidate: goodCandidate}, exec, sink)

	_, derr := e.Dispatch(context.Background(), "alice", "anything")
	if derr == nil {
		t.Fatal("Dispatch() succeeded; want internal_tool_fault")
	}
	if derr.Kind != KindInternalToolFault {
		t.Errorf("Kind = %s; want %s", derr.Kind, KindInternalToolFault)
	}
	// The caller-visible detail stays generic.
	if bytes.Contains([]byte(derr.Detail), []byte("secret internal state")) {
		t.Errorf("Detail %q leaks panic internals", derr.Detail)
	}
}

func TestEngine_Dispatch_SinkFailureDoesNotInvalidateExecution(t *testing.T) {
	t.Parallel()

	exec := &trackingExecutor{result: json.RawMessage(`{"path":"a.txt","status":"written"}`)}
	sink := &fakeSink{err: errors.New("disk gone")}
	e := newTestEngine(t, fixedInterpreter{candidate: goodCandidate}, exec, sink)

	res, derr := e.Dispatch(context.Background(), "alice", "write it")
	if derr != nil {
		t.Fatalf("Dispatch() error = %v; sink failure must not fail the dispatch", derr)
	}
	if res.AuditPersisted {
		t.Error("AuditPersisted = true; want false after sink failure")
	}
	if res.Audit == nil {
		t.Fatal("Audit record missing; caller still needs it")
	}
}

func TestEngine_Dispatch_MissingArgsDefaultsToEmptyObject(t *testing.T) {
	t.Parallel()

	registry, err := tool.BuildRegistry(tool.Contract{
		Name:        "noop",
		Description: "No arguments",
		Schema:      tool.Schema{},
		Executor:    &trackingExecutor{result: json.RawMessage(`{}`)},
	})
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}
	sink := &fakeSink{}
	e := NewEngine(fixedInterpreter{candidate: `{"tool":"noop"}`}, registry, sink, quietLogger())

	res, derr := e.Dispatch(context.Background(), "alice", "do nothing")
	if derr != nil {
		t.Fatalf("Dispatch() error = %v", derr)
	}
	if !bytes.Equal(res.Audit.Args, json.RawMessage(`{}`)) {
		t.Errorf("audit args = %s; want {}", res.Audit.Args)
	}
}
