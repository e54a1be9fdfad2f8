package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/GeorgeMargineanu/toolgate/internal/domain/workspace"
)

// ToolUpdateFile is the registry name of the workspace file writer.
const ToolUpdateFile = "update_file"

// ErrTargetExists means the file exists and overwrite was false.
var ErrTargetExists = errors.New("file exists and overwrite is false")

const (
	statusWritten     = "written"
	statusOverwritten = "overwritten"
)

// WriteFileExecutor writes files confined to the workspace root.
type WriteFileExecutor struct {
	root workspace.Root
}

// NewWriteFileExecutor returns an executor bound to the given root.
func NewWriteFileExecutor(root workspace.Root) *WriteFileExecutor {
	return &WriteFileExecutor{root: root}
}

type writeFileArgs struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Overwrite bool   `json:"overwrite"`
}

type writeFileResult struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

// Execute resolves the path inside the workspace (rejecting traversal and
// absolute-path overrides), honors the overwrite flag, and writes atomically
// via temp-file + rename.
func (e *WriteFileExecutor) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var in writeFileArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("update_file: decode args: %w", err)
	}

	resolved, err := e.root.Resolve(in.Path)
	if err != nil {
		return nil, err
	}

	status := statusWritten
	if _, statErr := os.Stat(resolved); statErr == nil {
		if !in.Overwrite {
			return nil, fmt.Errorf("%w: %s", ErrTargetExists, resolved)
		}
		status = statusOverwritten
	} else if !os.IsNotExist(statErr) {
		return nil, fmt.Errorf("update_file: stat %s: %w", resolved, statErr)
	}

	if err := e.root.WriteFileAtomic(resolved, []byte(in.Content), 0o644); err != nil {
		return nil, err
	}

	out, err := json.Marshal(writeFileResult{Path: resolved, Status: status})
	if err != nil {
		return nil, fmt.Errorf("update_file: encode result: %w", err)
	}
	return out, nil
}

// UpdateFileContract pairs the write-file schema with its executor.
func UpdateFileContract(root workspace.Root) Contract {
	return Contract{
		Name:        ToolUpdateFile,
		Description: "Write content to a file inside the workspace. Paths are relative to the workspace root.",
		Schema: Schema{
			Required: []string{"path", "content"},
			Fields: []Field{
				{Name: "path", Type: TypeString},
				{Name: "content", Type: TypeString},
				{Name: "overwrite", Type: TypeBoolean},
			},
		},
		Executor: NewWriteFileExecutor(root),
	}
}
