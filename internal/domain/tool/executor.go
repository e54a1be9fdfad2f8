package tool

import (
	"context"
	"encoding/json"
)

// Executor is the runtime contract for executable tools. Args arrive already
// schema-validated; executors must still re-derive their own safety
// boundaries (path confinement, identifier rules) — schema checks shape,
// not semantic legality.
type Executor interface {
	Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}
