package audit

import (
	"encoding/json"
	"time"

	"github.com/GeorgeMargineanu/toolgate/pkg/uuid"
)

// createdAtLayout fixes timestamp precision at microseconds so a record reads
// back exactly as written.
const createdAtLayout = "2006-01-02T15:04:05.000000Z07:00"

// Record is one completed dispatch. Immutable: created exactly once after a
// handler finishes successfully, then handed to the sink; never updated or
// deleted afterward.
type Record struct {
	ID        string          `json:"id"`
	Actor     string          `json:"actor"`
	Tool      string          `json:"tool"`
	Args      json.RawMessage `json:"args"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewRecord builds a Record with a fresh UUIDv7 and a UTC timestamp truncated
// to microsecond precision. Args and Result are kept as raw JSON so the bytes
// survive storage round-trips untouched.
func NewRecord(actor, tool string, args, result json.RawMessage) *Record {
	return &Record{
		ID:        uuid.NewV7().String(),
		Actor:     actor,
		Tool:      tool,
		Args:      args,
		Result:    result,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}
