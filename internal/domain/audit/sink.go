package audit

import "context"

// Sink is the durable, append-only destination for audit records.
// Implementations must not reorder or deduplicate; a failed append is
// reported to the caller but never undoes the execution it describes.
type Sink interface {
	Append(ctx context.Context, rec *Record) error
}
