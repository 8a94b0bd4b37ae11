package lead

import "context"

// Publisher defines at-least-once, best-effort event delivery for accepted
// leads.
//
// The connection to the broker is a single process-wide resource. Connected
// reports its current status: the ingestion protocol checks it before
// attempting delivery and fails fast with "publisher not ready" when the
// broker is unavailable, rather than retrying per request. Reconnection is
// the implementation's own background concern (see internal/publisher).
type Publisher interface {
	// Connected reports whether the broker connection is currently
	// established.
	Connected() bool

	// Publish delivers the event to the primary topic.
	Publish(ctx context.Context, event *Event) error

	// PublishDeadLetter delivers the event to the dead-letter topic after a
	// failed primary delivery. Best-effort: the caller does not gate on the
	// result, and implementations log their own failures.
	PublishDeadLetter(ctx context.Context, event *Event) error
}
