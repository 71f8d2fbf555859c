package ports

import "context"

// EventPublisher is the outbound auth-event publish port.
// The application uses this abstraction to keep broker/client concerns in
// adapters; delivery semantics belong to the sink, not the core.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}
