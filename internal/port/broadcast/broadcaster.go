// Package broadcast defines the port the feedback service uses to push queue
// activity to live subscribers such as review dashboards.
package broadcast

import "context"

// Broadcaster fans a feedback event out to every connected subscriber.
// eventType is the event subject (feedback.created, feedback.transitioned,
// feedback.merged). Delivery is best effort and never blocks the caller on
// a slow subscriber.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
