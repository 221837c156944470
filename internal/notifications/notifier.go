// Package notifications propagates permission request field changes to local
// observers. The object store's privileged writer publishes a named-field
// change event per mutation; subscribers recompute derived state before any
// observer sees the event.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strings"

	"github.com/redis/go-redis/v9"
)

const requestChannelPrefix = "permreq:changed:"

// ChangeEvent carries the identity of a mutated request record and the names
// of the fields that changed, mirroring the store's named-field notification
// contract.
type ChangeEvent struct {
	RequestID     string   `json:"request_id"`
	ChangedFields []string `json:"changed_fields"`
}

// RequestChannel returns the Redis channel for a single request's changes.
func RequestChannel(requestID string) string {
	return requestChannelPrefix + requestID
}

// RequestIDFromChannel extracts the request id from a change channel name.
func RequestIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, requestChannelPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(channel, requestChannelPrefix)
	return id, id != ""
}

// Notifier provides helpers to publish change events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishChange sends a field-change event for one request record.
func (n *Notifier) PublishChange(ctx context.Context, event ChangeEvent) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return n.rdb.Publish(ctx, RequestChannel(event.RequestID), payload).Err()
}

// StartChangeSubscriber subscribes to the per-request change pattern and calls
// onEvent for each incoming event until ctx is cancelled.
func (n *Notifier) StartChangeSubscriber(
	ctx context.Context, onEvent func(event ChangeEvent),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, requestChannelPrefix+"*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("invalid change event on %s: %v", msg.Channel, err)
					continue
				}
				if event.RequestID == "" {
					if id, ok := RequestIDFromChannel(msg.Channel); ok {
						event.RequestID = id
					}
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in ChangeSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onEvent(event)
				}()
			}
		}
	}()

	return nil
}
