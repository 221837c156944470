package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"permsync/internal/models"
	"permsync/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per watched request
	maxConnsPerRequest = 32
	// Max total connections
	maxTotalConns = 10000
)

// WatchUpdate is what observers receive when a watched record changes. The
// decoded view is recomputed from the stored code before fan-out, so a
// consumer never sees a raw code paired with a stale decoded meaning.
type WatchUpdate struct {
	RequestID     string               `json:"request_id"`
	ChangedFields []string             `json:"changed_fields"`
	StatusCode    *int                 `json:"status_code"`
	StatusMessage *string              `json:"status_message"`
	Decoded       models.DecodedStatus `json:"decoded"`
}

// RequestLoader fetches the current state of a request record by id.
type RequestLoader func(ctx context.Context, id string) (*models.PermissionChangeRequest, error)

// WatchHub maps request id -> clients waiting on that record's terminal
// status. Frames reach a connection only through its client's write pump.
type WatchHub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
	load       RequestLoader
	metrics    *observability.WatchMetrics
}

// NewWatchHub creates a hub that resolves record state through load.
func NewWatchHub(load RequestLoader) *WatchHub {
	return &WatchHub{
		conns:   make(map[string]map[*Client]struct{}),
		load:    load,
		metrics: observability.NewWatchMetrics(),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *WatchHub) Name() string { return "request watch hub" }

// Register a connection watching the given request id. Returns the Client
// whose write pump owns all frames to the connection.
func (h *WatchHub) Register(requestID, userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.conns[requestID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[requestID] = m
	}
	if len(m) >= maxConnsPerRequest {
		return nil, errors.New("request watch connection limit reached")
	}

	client := NewClient(h, conn, userID, requestID)
	m[client] = struct{}{}
	h.totalConns++
	h.metrics.IncrementRequest(requestID)
	return client, nil
}

// UnregisterClient removes a client from the hub.
func (h *WatchHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.conns[client.RequestID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			h.metrics.DecrementRequest(client.RequestID)
		}
		if len(m) == 0 {
			delete(h.conns, client.RequestID)
		}
	}
}

// WatcherCount returns how many clients are watching a request.
func (h *WatchHub) WatcherCount(requestID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[requestID])
}

// Broadcast hands the update to every client watching the request. Delivery
// goes through each client's Send channel, never directly to the connection.
func (h *WatchHub) Broadcast(update WatchUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		log.Printf("marshal watch update: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[update.RequestID] {
		c.TrySend(payload)
	}
}

// HandleChange resolves the record named by the event, recomputes its decoded
// status, and fans the consistent pairing out to watchers. Delivering the
// same terminal event twice yields identical updates, so replays are
// harmless.
func (h *WatchHub) HandleChange(ctx context.Context, event ChangeEvent) {
	if h.WatcherCount(event.RequestID) == 0 {
		return
	}

	ctx, span := observability.GetTraceLayer().TraceWatchEvent(ctx, h.Name(), "change")
	defer span.End()
	h.metrics.RecordWatchEvent("change")

	record, err := h.load(ctx, event.RequestID)
	if err != nil {
		span.RecordError(err)
		log.Printf("load request %s for watch update: %v", event.RequestID, err)
		return
	}

	h.Broadcast(WatchUpdate{
		RequestID:     record.ID,
		ChangedFields: event.ChangedFields,
		StatusCode:    record.StatusCode,
		StatusMessage: record.StatusMessage,
		Decoded:       record.Decoded(),
	})
}

// StartWiring connects the Notifier to this hub: change events from Redis are
// turned into decoded watch updates.
func (h *WatchHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartChangeSubscriber(ctx, func(event ChangeEvent) {
		h.HandleChange(ctx, event)
	})
}

// Shutdown closes every watching client. Closing the Send channel makes the
// write pump emit the close frame and release the connection, so no other
// goroutine ever writes to it.
func (h *WatchHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for requestID, clients := range h.conns {
		for c := range clients {
			close(c.Send)
		}
		delete(h.conns, requestID)
	}
	h.totalConns = 0
	return nil
}
