// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"encoding/json"

	"permsync/internal/middleware"
	"permsync/internal/models"
	"permsync/internal/notifications"
	"permsync/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// WatchRequestHandler upgrades the connection and streams status changes for
// a single permission change request. The first frame is a snapshot of the
// record's decoded state; it is loaded only after the client is registered,
// so a terminal status written at any point is either in the snapshot or
// broadcast to the registered client. A watcher can never miss the one
// nil-to-terminal transition.
func (s *Server) WatchRequestHandler() fiber.Handler {
	watchLog := observability.NewWatchLogger("request watch hub")

	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		ctx := s.shutdownCtx
		if ctx == nil {
			ctx = context.Background()
		}

		// Get userID from context locals (set by WebSocketAuthRequired middleware)
		userID, ok := conn.Locals("userID").(string)
		if !ok || userID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		requestID := conn.Params("id")
		if _, err := uuid.Parse(requestID); err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid request id"}`))
			_ = conn.Close()
			return
		}

		if s.watchHub == nil {
			_ = conn.Close()
			return
		}

		client, record, err := s.attachWatcher(ctx, conn, userID, requestID)
		if err != nil {
			watchLog.LogError(ctx, userID, requestID, err, "attach")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()

		watchLog.LogConnect(ctx, userID, requestID)
		defer watchLog.LogDisconnect(ctx, userID, requestID, "closed")

		// Snapshot frame travels through the same pump as broadcasts.
		if snapshot, err := json.Marshal(fiber.Map{
			"type":    "snapshot",
			"request": viewOf(record),
		}); err == nil {
			client.TrySend(snapshot)
		}

		// Blocks until the peer closes; unregisters the client on exit.
		client.ReadPump()
	})
}

// attachWatcher registers a client for the request and then loads the record.
// Registration must come first: a terminal write landing between the two
// steps is broadcast to the already-registered client, and one landing
// before registration is visible in the load.
func (s *Server) attachWatcher(ctx context.Context, conn *websocket.Conn, userID, requestID string) (*notifications.Client, *models.PermissionChangeRequest, error) {
	client, err := s.watchHub.Register(requestID, userID, conn)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.requestService.Get(ctx, requestID)
	if err != nil {
		s.watchHub.UnregisterClient(client)
		return nil, nil, err
	}
	return client, record, nil
}
