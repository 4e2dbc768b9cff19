package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"securewrap/core"
)

const wsWriteTimeout = 10 * time.Second

// handleEventsWS streams committed events. Events retained after ?cursor=
// are replayed before live delivery starts.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	updates, cancel, backlog, err := s.node.Subscribe(ctx, r.URL.Query().Get("cursor"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	defer cancel()

	// Long-lived streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	s.metrics.SubscriberDelta(1)
	defer s.metrics.SubscriberDelta(-1)

	// Clients only listen; CloseRead handles their control frames and cancels
	// the stream when they go away.
	ctx = conn.CloseRead(ctx)
	if err := streamEvents(ctx, conn, updates, backlog); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && ctx.Err() == nil {
			s.logger.Warn("event stream failed", "error", err)
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func streamEvents(ctx context.Context, conn *websocket.Conn, updates <-chan core.StreamEvent, backlog []core.StreamEvent) error {
	for _, evt := range backlog {
		if err := writeStreamEvent(ctx, conn, evt); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeStreamEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeStreamEvent(ctx context.Context, conn *websocket.Conn, evt core.StreamEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
