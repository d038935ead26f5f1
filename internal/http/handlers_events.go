package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	domainjob "github.com/target/boostd/internal/domain/job"
	"github.com/target/boostd/internal/service"
)

// EventHandlers streams job lifecycle events. Every stream starts with a snapshot.
type EventHandlers struct {
	Svc       *service.JobService
	Heartbeat time.Duration
	Logger    *slog.Logger
}

func (h *EventHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *EventHandlers) heartbeat() time.Duration {
	if h.Heartbeat > 0 {
		return h.Heartbeat
	}
	return 15 * time.Second
}

// Stream serves events as text/event-stream.
func (h *EventHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	unsubscribe, snapshot, events := h.Svc.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, snapshot); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger().WarnContext(r.Context(), "event stream not flushable", "error", err)
		return
	}

	ticker := time.NewTicker(h.heartbeat())
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSE(w, evt); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeSSE(w io.Writer, evt domainjob.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
	return err
}

// WebSocket serves events as JSON text frames. Client frames other than close are ignored.
func (h *EventHandlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.logger().DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	unsubscribe, snapshot, events := h.Svc.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go drainClient(conn, closed)

	if err := writeFrame(conn, snapshot); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat())
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case evt, ok := <-events:
			if !ok {
				_ = wsutil.WriteServerMessage(conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusGoingAway, "shutting down"))
				return
			}
			if err := writeFrame(conn, evt); err != nil {
				return
			}
		case <-ticker.C:
			if err := wsutil.WriteServerMessage(conn, ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn net.Conn, evt domainjob.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return wsutil.WriteServerText(conn, data)
}

// drainClient reads until the client goes away, then closes done.
func drainClient(conn net.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := wsutil.ReadClientData(conn); err != nil {
			return
		}
	}
}
