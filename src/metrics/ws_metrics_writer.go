package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"motifcore/src/datamodels"
)

const clientWriteWait = 2 * time.Second

type WebsocketMetricsWriter struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

// NewWebSocketMetricsWriter creates a new WebSocketMetricsWriter
func NewWebSocketMetricsWriter() *WebsocketMetricsWriter {
	return &WebsocketMetricsWriter{
		clients: make(map[*websocket.Conn]bool),
	}
}

// AddClient adds a new client connection
func (w *WebsocketMetricsWriter) AddClient(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clients[conn] = true
}

// RemoveClient removes a client connection
func (w *WebsocketMetricsWriter) RemoveClient(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.clients, conn)
}

func (w *WebsocketMetricsWriter) ClientCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.clients)
}

// Send writes v to one client. Writes to a client always go through the
// writer so they never interleave with metric pushes.
func (w *WebsocketMetricsWriter) Send(conn *websocket.Conn, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
	return conn.WriteJSON(v)
}

// Write sends the metric to every client. Clients that fail are dropped.
func (w *WebsocketMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for client := range w.clients {
		_ = client.SetWriteDeadline(time.Now().Add(clientWriteWait))
		if err := client.WriteJSON(metric); err != nil {
			slog.Debug("Dropping metrics client", "remote", client.RemoteAddr().String(), "error", err)
			client.Close()
			delete(w.clients, client)
		}
	}
	return nil
}

func (w *WebsocketMetricsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for client := range w.clients {
		client.Close()
		delete(w.clients, client)
	}
	return nil
}
