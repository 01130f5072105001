package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"motifcore/src/database"
	"motifcore/src/datamodels"
	"motifcore/src/metrics"
	"motifcore/src/utils/errors"
)

// NotificationSource is the subscribe side of database.NotificationManager.
type NotificationSource interface {
	NewSubscriber() string
	Subscribe(subscriberID string, channel string, objectID string) (<-chan string, error)
	Unsubscribe(channel string, subscriberID string, objectIDs ...string) error
}

// JournalEvent is one journal notification pushed to /journal/stream clients.
type JournalEvent struct {
	Channel  string `json:"channel"`
	ObjectID string `json:"object_id"`
	Payload  string `json:"payload"`
}

var journalChannels = []string{database.FeedStatusChannel, database.ConnectionStateChannel}

type Server struct {
	config        datamodels.ServerConfig
	upgrader      websocket.Upgrader
	httpMux       *http.ServeMux
	logger        *slog.Logger
	register      sync.Once
	inspector     *Inspector
	gatherer      prometheus.Gatherer
	metricsWriter *metrics.WebsocketMetricsWriter
	journal       database.JournalDatabase
	notifications NotificationSource
}

func NewServer(config datamodels.ServerConfig, wsConfig datamodels.WSConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.HealthEndpoint == "" {
		config.HealthEndpoint = "/health"
	}
	if config.StatusEndpoint == "" {
		config.StatusEndpoint = "/status"
	}
	if config.MetricsEndpoint == "" {
		config.MetricsEndpoint = "/metrics"
	}
	return &Server{
		config:   config,
		upgrader: wsConfig.Upgrader,
		httpMux:  http.NewServeMux(),
		logger:   logger.With("component", "server"),
		gatherer: prometheus.DefaultGatherer,
	}
}

func (s *Server) WithInspector(inspector *Inspector) *Server {
	s.inspector = inspector
	return s
}

func (s *Server) WithGatherer(gatherer prometheus.Gatherer) *Server {
	s.gatherer = gatherer
	return s
}

func (s *Server) WithMetricsWriter(metricsWriter *metrics.WebsocketMetricsWriter) *Server {
	s.metricsWriter = metricsWriter
	return s
}

// WithJournal enables the journal endpoints. notifications may be nil when
// the journal does not announce changes.
func (s *Server) WithJournal(journal database.JournalDatabase, notifications NotificationSource) *Server {
	s.journal = journal
	s.notifications = notifications
	return s
}

// Handler registers the routes on first use.
func (s *Server) Handler() (http.Handler, error) {
	if s.inspector == nil {
		return nil, errors.New("inspector is nil")
	}
	s.register.Do(func() {
		s.RegisterHealthCheck()
		s.RegisterStatus()
		s.RegisterPrometheus()
		if s.metricsWriter != nil {
			s.RegisterWebSocketHandler()
		}
		s.RegisterJournal()
		s.RegisterSwagger()
	})
	return s.httpMux, nil
}

func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              ":" + strings.TrimPrefix(s.config.Port, ":"),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down server")
		if err := server.Close(); err != nil {
			s.logger.Error("Failed to close server", "error", err)
		}
	}()

	s.logger.Info(fmt.Sprintf("Starting server on %s", server.Addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	welcomeMessage := WebSocketResponse{
		Success: true,
		Data:    "Welcome to the motifcore WebSocket server",
	}
	if err := s.metricsWriter.Send(conn, welcomeMessage); err != nil {
		s.logger.Error("Failed to send welcome message", "error", err)
		return
	}

	s.metricsWriter.AddClient(conn)
	defer s.metricsWriter.RemoveClient(conn)
	s.logger.Info("Client connected", "remote", conn.RemoteAddr().String())

	for {
		mType, msg, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("Client disconnected", "error", err)
			return
		}
		if mType != websocket.TextMessage {
			continue
		}

		var wsMessage WebSocketMessage
		if err := json.Unmarshal(msg, &wsMessage); err != nil {
			s.logger.Warn("Failed to unmarshal message", "error", err)
			continue
		}

		var response WebSocketResponse
		switch wsMessage.MessageType {
		case Status:
			report, err := s.inspector.Status(r.Context())
			response = reply(report, err)
		case Health:
			report, err := s.inspector.Health(r.Context())
			response = reply(report, err)
		default:
			response = WebSocketResponse{Error: fmt.Sprintf("unknown message type %q", wsMessage.MessageType)}
		}
		if err := s.metricsWriter.Send(conn, response); err != nil {
			s.logger.Error("Failed to send response", "error", err)
			return
		}
	}
}

func reply(data any, err error) WebSocketResponse {
	if err != nil {
		return WebSocketResponse{Error: err.Error()}
	}
	return WebSocketResponse{Success: true, Data: data}
}

// handleJournalStream forwards journal notifications until the client goes away.
func (s *Server) handleJournalStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	subscriber := s.notifications.NewSubscriber()
	streams := make([]<-chan string, 0, len(journalChannels))
	for _, channel := range journalChannels {
		stream, err := s.notifications.Subscribe(subscriber, channel, database.AllObjects)
		if err != nil {
			s.logger.Error("Failed to subscribe to journal", "channel", channel, "error", err)
			return
		}
		defer func(channel string) {
			if err := s.notifications.Unsubscribe(channel, subscriber, database.AllObjects); err != nil {
				s.logger.Debug("Journal unsubscribe failed", "channel", channel, "error", err)
			}
		}(channel)
		streams = append(streams, stream)
	}

	// The client only ever closes; reading detects it.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for msg := range database.FanIn(ctx, streams...) {
		channel, rest, _ := strings.Cut(msg, ";")
		objectID, payload, _ := strings.Cut(rest, ";")
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(JournalEvent{Channel: channel, ObjectID: objectID, Payload: payload}); err != nil {
			s.logger.Debug("Journal client dropped", "error", err)
			return
		}
	}
}
