package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/http-swagger"
)

// @title Motifcore API
// @version 1.0
// @description Health, status and metrics of the motifcore subscription layer
// @host localhost:8080
// @BasePath /

// WebSocketMessageType represents the type of WebSocket message
// @Description Type of message being sent over WebSocket connection
type WebSocketMessageType string

const (
	// Status asks for a StatusReport
	Status WebSocketMessageType = "status"
	// Health asks for a HealthReport
	Health WebSocketMessageType = "health"
)

// WebSocketMessage represents a message sent over WebSocket
// @Description Message structure for WebSocket communication
type WebSocketMessage struct {
	// Enum: status, health
	MessageType WebSocketMessageType `json:"message_type" example:"status"`
}

// WebSocketResponse represents a response sent back over WebSocket
// @Description Response structure for WebSocket communication
type WebSocketResponse struct {
	Success bool   `json:"success" example:"true"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty" example:"unknown message type"`
}

const defaultJournalLimit = 50

// RegisterHealthCheck registers the health check endpoint
// @Summary Health check endpoint
// @Description 200 when the publisher connection is online, 503 otherwise
// @Tags health
// @Produce json
// @Success 200 {object} HealthReport
// @Failure 503 {object} HealthReport
// @Router /health [get]
func (s *Server) RegisterHealthCheck() {
	s.httpMux.HandleFunc("GET "+s.config.HealthEndpoint, func(w http.ResponseWriter, r *http.Request) {
		report, err := s.inspector.Health(r.Context())
		if err != nil {
			s.writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		code := http.StatusOK
		if !report.Healthy {
			code = http.StatusServiceUnavailable
		}
		s.writeJSON(w, code, report)
	})
}

// RegisterStatus registers the node graph snapshot endpoint
// @Summary Node graph status
// @Description Connection state, every live node and the feed registry
// @Tags status
// @Produce json
// @Success 200 {object} StatusReport
// @Router /status [get]
func (s *Server) RegisterStatus() {
	s.httpMux.HandleFunc("GET "+s.config.StatusEndpoint, func(w http.ResponseWriter, r *http.Request) {
		report, err := s.inspector.Status(r.Context())
		if err != nil {
			s.writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		s.writeJSON(w, http.StatusOK, report)
	})
}

// RegisterPrometheus registers the Prometheus scrape endpoint
// @Summary Prometheus metrics
// @Tags metrics
// @Produce plain
// @Router /metrics [get]
func (s *Server) RegisterPrometheus() {
	s.httpMux.Handle("GET "+s.config.MetricsEndpoint, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// RegisterWebSocketHandler registers the WebSocket endpoint
// @Summary WebSocket connection endpoint
// @Description Streams metric snapshots and answers status and health messages
// @Tags websocket
// @Accept json
// @Produce json
// @Success 101 {string} string "Switching protocols to websocket"
// @Router /ws [get]
func (s *Server) RegisterWebSocketHandler() {
	s.httpMux.HandleFunc("/ws", s.handleWebSocket)
}

// RegisterJournal registers the journal query and stream endpoints
// @Summary Status journal
// @Description Recent feed status and connection state changes, newest first
// @Tags journal
// @Produce json
// @Param code path string true "Feed code"
// @Param limit query int false "Maximum rows"
// @Success 200 {array} datamodels.FeedStatusChange
// @Router /journal/feeds/{code} [get]
func (s *Server) RegisterJournal() {
	if s.journal != nil {
		s.httpMux.HandleFunc("GET /journal/feeds/{code}", func(w http.ResponseWriter, r *http.Request) {
			changes, err := s.journal.GetFeedStatusChanges(r.Context(), r.PathValue("code"), journalLimit(r))
			if err != nil {
				s.writeError(w, http.StatusInternalServerError, err)
				return
			}
			s.writeJSON(w, http.StatusOK, changes)
		})
		s.httpMux.HandleFunc("GET /journal/connection", func(w http.ResponseWriter, r *http.Request) {
			changes, err := s.journal.GetConnectionStateChanges(r.Context(), journalLimit(r))
			if err != nil {
				s.writeError(w, http.StatusInternalServerError, err)
				return
			}
			s.writeJSON(w, http.StatusOK, changes)
		})
	}
	if s.notifications != nil {
		s.httpMux.HandleFunc("/journal/stream", s.handleJournalStream)
	}
}

// RegisterSwagger registers the Swagger documentation endpoint
// @Summary Swagger documentation endpoint
// @Tags docs
// @Produce json,html
// @Success 200 {string} string "Swagger documentation UI"
// @Router /swagger [get]
func (s *Server) RegisterSwagger() {
	s.httpMux.HandleFunc("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

func journalLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultJournalLimit
	}
	return limit
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, WebSocketResponse{Success: false, Error: err.Error()})
}
