// Package websocket streams resolution events to connected clients.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fortuna/playtime/internal/hltb"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server is the WebSocket server. It implements service.EventSink so
// the resolver can push completed resolutions to subscribers.
type Server struct {
	port   string
	server *http.Server
	hub    *Hub
	log    *zap.Logger
}

// NewServer creates a WebSocket server.
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		hub: NewHub(),
		log: logger.Named("websocket"),
	}
}

// Start starts the server on the given port.
func (s *Server) Start(port string) error {
	s.port = port

	go s.hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/resolutions", s.handleResolutions)
	mux.HandleFunc("/ws/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: mux,
	}

	s.log.Info("websocket server listening", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// handleResolutions upgrades the connection and subscribes the client
// to the resolution stream.
func (s *Server) handleResolutions(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
		log:  s.log,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// handleHealth returns server health and the current client count.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "healthy", "clients": %d}`, s.hub.ClientCount())
}

// ResolutionEvent broadcasts a finished resolution to all clients.
func (s *Server) ResolutionEvent(result hltb.IntegratedResult) {
	payload, err := json.Marshal(event{
		Type:   "resolution",
		Time:   time.Now().UTC(),
		Result: result,
	})
	if err != nil {
		s.log.Error("event encode failed", zap.Error(err))
		return
	}
	s.hub.Broadcast(payload)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

type event struct {
	Type   string                `json:"type"`
	Time   time.Time             `json:"time"`
	Result hltb.IntegratedResult `json:"result"`
}
