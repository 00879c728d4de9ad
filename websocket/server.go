// Package websocket carries the session transport: the HTTP upgrade
// endpoint and the per-connection read/write pumps speaking the nickname
// protocol.
package websocket

import (
	"net/http"

	ws "github.com/gorilla/websocket"

	"github.com/herocast/herocast/domain"
	"github.com/herocast/herocast/logging"
)

type Server struct {
	upgrader ws.Upgrader
	hub      domain.Hub
	logger   *logging.Logger
	options  ConnectionOptions
}

func NewServer(hub domain.Hub, logger *logging.Logger, options ConnectionOptions) *Server {
	upgrader := ws.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins for simplicity, adjust as needed
		},
		ReadBufferSize:  options.ReadBufferSize,
		WriteBufferSize: options.WriteBufferSize,
	}

	return &Server{
		upgrader: upgrader,
		hub:      hub,
		logger:   logger,
		options:  options,
	}
}

// Handle upgrades the request and serves the session until it ends.
func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	s.logger.Info("websocket connection established")

	c := NewConnection(conn, s.hub, s.logger, s.options)
	c.Start(r.Context())
}
