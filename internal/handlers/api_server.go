// internal/handlers/api_server.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/trackline/trackline/internal/middleware"
	"github.com/trackline/trackline/internal/room"
)

// Server bundles the store and logger behind the HTTP/WS surface.
type Server struct {
	Store  *room.Store
	Logger *logrus.Logger
}

// NewServer wires a Server. A nil logger falls back to the logrus standard
// logger.
func NewServer(store *room.Store, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{Store: store, Logger: logger}
}

// Router assembles the full route table.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(s.Logger))

	r.Post("/rooms", s.CreateRoomHandler)
	r.Route("/rooms/{roomID}", func(r chi.Router) {
		r.Get("/state", s.RoomStateHandler)
		r.Post("/commands", s.RoomCommandHandler)
		r.Get("/ws", s.RoomWSHandler)
	})

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}
