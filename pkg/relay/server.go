package relay

import (
	"context"
	"log"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"peakmeter/pkg/config"
)

const writeTimeout = 5 * time.Second

// Server exposes the poll and push endpoints.
type Server struct {
	app    *fiber.App
	cfg    *config.ServerConfig
	store  *FileStore
	hub    *Hub
	logger *log.Logger
}

func NewServer(cfg *config.ServerConfig, store *FileStore, hub *Hub, logger *log.Logger) *Server {
	s := &Server{
		app:    fiber.New(fiber.Config{DisableStartupMessage: true}),
		cfg:    cfg,
		store:  store,
		hub:    hub,
		logger: logger,
	}

	s.app.Get(cfg.PollPath, s.handlePoll)

	s.app.Use(cfg.PushPath, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get(cfg.PushPath, websocket.New(s.handlePush))

	return s
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.logger.Printf("relay listening on %s (poll %s, push %s)", addr, s.cfg.PollPath, s.cfg.PushPath)
	return s.app.Listen(addr)
}

func (s *Server) Listener(ln net.Listener) error {
	s.logger.Printf("relay listening on %s (poll %s, push %s)", ln.Addr(), s.cfg.PollPath, s.cfg.PushPath)
	return s.app.Listener(ln)
}

// Shutdown disconnects push clients and stops accepting requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	return s.app.ShutdownWithContext(ctx)
}

// handlePoll serves the current snapshot. Failures are a bare 500.
func (s *Server) handlePoll(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")

	data, err := s.store.Load()
	if err != nil {
		s.logger.Printf("poll %s: %v", c.OriginalURL(), err)
		c.Status(fiber.StatusInternalServerError)
		return nil
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

func (s *Server) handlePush(ws *websocket.Conn) {
	defer ws.Close()

	client := s.hub.Register()
	defer s.hub.Unregister(client)

	// Clients have nothing to say; reading only detects disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			s.logger.Printf("push client %s sent %d bytes, ignored", client.ID, len(msg))
		}
	}()

	for {
		select {
		case frame := <-client.Frames():
			ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Printf("push client %s write failed: %v", client.ID, err)
				return
			}
		case <-client.Done():
			ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay closing connection"),
				time.Now().Add(time.Second))
			return
		case <-gone:
			return
		}
	}
}
