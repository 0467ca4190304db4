package relay

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultQueueSize is how many frames a push client may fall behind before it
// is disconnected.
const DefaultQueueSize = 16

// Client is one connected push subscriber.
type Client struct {
	ID   string
	send chan []byte
	done chan struct{}
	once sync.Once
}

// Frames delivers broadcast frames in order.
func (c *Client) Frames() <-chan []byte { return c.send }

// Done is closed when the hub drops the client.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) kick() {
	c.once.Do(func() { close(c.done) })
}

// Hub fans snapshot frames out to push clients without blocking on any of
// them.
type Hub struct {
	clients   *xsync.MapOf[string, *Client]
	queueSize int
	logger    *log.Logger
	dropped   atomic.Uint64

	// mu orders registrations against broadcasts so a new client sees
	// either the latest frame or every frame after it.
	mu     sync.Mutex
	latest []byte
}

func NewHub(queueSize int, logger *log.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		clients:   xsync.NewMapOf[string, *Client](),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Register adds a client. The most recent frame, if any, is queued for it
// straight away.
func (h *Hub) Register() *Client {
	c := &Client{
		ID:   uuid.NewString(),
		send: make(chan []byte, h.queueSize),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	if h.latest != nil {
		c.send <- h.latest
	}
	h.clients.Store(c.ID, c)
	h.mu.Unlock()
	h.logger.Printf("push client %s connected (%d total)", c.ID, h.clients.Size())
	return c
}

func (h *Hub) Unregister(c *Client) {
	if _, ok := h.clients.LoadAndDelete(c.ID); ok {
		h.logger.Printf("push client %s disconnected", c.ID)
	}
	c.kick()
}

// Broadcast queues frame for every client and returns how many accepted it.
// Clients with a full queue are dropped.
func (h *Hub) Broadcast(frame []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = frame

	delivered := 0
	h.clients.Range(func(id string, c *Client) bool {
		select {
		case c.send <- frame:
			delivered++
		default:
			h.clients.Delete(id)
			c.kick()
			h.dropped.Add(1)
			h.logger.Printf("push client %s too slow, dropped", id)
		}
		return true
	})
	return delivered
}

// Len returns the number of connected clients.
func (h *Hub) Len() int { return h.clients.Size() }

// Dropped returns how many clients were disconnected for falling behind.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.clients.Range(func(id string, c *Client) bool {
		h.clients.Delete(id)
		c.kick()
		return true
	})
}
