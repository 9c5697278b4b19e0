package session

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/room4-2/lelamp-dashboard/clock"
	"github.com/room4-2/lelamp-dashboard/messages"
)

const (
	writeBufferSize = 16
	writeTimeout    = 10 * time.Second
	readLimit       = 512 * 1024
)

// Conn is one lifetime of the push channel. It is never reused: the
// Manager dials a fresh Conn for every reconnect.
type Conn struct {
	ID string

	ws        *websocket.Conn
	clock     clock.Clock
	keepAlive time.Duration

	// OnFrame receives every inbound text frame, in arrival order, on the
	// read goroutine. OnClose runs exactly once, however the Conn ends.
	OnFrame func(data []byte)
	OnClose func()

	// Use channels for non-blocking writes
	writeChan chan any

	mu        sync.RWMutex
	closed    bool
	closeChan chan struct{}
}

func newConn(id string, ws *websocket.Conn, clk clock.Clock, keepAlive time.Duration) *Conn {
	ws.SetReadLimit(readLimit)
	return &Conn{
		ID:        id,
		ws:        ws,
		clock:     clk,
		keepAlive: keepAlive,
		writeChan: make(chan any, writeBufferSize),
		closeChan: make(chan struct{}),
	}
}

// Start begins reading frames and writing keepalives
func (c *Conn) Start() {
	var ticker *clock.Ticker
	if c.keepAlive > 0 {
		ticker = c.clock.NewTicker(c.keepAlive)
	}
	go c.writePump(ticker)
	go c.readLoop()
}

func (c *Conn) readLoop() {
	defer c.Close()

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if !c.IsClosed() {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("❌ [%s] Push channel read error: %v", c.ID[:8], err)
				} else {
					log.Printf("🔌 [%s] Push channel closed by peer: %v", c.ID[:8], err)
				}
			}
			return
		}
		if messageType != websocket.TextMessage {
			log.Printf("⚠️ [%s] Ignoring binary frame (%d bytes)", c.ID[:8], len(data))
			continue
		}
		if c.OnFrame != nil {
			c.OnFrame(data)
		}
	}
}

// writePump handles all outgoing frames in a single goroutine
func (c *Conn) writePump(ticker *clock.Ticker) {
	var ticks <-chan time.Time
	if ticker != nil {
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-c.closeChan:
			return
		case msg := <-c.writeChan:
			if err := c.write(msg); err != nil {
				log.Printf("❌ [%s] Push channel write error: %v", c.ID[:8], err)
				c.Close()
				return
			}
		case <-ticks:
			if err := c.write(messages.NewPingMessage()); err != nil {
				log.Printf("❌ [%s] Keepalive failed: %v", c.ID[:8], err)
				c.Close()
				return
			}
		}
	}
}

func (c *Conn) write(msg any) error {
	data, err := messages.Marshal(msg)
	if err != nil {
		return err
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Send queues a frame for the server (non-blocking). Frames sent on a
// closed Conn are dropped.
func (c *Conn) Send(msg any) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.writeChan <- msg:
		return true
	default:
		// Queue full, drop message
		return false
	}
}

// IsClosed returns whether the connection is closed
func (c *Conn) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close terminates the connection and fires OnClose
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.closeChan)

	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.ws.Close()

	if c.OnClose != nil {
		c.OnClose()
	}
}
