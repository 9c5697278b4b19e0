// Package session owns the dashboard's push channel: dialing /ws,
// dispatching frames as typed events, and reconnecting after every close
// with a fixed delay and no attempt cap.
package session

import (
	"context"
	"errors"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/room4-2/lelamp-dashboard/clock"
	"github.com/room4-2/lelamp-dashboard/config"
	"github.com/room4-2/lelamp-dashboard/messages"
	"github.com/room4-2/lelamp-dashboard/state"
)

// WebSocketURL derives the push channel endpoint from the page origin:
// http becomes ws, https becomes wss.
func WebSocketURL(origin *url.URL) string {
	scheme := "ws"
	if origin.Scheme == "https" {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: origin.Host, Path: messages.PathWebSocket}
	return u.String()
}

// Manager keeps one push channel open for the life of the process
type Manager struct {
	url            string
	dialer         *websocket.Dialer
	clock          clock.Clock
	reconnectDelay time.Duration
	keepAlive      time.Duration

	// Callbacks for the rest of the dashboard, set before Start. Both run
	// on the connection goroutines, never concurrently with each other
	// for the same Conn.
	OnEvent            func(ev messages.Event)
	OnConnectionChange func(connected bool)

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	state    state.ConnectionState
	conn     *Conn
	timer    *clock.Timer
	attempts int
	stopped  bool
}

// NewManager creates a manager for the origin in cfg
func NewManager(cfg *config.Config, clk clock.Clock) *Manager {
	return &Manager{
		url: WebSocketURL(cfg.Origin),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.RequestTimeout,
			ReadBufferSize:   4 * 1024,
			WriteBufferSize:  4 * 1024,
		},
		clock:          clk,
		reconnectDelay: cfg.ReconnectDelay,
		keepAlive:      cfg.KeepAlivePeriod,
		state:          state.Closed,
	}
}

// URL returns the push channel endpoint
func (m *Manager) URL() string {
	return m.url
}

// Start opens the first connection in the background. Reconnects keep
// happening until ctx is done or Shutdown is called.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	go func() {
		<-m.ctx.Done()
		m.Shutdown()
	}()

	go m.open()
}

// State returns the current connection state
func (m *Manager) State() state.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts returns how many times open has run
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Send queues a frame on the current connection. Returns false while
// disconnected.
func (m *Manager) Send(msg any) bool {
	m.mu.Lock()
	c := m.conn
	m.mu.Unlock()
	if c == nil {
		return false
	}
	return c.Send(msg)
}

// CloseConnection closes the current connection locally. Like any other
// close it schedules a reconnect.
func (m *Manager) CloseConnection() {
	m.mu.Lock()
	c := m.conn
	m.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

// Shutdown closes the connection and cancels any pending reconnect
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	c := m.conn
	m.mu.Unlock()

	if c != nil {
		c.Close()
	}
	log.Println("🛑 Push channel stopped")
}

// open dials the push channel. A failed dial is handled like a close.
func (m *Manager) open() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.state = state.Connecting
	m.attempts++
	ctx := m.ctx
	m.mu.Unlock()

	id := uuid.New().String()
	log.Printf("🔌 [%s] Connecting to %s", id[:8], m.url)

	ws, _, err := m.dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		log.Printf("❌ [%s] Connect failed: %v", id[:8], err)
		m.handleClose(nil)
		return
	}

	c := newConn(id, ws, m.clock, m.keepAlive)
	c.OnFrame = func(data []byte) { m.dispatch(c, data) }
	c.OnClose = func() { m.handleClose(c) }

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		ws.Close()
		return
	}
	m.conn = c
	m.state = state.Open
	m.mu.Unlock()

	log.Printf("✅ [%s] Push channel open", id[:8])
	m.notify(true)
	c.Start()
}

// handleClose moves to Closed and schedules exactly one reconnect. c is nil
// when the dial itself failed.
func (m *Manager) handleClose(c *Conn) {
	m.mu.Lock()
	if c != nil && m.conn != c {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.state = state.Closed
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.timer = m.clock.AfterFunc(m.reconnectDelay, m.open)
	m.mu.Unlock()

	log.Printf("⏳ Reconnecting in %s", m.reconnectDelay)
	m.notify(false)
}

func (m *Manager) notify(connected bool) {
	if m.OnConnectionChange != nil {
		m.OnConnectionChange(connected)
	}
}

// dispatch decodes one frame and hands it to OnEvent. Nothing a frame
// contains may stop the read loop.
func (m *Manager) dispatch(c *Conn, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [%s] Event handler panicked: %v", c.ID[:8], r)
		}
	}()

	ev, err := messages.DecodeFrame(data)
	switch {
	case errors.Is(err, messages.ErrUnknownFrame):
		return
	case err != nil:
		log.Printf("⚠️ [%s] Dropping frame: %v", c.ID[:8], err)
		return
	}

	if ev.Kind() == messages.EventPong {
		return
	}
	if m.OnEvent != nil {
		m.OnEvent(ev)
	}
}
