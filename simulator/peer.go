package simulator

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/room4-2/lelamp-dashboard/messages"
)

const (
	writeBufferSize = 64
	writeTimeout    = 10 * time.Second
)

// peer is one connected dashboard
type peer struct {
	conn   *websocket.Conn
	onPing func()

	// Use channels for non-blocking writes
	writeChan chan []byte

	mu        sync.RWMutex
	closed    bool
	closeChan chan struct{}
}

func newPeer(conn *websocket.Conn, onPing func()) *peer {
	conn.SetReadLimit(64 * 1024)
	return &peer{
		conn:      conn,
		onPing:    onPing,
		writeChan: make(chan []byte, writeBufferSize),
		closeChan: make(chan struct{}),
	}
}

// Start runs the write pump and the read loop
func (p *peer) Start() {
	go p.writePump()
	go p.readLoop()
}

// writePump handles all outgoing frames in a single goroutine
func (p *peer) writePump() {
	for {
		select {
		case <-p.closeChan:
			return
		case data := <-p.writeChan:
			p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				p.Close()
				return
			}
		}
	}
}

// queueMessage adds a frame to the write queue (non-blocking)
func (p *peer) queueMessage(data []byte) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.writeChan <- data:
	default:
		log.Printf("⚠️ Simulator write queue full, dropping frame")
	}
}

// readLoop answers pings and discards everything else
func (p *peer) readLoop() {
	defer p.Close()
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg messages.ClientMessage
		if err := messages.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == messages.TypePing {
			if p.onPing != nil {
				p.onPing()
			}
			p.queueMessage([]byte(`{"type":"pong"}`))
		}
	}
}

// Close terminates the connection
func (p *peer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.closeChan)
	p.conn.Close()
}
