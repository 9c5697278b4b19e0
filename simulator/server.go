// Package simulator emulates the lamp server: the /ws push channel and the
// /api/* endpoints the dashboard consumes. It backs the integration tests
// and cmd/lampsim.
package simulator

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/room4-2/lelamp-dashboard/messages"
)

// Responder produces the AI side of a chat exchange
type Responder func(message string) string

// EchoResponder answers every message by repeating it
func EchoResponder(message string) string {
	return "You said: " + message
}

type Server struct {
	httpServer *http.Server
	upgrader   websocket.Upgrader
	port       int

	// Responder answers /api/chat. Defaults to EchoResponder.
	Responder Responder

	mu            sync.RWMutex
	sessionID     string
	hardware      bool
	color         messages.RGB
	recordings    []string
	conversations []messages.Conversation // oldest first
	auditLogs     []messages.AuditLog     // oldest first
	failing       map[string]int          // path -> status code
	peers         map[*peer]struct{}
	connects      int
	pings         int
	now           func() time.Time
}

// NewServer creates a simulator listening on port when started with Start.
// Tests usually mount Handler on an httptest server instead.
func NewServer(port int) *Server {
	s := &Server{
		port: port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		Responder:  EchoResponder,
		sessionID:  uuid.New().String(),
		color:      messages.RGB{R: 255, G: 255, B: 255},
		recordings: []string{"curious", "excited", "happy_wiggle", "headshake", "idle", "nod", "sad", "scanning", "shock", "shy", "wake_up"},
		failing:    make(map[string]int),
		peers:      make(map[*peer]struct{}),
		now:        time.Now,
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
		// No ReadTimeout/WriteTimeout, they would cut long-lived WebSocket connections.
	}

	return s
}

// Handler returns the simulator's routes wrapped in the audit middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(messages.PathWebSocket, s.handleWebSocket)
	mux.HandleFunc("POST "+messages.PathSolidColor, s.handleSolidColor)
	mux.HandleFunc("GET "+messages.PathRecordings, s.handleRecordings)
	mux.HandleFunc("POST "+messages.PathPlayRecording, s.handlePlayRecording)
	mux.HandleFunc("POST "+messages.PathChat, s.handleChat)
	mux.HandleFunc("GET "+messages.PathConversations, s.handleConversations)
	mux.HandleFunc("GET "+messages.PathAuditLogs, s.handleAuditLogs)
	mux.HandleFunc("/health", s.handleHealth)
	return s.audit(s.faults(mux))
}

// Start begins listening for connections
func (s *Server) Start() error {
	log.Printf("🚀 Lamp simulator starting on port %d", s.port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%d%s", s.port, messages.PathWebSocket)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("🛑 Shutting down lamp simulator...")
	s.DropClients()
	return s.httpServer.Shutdown(ctx)
}

// SetHardware sets the hardware flag sent in init frames
func (s *Server) SetHardware(present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hardware = present
}

// SetRecordings replaces the expressions catalog
func (s *Server) SetRecordings(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordings = append([]string(nil), names...)
}

// Color returns the color the simulated device shows
func (s *Server) Color() messages.RGB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.color
}

// SetColor changes the device color and broadcasts it, as if changed by
// something other than the dashboard
func (s *Server) SetColor(c messages.RGB) {
	s.mu.Lock()
	s.color = c
	s.mu.Unlock()
	s.Broadcast(messages.NewRGBFrame(c))
}

// Fail makes every request to path answer with status until cleared with
// a zero status
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failing, path)
		return
	}
	s.failing[path] = status
}

// AddConversation stores an exchange as if it came from the voice pipeline
func (s *Server) AddConversation(inputType, userInput, aiResponse string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = append(s.conversations, messages.Conversation{
		Timestamp:  s.now().UTC(),
		InputType:  inputType,
		UserInput:  userInput,
		AIResponse: aiResponse,
	})
}

// Connects returns how many WebSocket connections were accepted so far
func (s *Server) Connects() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connects
}

// Pings returns how many keepalive pings clients sent
func (s *Server) Pings() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pings
}

func (s *Server) countPing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings++
}

// Requests counts audited calls to method and path
func (s *Server) Requests(method, path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, l := range s.auditLogs {
		if l.Method == method && l.Endpoint == path {
			n++
		}
	}
	return n
}

// ClientCount returns the number of connected WebSocket clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Broadcast sends frame to every connected client
func (s *Server) Broadcast(frame any) {
	data, err := messages.Marshal(frame)
	if err != nil {
		log.Printf("❌ Failed to encode broadcast: %v", err)
		return
	}
	s.BroadcastRaw(data)
}

// BroadcastRaw sends data verbatim, which lets tests inject malformed frames
func (s *Server) BroadcastRaw(data []byte) {
	for _, p := range s.snapshotPeers() {
		p.queueMessage(data)
	}
}

// DropClients closes every WebSocket connection from the server side
func (s *Server) DropClients() {
	for _, p := range s.snapshotPeers() {
		p.Close()
	}
}

func (s *Server) snapshotPeers() []*peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	return peers
}

func (s *Server) removePeer(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, p)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	p := newPeer(conn, s.countPing)

	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.connects++
	color := s.color
	init := messages.NewInitFrame(s.sessionID, s.hardware, &color)
	s.mu.Unlock()

	data, err := messages.Marshal(init)
	if err != nil {
		log.Printf("❌ Failed to encode init frame: %v", err)
		p.Close()
		s.removePeer(p)
		return
	}

	p.Start()
	p.queueMessage(data)

	<-p.closeChan
	s.removePeer(p)
}

func (s *Server) handleSolidColor(w http.ResponseWriter, r *http.Request) {
	var req messages.SolidColorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c := messages.RGB{R: req.R, G: req.G, B: req.B}

	s.mu.Lock()
	s.color = c
	s.mu.Unlock()

	s.Broadcast(messages.NewRGBFrame(c))
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "color": []int{c.R, c.G, c.B}})
}

func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	names := append([]string(nil), s.recordings...)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, messages.RecordingsResponse{Recordings: names})
}

func (s *Server) handlePlayRecording(w http.ResponseWriter, r *http.Request) {
	var req messages.PlayRecordingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.Broadcast(map[string]any{"type": "playing", "name": req.Name})
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "playing": req.Name})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req messages.ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	reply := s.Responder(req.Message)
	s.AddConversation(messages.InputText, req.Message, reply)
	s.Broadcast(messages.NewConversationFrame(req.Message, reply))

	writeJSON(w, http.StatusOK, messages.ChatResponse{Status: "ok", UserInput: req.Message, AIResponse: reply})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)

	s.mu.RLock()
	page := newestFirst(s.conversations, limit)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, messages.ConversationsResponse{Conversations: page})
}

func (s *Server) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 100)

	s.mu.RLock()
	page := newestFirst(s.auditLogs, limit)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, messages.AuditLogsResponse{Logs: page})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","clients":%d}`, s.ClientCount())
}

// faults answers with the configured failure status for failing paths
func (s *Server) faults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		status, failing := s.failing[r.URL.Path]
		s.mu.RUnlock()
		if failing {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// audit records every /api call the way the lamp server's request
// middleware does
func (s *Server) audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := messages.AuditLog{
			Timestamp:  start.UTC(),
			Endpoint:   r.URL.Path,
			Method:     r.Method,
			DurationMs: float64(s.now().Sub(start).Microseconds()) / 1000,
			Response:   messages.AuditResponse{StatusCode: rec.status},
		}
		s.mu.Lock()
		s.auditLogs = append(s.auditLogs, entry)
		s.mu.Unlock()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err == nil {
		err = messages.Unmarshal(data, v)
	}
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := messages.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func queryLimit(r *http.Request, fallback int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func newestFirst[T any](items []T, limit int) []T {
	page := make([]T, 0, min(limit, len(items)))
	for i := len(items) - 1; i >= 0 && len(page) < limit; i-- {
		page = append(page, items[i])
	}
	return page
}
