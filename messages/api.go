package messages

import "time"

// HTTP endpoint paths, relative to the page origin
const (
	PathWebSocket     = "/ws"
	PathSolidColor    = "/api/rgb/solid"
	PathRecordings    = "/api/recordings"
	PathPlayRecording = "/api/recordings/play"
	PathChat          = "/api/chat"
	PathConversations = "/api/conversations"
	PathAuditLogs     = "/api/audit-logs"
)

// SolidColorRequest is the body of POST /api/rgb/solid
type SolidColorRequest struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// PlayRecordingRequest is the body of POST /api/recordings/play
type PlayRecordingRequest struct {
	Name string `json:"name"`
}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned by POST /api/chat. Status is "error" when the
// server could not produce a reply.
type ChatResponse struct {
	Status     string `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
	UserInput  string `json:"user_input"`
	AIResponse string `json:"ai_response"`
}

// RecordingsResponse is returned by GET /api/recordings
type RecordingsResponse struct {
	Recordings []string `json:"recordings"`
	Error      string   `json:"error,omitempty"`
}

// Input types recorded with a conversation
const (
	InputText  = "text"
	InputVoice = "voice"
)

// Conversation is one stored chat exchange
type Conversation struct {
	Timestamp  time.Time `json:"timestamp"`
	InputType  string    `json:"input_type"`
	UserInput  string    `json:"user_input"`
	AIResponse string    `json:"ai_response"`
}

// ConversationsResponse is returned by GET /api/conversations?limit=N
type ConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Error         string         `json:"error,omitempty"`
}

// AuditResponse is the recorded response summary of an audited call
type AuditResponse struct {
	StatusCode int `json:"status_code"`
}

// AuditLog is one audited API call
type AuditLog struct {
	Timestamp  time.Time     `json:"timestamp"`
	Endpoint   string        `json:"endpoint"`
	Method     string        `json:"method"`
	DurationMs float64       `json:"duration_ms"`
	Response   AuditResponse `json:"response"`
}

// AuditLogsResponse is returned by GET /api/audit-logs?limit=N
type AuditLogsResponse struct {
	Logs  []AuditLog `json:"logs"`
	Error string     `json:"error,omitempty"`
}
