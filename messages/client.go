package messages

// Outbound frame types
const (
	TypePing = "ping"
)

// ClientMessage is a frame sent from the dashboard to the lamp server
type ClientMessage struct {
	Type string `json:"type"` // "ping"
}

// NewPingMessage creates a keepalive ping
func NewPingMessage() *ClientMessage {
	return &ClientMessage{Type: TypePing}
}
