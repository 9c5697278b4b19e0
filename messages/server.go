package messages

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// json is the codec shared by every wire format in this package and by
// the api client. ConfigStd keeps encoding/json semantics.
var json = sonic.ConfigStd

// Marshal encodes v with the shared codec
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes data into v with the shared codec
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Frame types pushed by the lamp server over /ws
const (
	TypeInit            = "init"
	TypeRGB             = "rgb"
	TypeNewConversation = "new_conversation"
	TypePong            = "pong"
)

var (
	// ErrMalformedFrame is returned when a frame does not parse as the
	// structure its type promises
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownFrame is returned for frame types this client does not handle
	ErrUnknownFrame = errors.New("unknown frame type")
)

// EventKind discriminates the typed events produced from push frames
type EventKind int

const (
	EventInit EventKind = iota + 1
	EventRGB
	EventNewConversation
	EventPong
)

func (k EventKind) String() string {
	switch k {
	case EventInit:
		return TypeInit
	case EventRGB:
		return TypeRGB
	case EventNewConversation:
		return TypeNewConversation
	case EventPong:
		return TypePong
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a decoded push frame. The concrete types are InitEvent,
// RGBEvent, NewConversationEvent and PongEvent.
type Event interface {
	Kind() EventKind
}

// RGB is a device color as carried on the wire
type RGB struct {
	R, G, B int
}

// InitEvent is sent once per connection, right after the server accepts it
type InitEvent struct {
	SessionID string
	Hardware  bool
	Color     *RGB // nil when the frame carried no color
}

// RGBEvent reports the color the device is actually showing
type RGBEvent struct {
	Color RGB
}

// NewConversationEvent announces a completed chat exchange
type NewConversationEvent struct {
	UserInput  string
	AIResponse string
}

// PongEvent answers a client ping
type PongEvent struct{}

func (InitEvent) Kind() EventKind            { return EventInit }
func (RGBEvent) Kind() EventKind             { return EventRGB }
func (NewConversationEvent) Kind() EventKind { return EventNewConversation }
func (PongEvent) Kind() EventKind            { return EventPong }

// envelope carries only the discriminator
type envelope struct {
	Type string `json:"type"`
}

type initFrame struct {
	SessionID string `json:"session_id"`
	Hardware  bool   `json:"hardware"`
	RGB       []int  `json:"rgb"`
}

type rgbFrame struct {
	Color []int `json:"color"`
}

type newConversationFrame struct {
	UserInput  string `json:"user_input"`
	AIResponse string `json:"ai_response"`
}

// DecodeFrame parses one push frame into a typed Event. Unrecognized types
// return ErrUnknownFrame; anything that does not match its type's shape
// returns an error wrapping ErrMalformedFrame.
func DecodeFrame(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch env.Type {
	case TypeInit:
		var f initFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: init: %v", ErrMalformedFrame, err)
		}
		ev := InitEvent{SessionID: f.SessionID, Hardware: f.Hardware}
		if f.RGB != nil {
			c, err := parseRGB(f.RGB)
			if err != nil {
				return nil, fmt.Errorf("%w: init rgb: %v", ErrMalformedFrame, err)
			}
			ev.Color = &c
		}
		return ev, nil

	case TypeRGB:
		var f rgbFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: rgb: %v", ErrMalformedFrame, err)
		}
		c, err := parseRGB(f.Color)
		if err != nil {
			return nil, fmt.Errorf("%w: rgb color: %v", ErrMalformedFrame, err)
		}
		return RGBEvent{Color: c}, nil

	case TypeNewConversation:
		var f newConversationFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: new_conversation: %v", ErrMalformedFrame, err)
		}
		return NewConversationEvent{UserInput: f.UserInput, AIResponse: f.AIResponse}, nil

	case TypePong:
		return PongEvent{}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, env.Type)
	}
}

func parseRGB(values []int) (RGB, error) {
	if len(values) != 3 {
		return RGB{}, fmt.Errorf("want 3 components, got %d", len(values))
	}
	for _, v := range values {
		if v < 0 || v > 255 {
			return RGB{}, fmt.Errorf("component %d out of range", v)
		}
	}
	return RGB{R: values[0], G: values[1], B: values[2]}, nil
}

// NewInitFrame builds the frame the lamp server sends on accept
func NewInitFrame(sessionID string, hardware bool, color *RGB) map[string]any {
	frame := map[string]any{
		"type":       TypeInit,
		"session_id": sessionID,
		"hardware":   hardware,
	}
	if color != nil {
		frame["rgb"] = []int{color.R, color.G, color.B}
	}
	return frame
}

// NewRGBFrame builds a color broadcast frame
func NewRGBFrame(color RGB) map[string]any {
	return map[string]any{
		"type":  TypeRGB,
		"color": []int{color.R, color.G, color.B},
	}
}

// NewConversationFrame builds a conversation broadcast frame
func NewConversationFrame(userInput, aiResponse string) map[string]any {
	return map[string]any{
		"type":        TypeNewConversation,
		"user_input":  userInput,
		"ai_response": aiResponse,
	}
}
