// Package state holds the dashboard's single view model. One ViewModel is
// created at startup and handed by pointer to every component; the
// reconciler and the refresh coordinator are the only writers.
package state

import (
	"fmt"
	"sync"

	"github.com/room4-2/lelamp-dashboard/messages"
)

// ConnectionState of the push channel
type ConnectionState int

const (
	Connecting ConnectionState = iota
	Open
	Closed
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("ConnectionState(%d)", int(s))
	}
}

// Channel selects one component of a Color
type Channel int

const (
	Red Channel = iota
	Green
	Blue
)

// ParseChannel accepts "r", "g", "b" or the full color names
func ParseChannel(s string) (Channel, error) {
	switch s {
	case "r", "red":
		return Red, nil
	case "g", "green":
		return Green, nil
	case "b", "blue":
		return Blue, nil
	default:
		return 0, fmt.Errorf("unknown color channel %q", s)
	}
}

// Color is the lamp's RGB state. Components are kept within [0,255].
type Color struct {
	R, G, B int
}

// White is the color shown before the device reports anything
var White = Color{R: 255, G: 255, B: 255}

// Clamp limits v to [0,255]
func Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// With returns c with one channel replaced by the clamped value
func (c Color) With(ch Channel, v int) Color {
	v = Clamp(v)
	switch ch {
	case Red:
		c.R = v
	case Green:
		c.G = v
	case Blue:
		c.B = v
	}
	return c
}

// Clamped returns c with every channel clamped
func (c Color) Clamped() Color {
	return Color{R: Clamp(c.R), G: Clamp(c.G), B: Clamp(c.B)}
}

// ColorFromRGB converts a wire color
func ColorFromRGB(rgb messages.RGB) Color {
	return Color{R: rgb.R, G: rgb.G, B: rgb.B}.Clamped()
}

func (c Color) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// SessionInfo describes the server session of the current connection
type SessionInfo struct {
	SessionID       string
	HardwarePresent bool
}

// ShortID returns the first 8 characters of the session id, or "—"
func (s SessionInfo) ShortID() string {
	if s.SessionID == "" {
		return "—"
	}
	if len(s.SessionID) > 8 {
		return s.SessionID[:8]
	}
	return s.SessionID
}

// Panel is the foregrounded dashboard view
type Panel int

const (
	PanelExpressions Panel = iota
	PanelConversations
	PanelLogs
)

// ParsePanel accepts the names used by INITIAL_PANEL and the console
func ParsePanel(s string) (Panel, error) {
	switch s {
	case "expressions":
		return PanelExpressions, nil
	case "conversations":
		return PanelConversations, nil
	case "logs":
		return PanelLogs, nil
	default:
		return 0, fmt.Errorf("unknown panel %q", s)
	}
}

func (p Panel) String() string {
	switch p {
	case PanelExpressions:
		return "expressions"
	case PanelConversations:
		return "conversations"
	case PanelLogs:
		return "logs"
	default:
		return fmt.Sprintf("Panel(%d)", int(p))
	}
}

// Exchange is the last user/AI pair shown on the dashboard
type Exchange struct {
	UserInput  string
	AIResponse string
}

// Snapshot is a copy of the whole view model
type Snapshot struct {
	Session          SessionInfo
	Color            Color
	Panel            Panel
	LastConversation Exchange
	Playing          map[string]bool
	Expressions      Listing[string]
	Conversations    Listing[messages.Conversation]
	AuditLogs        Listing[messages.AuditLog]
}

// ViewModel is the authoritative dashboard state
type ViewModel struct {
	mu               sync.RWMutex
	session          SessionInfo
	color            Color
	panel            Panel
	lastConversation Exchange
	playing          map[string]bool
	expressions      Listing[string]
	conversations    Listing[messages.Conversation]
	auditLogs        Listing[messages.AuditLog]
}

// NewViewModel creates a view model showing panel and the default color
func NewViewModel(panel Panel) *ViewModel {
	return &ViewModel{
		color:   White,
		panel:   panel,
		playing: make(map[string]bool),
	}
}

// Color returns the current color
func (vm *ViewModel) Color() Color {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.color
}

// SetColor overwrites the color, clamping every channel
func (vm *ViewModel) SetColor(c Color) Color {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.color = c.Clamped()
	return vm.color
}

// UpdateColor applies fn to the current color atomically
func (vm *ViewModel) UpdateColor(fn func(Color) Color) Color {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.color = fn(vm.color).Clamped()
	return vm.color
}

func (vm *ViewModel) Session() SessionInfo {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.session
}

func (vm *ViewModel) SetSession(s SessionInfo) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.session = s
}

func (vm *ViewModel) Panel() Panel {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.panel
}

func (vm *ViewModel) SetPanel(p Panel) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.panel = p
}

func (vm *ViewModel) LastConversation() Exchange {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.lastConversation
}

func (vm *ViewModel) SetLastConversation(e Exchange) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.lastConversation = e
}

// SetPlaying marks or clears an expression as playing
func (vm *ViewModel) SetPlaying(name string, playing bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if playing {
		vm.playing[name] = true
	} else {
		delete(vm.playing, name)
	}
}

func (vm *ViewModel) IsPlaying(name string) bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.playing[name]
}

func (vm *ViewModel) Expressions() Listing[string] {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.expressions
}

func (vm *ViewModel) SetExpressions(l Listing[string]) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.expressions = l
}

func (vm *ViewModel) Conversations() Listing[messages.Conversation] {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.conversations
}

func (vm *ViewModel) SetConversations(l Listing[messages.Conversation]) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.conversations = l
}

func (vm *ViewModel) AuditLogs() Listing[messages.AuditLog] {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.auditLogs
}

func (vm *ViewModel) SetAuditLogs(l Listing[messages.AuditLog]) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.auditLogs = l
}

// Snapshot copies the whole view model
func (vm *ViewModel) Snapshot() Snapshot {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	playing := make(map[string]bool, len(vm.playing))
	for name := range vm.playing {
		playing[name] = true
	}
	return Snapshot{
		Session:          vm.session,
		Color:            vm.color,
		Panel:            vm.panel,
		LastConversation: vm.lastConversation,
		Playing:          playing,
		Expressions:      vm.expressions,
		Conversations:    vm.conversations,
		AuditLogs:        vm.auditLogs,
	}
}
