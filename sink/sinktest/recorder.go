// Package sinktest provides a Sink that remembers what it was asked to
// render, for tests of the components that drive a sink.
package sinktest

import (
	"sync"

	"github.com/room4-2/lelamp-dashboard/messages"
	"github.com/room4-2/lelamp-dashboard/sink"
	"github.com/room4-2/lelamp-dashboard/state"
)

// Playing is one RenderExpressionPlaying call
type Playing struct {
	Name    string
	Playing bool
}

// Recorder records render calls. The zero value is ready to use.
type Recorder struct {
	mu sync.Mutex

	Connections      []bool
	Hardware         []bool
	Sessions         []state.SessionInfo
	Colors           []state.Color
	Panels           []state.Panel
	Expressions      []state.Listing[string]
	PlayingCalls     []Playing
	Conversations    []state.Listing[messages.Conversation]
	AuditLogs        []state.Listing[messages.AuditLog]
	LastConversation []state.Exchange
}

var _ sink.Sink = (*Recorder)(nil)

func (r *Recorder) RenderConnection(connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Connections = append(r.Connections, connected)
}

func (r *Recorder) RenderHardwareBadge(hardware bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Hardware = append(r.Hardware, hardware)
}

func (r *Recorder) RenderSession(info state.SessionInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sessions = append(r.Sessions, info)
}

func (r *Recorder) RenderColor(c state.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Colors = append(r.Colors, c)
}

func (r *Recorder) RenderPanel(p state.Panel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Panels = append(r.Panels, p)
}

func (r *Recorder) RenderExpressionsCatalog(l state.Listing[string], _ func(name string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Expressions = append(r.Expressions, l)
}

func (r *Recorder) RenderExpressionPlaying(name string, playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PlayingCalls = append(r.PlayingCalls, Playing{Name: name, Playing: playing})
}

func (r *Recorder) RenderConversations(l state.Listing[messages.Conversation]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Conversations = append(r.Conversations, l)
}

func (r *Recorder) RenderAuditLog(l state.Listing[messages.AuditLog]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.AuditLogs = append(r.AuditLogs, l)
}

func (r *Recorder) RenderLastConversation(user, ai string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LastConversation = append(r.LastConversation, state.Exchange{UserInput: user, AIResponse: ai})
}

// LastColor returns the most recently rendered color
func (r *Recorder) LastColor() (state.Color, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Colors) == 0 {
		return state.Color{}, false
	}
	return r.Colors[len(r.Colors)-1], true
}

// LastConversations returns the most recent conversations render
func (r *Recorder) LastConversations() (state.Listing[messages.Conversation], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Conversations) == 0 {
		return state.Listing[messages.Conversation]{}, false
	}
	return r.Conversations[len(r.Conversations)-1], true
}

// LastExchange returns the most recent last-conversation render
func (r *Recorder) LastExchange() (state.Exchange, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.LastConversation) == 0 {
		return state.Exchange{}, false
	}
	return r.LastConversation[len(r.LastConversation)-1], true
}

// ConnectionHistory returns a copy of every connection render
func (r *Recorder) ConnectionHistory() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.Connections...)
}

// PlayingHistory returns a copy of every playing render
func (r *Recorder) PlayingHistory() []Playing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Playing(nil), r.PlayingCalls...)
}

// Counts returns how many times each listing was rendered
func (r *Recorder) Counts() (expressions, conversations, auditLogs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Expressions), len(r.Conversations), len(r.AuditLogs)
}

// ColorCount returns how many colors were rendered
func (r *Recorder) ColorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Colors)
}
