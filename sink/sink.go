// Package sink is the presentation side of the dashboard. The core never
// reads anything back from a Sink; it only pushes already reconciled
// state into it.
package sink

import (
	"github.com/room4-2/lelamp-dashboard/messages"
	"github.com/room4-2/lelamp-dashboard/state"
)

// Sink renders dashboard state
type Sink interface {
	RenderConnection(connected bool)
	RenderHardwareBadge(hardware bool)
	RenderSession(info state.SessionInfo)
	RenderColor(c state.Color)
	RenderPanel(p state.Panel)
	// RenderExpressionsCatalog shows the catalog; onSelect plays an expression
	RenderExpressionsCatalog(l state.Listing[string], onSelect func(name string))
	RenderExpressionPlaying(name string, playing bool)
	RenderConversations(l state.Listing[messages.Conversation])
	RenderAuditLog(l state.Listing[messages.AuditLog])
	RenderLastConversation(user, ai string)
}

// Placeholder texts shown instead of a list
const (
	FailedToLoad            = "Failed to load"
	FailedToLoadExpressions = "Failed to load expressions"
	NoExpressions           = "No expressions available"
	NoConversations         = "No conversations yet"
	NoLogs                  = "No logs yet"
	Loading                 = "Loading..."
)

// Placeholder returns the text shown instead of a listing's items, or ""
// when the items themselves should be rendered
func Placeholder[T any](l state.Listing[T], empty, failed string) string {
	switch {
	case l.Status == state.StatusFailed:
		return failed
	case l.Status == state.StatusPending:
		return Loading
	case l.Empty():
		return empty
	default:
		return ""
	}
}

// ConversationsPlaceholder applies the conversation panel's texts
func ConversationsPlaceholder(l state.Listing[messages.Conversation]) string {
	return Placeholder(l, NoConversations, FailedToLoad)
}

// AuditLogPlaceholder applies the logs panel's texts
func AuditLogPlaceholder(l state.Listing[messages.AuditLog]) string {
	return Placeholder(l, NoLogs, FailedToLoad)
}

// ExpressionsPlaceholder applies the expressions panel's texts
func ExpressionsPlaceholder(l state.Listing[string]) string {
	return Placeholder(l, NoExpressions, FailedToLoadExpressions)
}

// Multi fans every render call out to several sinks, in order
type Multi []Sink

func (m Multi) RenderConnection(connected bool) {
	for _, s := range m {
		s.RenderConnection(connected)
	}
}

func (m Multi) RenderHardwareBadge(hardware bool) {
	for _, s := range m {
		s.RenderHardwareBadge(hardware)
	}
}

func (m Multi) RenderSession(info state.SessionInfo) {
	for _, s := range m {
		s.RenderSession(info)
	}
}

func (m Multi) RenderColor(c state.Color) {
	for _, s := range m {
		s.RenderColor(c)
	}
}

func (m Multi) RenderPanel(p state.Panel) {
	for _, s := range m {
		s.RenderPanel(p)
	}
}

func (m Multi) RenderExpressionsCatalog(l state.Listing[string], onSelect func(name string)) {
	for _, s := range m {
		s.RenderExpressionsCatalog(l, onSelect)
	}
}

func (m Multi) RenderExpressionPlaying(name string, playing bool) {
	for _, s := range m {
		s.RenderExpressionPlaying(name, playing)
	}
}

func (m Multi) RenderConversations(l state.Listing[messages.Conversation]) {
	for _, s := range m {
		s.RenderConversations(l)
	}
}

func (m Multi) RenderAuditLog(l state.Listing[messages.AuditLog]) {
	for _, s := range m {
		s.RenderAuditLog(l)
	}
}

func (m Multi) RenderLastConversation(user, ai string) {
	for _, s := range m {
		s.RenderLastConversation(user, ai)
	}
}
