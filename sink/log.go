package sink

import (
	"log"

	"github.com/room4-2/lelamp-dashboard/messages"
	"github.com/room4-2/lelamp-dashboard/state"
)

// Log writes one log line per render call, for headless runs
type Log struct{}

func (Log) RenderConnection(connected bool) {
	if connected {
		log.Println("🟢 Connected")
	} else {
		log.Println("🔴 Disconnected")
	}
}

func (Log) RenderHardwareBadge(hardware bool) {
	if hardware {
		log.Println("💡 Hardware connected")
	} else {
		log.Println("💡 Simulation mode")
	}
}

func (Log) RenderSession(info state.SessionInfo) {
	log.Printf("📝 Session %s", info.ShortID())
}

func (Log) RenderColor(c state.Color) {
	log.Printf("🎨 Color %s", c)
}

func (Log) RenderPanel(p state.Panel) {
	log.Printf("🗂️ Panel %s", p)
}

func (Log) RenderExpressionsCatalog(l state.Listing[string], _ func(name string)) {
	if text := ExpressionsPlaceholder(l); text != "" {
		log.Printf("🤖 Expressions: %s", text)
		return
	}
	log.Printf("🤖 Expressions: %v", l.Items)
}

func (Log) RenderExpressionPlaying(name string, playing bool) {
	if playing {
		log.Printf("▶️ Playing %s", name)
	} else {
		log.Printf("⏹️ Finished %s", name)
	}
}

func (Log) RenderConversations(l state.Listing[messages.Conversation]) {
	if text := ConversationsPlaceholder(l); text != "" {
		log.Printf("💬 Conversations: %s", text)
		return
	}
	log.Printf("💬 Conversations: %d", len(l.Items))
}

func (Log) RenderAuditLog(l state.Listing[messages.AuditLog]) {
	if text := AuditLogPlaceholder(l); text != "" {
		log.Printf("📋 Audit log: %s", text)
		return
	}
	log.Printf("📋 Audit log: %d entries", len(l.Items))
}

func (Log) RenderLastConversation(user, ai string) {
	log.Printf("👤 %s", user)
	log.Printf("🤖 %s", ai)
}
