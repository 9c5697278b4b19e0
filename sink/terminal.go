package sink

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/room4-2/lelamp-dashboard/messages"
	"github.com/room4-2/lelamp-dashboard/state"
)

const clearScreen = "\033[H\033[2J"

var expressionIcons = map[string]string{
	"happy_wiggle": "🎉", "nod": "👍", "headshake": "👎", "curious": "🤔",
	"excited": "🤩", "sad": "😢", "shy": "😊", "shock": "😱",
	"scanning": "👀", "wake_up": "👋", "idle": "💤",
}

// Terminal redraws the whole dashboard on every render call
type Terminal struct {
	out    io.Writer
	styles styles
	clear  bool

	mu            sync.Mutex
	connected     bool
	hardware      bool
	session       state.SessionInfo
	color         state.Color
	panel         state.Panel
	expressions   state.Listing[string]
	playing       map[string]bool
	conversations state.Listing[messages.Conversation]
	auditLogs     state.Listing[messages.AuditLog]
	lastUser      string
	lastAI        string
	reply         string
}

// NewTerminal creates a sink drawing to out. clear controls whether the
// screen is wiped before each redraw.
func NewTerminal(out io.Writer, clear bool) *Terminal {
	return &Terminal{
		out:     out,
		styles:  newStyles(),
		clear:   clear,
		color:   state.White,
		playing: make(map[string]bool),
	}
}

func (t *Terminal) RenderConnection(connected bool) {
	t.update(func() { t.connected = connected })
}

func (t *Terminal) RenderHardwareBadge(hardware bool) {
	t.update(func() { t.hardware = hardware })
}

func (t *Terminal) RenderSession(info state.SessionInfo) {
	t.update(func() { t.session = info })
}

func (t *Terminal) RenderColor(c state.Color) {
	t.update(func() { t.color = c })
}

func (t *Terminal) RenderPanel(p state.Panel) {
	t.update(func() { t.panel = p })
}

func (t *Terminal) RenderExpressionsCatalog(l state.Listing[string], _ func(name string)) {
	t.update(func() { t.expressions = l })
}

func (t *Terminal) RenderExpressionPlaying(name string, playing bool) {
	t.update(func() {
		if playing {
			t.playing[name] = true
		} else {
			delete(t.playing, name)
		}
	})
}

func (t *Terminal) RenderConversations(l state.Listing[messages.Conversation]) {
	t.update(func() { t.conversations = l })
}

func (t *Terminal) RenderAuditLog(l state.Listing[messages.AuditLog]) {
	t.update(func() { t.auditLogs = l })
}

func (t *Terminal) RenderLastConversation(user, ai string) {
	t.update(func() { t.lastUser, t.lastAI = user, ai })
}

func (t *Terminal) update(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn()
	view := t.view()
	if t.clear {
		view = clearScreen + view
	}
	fmt.Fprintln(t.out, view)
}

// Console returns a writer for operator console replies. The latest reply
// is drawn under the dashboard, so a redraw that clears the screen keeps it.
func (t *Terminal) Console() io.Writer {
	return consoleWriter{t: t}
}

type consoleWriter struct {
	t *Terminal
}

func (w consoleWriter) Write(p []byte) (int, error) {
	reply := strings.TrimRight(string(p), "\n")
	w.t.update(func() { w.t.reply = reply })
	return len(p), nil
}

// View returns the current dashboard as text
func (t *Terminal) View() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view()
}

func (t *Terminal) view() string {
	s := t.styles
	lines := []string{
		s.title.Render("LeLamp Dashboard"),
		t.statusLine(),
		t.colorLine(),
		s.section.Render(t.lastConversationBlock()),
		s.section.Render(t.tabs()),
	}

	switch t.panel {
	case state.PanelConversations:
		lines = append(lines, t.conversationsBlock())
	case state.PanelLogs:
		lines = append(lines, t.auditLogBlock())
	default:
		lines = append(lines, t.expressionsBlock())
	}
	if t.reply != "" {
		lines = append(lines, s.section.Render(s.meta.Render("> ")+t.reply))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (t *Terminal) statusLine() string {
	s := t.styles
	conn := s.disconnected.Render("● Disconnected")
	if t.connected {
		conn = s.connected.Render("● Connected")
	}
	badge := s.simulation.Render("● Simulation Mode")
	if t.hardware {
		badge = s.hardware.Render("● Hardware Connected")
	}
	session := s.header.Render("session " + t.session.ShortID())
	return strings.Join([]string{conn, badge, session}, "  ")
}

func (t *Terminal) colorLine() string {
	swatch := lipgloss.NewStyle().
		Background(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", t.color.R, t.color.G, t.color.B))).
		Render("      ")
	return fmt.Sprintf("%s %s", swatch, t.color)
}

func (t *Terminal) lastConversationBlock() string {
	s := t.styles
	if t.lastUser == "" && t.lastAI == "" {
		return s.empty.Render("No conversation yet")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		s.user.Render("👤 "+t.lastUser),
		s.ai.Render("🤖 "+t.lastAI),
	)
}

func (t *Terminal) tabs() string {
	names := []state.Panel{state.PanelExpressions, state.PanelConversations, state.PanelLogs}
	parts := make([]string, 0, len(names))
	for _, p := range names {
		if p == t.panel {
			parts = append(parts, t.styles.activeTab.Render(p.String()))
		} else {
			parts = append(parts, t.styles.tab.Render(p.String()))
		}
	}
	return strings.Join(parts, " │ ")
}

func (t *Terminal) expressionsBlock() string {
	s := t.styles
	if text := ExpressionsPlaceholder(t.expressions); text != "" {
		return s.empty.Render(text)
	}
	lines := make([]string, 0, len(t.expressions.Items))
	for _, name := range t.expressions.Items {
		icon, ok := expressionIcons[name]
		if !ok {
			icon = "🤖"
		}
		line := fmt.Sprintf("%s %s", icon, strings.ReplaceAll(name, "_", " "))
		if t.playing[name] {
			line = s.playing.Render(line + "  ▶ playing")
		}
		lines = append(lines, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (t *Terminal) conversationsBlock() string {
	s := t.styles
	if text := ConversationsPlaceholder(t.conversations); text != "" {
		return s.empty.Render(text)
	}
	cards := make([]string, 0, len(t.conversations.Items))
	for _, c := range t.conversations.Items {
		inputType := c.InputType
		if inputType == "" {
			inputType = messages.InputText
		}
		cards = append(cards, lipgloss.JoinVertical(lipgloss.Left,
			s.meta.Render(fmt.Sprintf("%s  %s", formatTime(c.Timestamp), inputType)),
			s.user.Render("👤 "+orDash(c.UserInput)),
			s.ai.Render("🤖 "+orDash(c.AIResponse)),
		))
	}
	return strings.Join(cards, "\n\n")
}

func (t *Terminal) auditLogBlock() string {
	s := t.styles
	if text := AuditLogPlaceholder(t.auditLogs); text != "" {
		return s.empty.Render(text)
	}
	rows := make([]string, 0, len(t.auditLogs.Items))
	for _, l := range t.auditLogs.Items {
		status := "—"
		if l.Response.StatusCode != 0 {
			status = fmt.Sprintf("%d", l.Response.StatusCode)
		}
		rows = append(rows, fmt.Sprintf("%-16s %-28s %s %8.1fms %s",
			formatTime(l.Timestamp), l.Endpoint, s.method.Render(fmt.Sprintf("%-6s", l.Method)), l.DurationMs, status))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "—"
	}
	return ts.Local().Format("Jan 2, 15:04:05")
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
