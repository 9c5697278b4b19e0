package sink

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title        lipgloss.Style
	header       lipgloss.Style
	connected    lipgloss.Style
	disconnected lipgloss.Style
	hardware     lipgloss.Style
	simulation   lipgloss.Style
	section      lipgloss.Style
	activeTab    lipgloss.Style
	tab          lipgloss.Style
	empty        lipgloss.Style
	playing      lipgloss.Style
	user         lipgloss.Style
	ai           lipgloss.Style
	meta         lipgloss.Style
	method       lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:        lipgloss.NewStyle().Bold(true),
		header:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		connected:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		disconnected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		hardware:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		simulation:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		section:      lipgloss.NewStyle().MarginTop(1),
		activeTab:    lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("39")),
		tab:          lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		empty:        lipgloss.NewStyle().Faint(true),
		playing:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),
		user:         lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		ai:           lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		meta:         lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		method:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")),
	}
}
