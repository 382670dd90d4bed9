// # cmd/treescope/ui.go
package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"treescope/internal/engine/resolver"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	unresolvedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list        list.Model
	unresolved  []unresolvedRef
	stats       resolver.Stats
	lastUpdate  time.Time
	fileCount   int
	symbolCount int
}

type updateMsg struct {
	unresolved  []unresolvedRef
	stats       resolver.Stats
	fileCount   int
	symbolCount int
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.unresolved = msg.unresolved
		m.stats = msg.stats
		m.fileCount = msg.fileCount
		m.symbolCount = msg.symbolCount
		m.lastUpdate = time.Now()

		items := []list.Item{}
		for _, u := range m.unresolved {
			items = append(items, item{
				title: fmt.Sprintf("Unresolved Call (%s)", u.Status),
				desc:  fmt.Sprintf("%s in %s:%d", u.Name, u.File, u.Line),
			})
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d files | %d symbols",
		m.lastUpdate.Format("15:04:05"), m.fileCount, m.symbolCount))

	var summary string
	if len(m.unresolved) == 0 {
		summary = successStyle.Render(fmt.Sprintf("✅ %d references resolved", m.stats.Success))
	} else {
		summary = fmt.Sprintf("⚠️  %s | %d resolved",
			unresolvedStyle.Render(fmt.Sprintf("%d Unresolved", len(m.unresolved))),
			m.stats.Success)
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Symbol Resolution Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Unresolved References"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}
