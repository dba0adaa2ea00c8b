package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"retune/internal/history"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	changeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	overrideStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type siteItem struct {
	view SiteView
}

func (i siteItem) Title() string {
	marker := i.view.Marker
	if i.view.Override {
		marker = overrideStyle.Render(marker + " (override)")
	}
	return fmt.Sprintf("%s = %s", marker, i.view.Value)
}

func (i siteItem) Description() string {
	return fmt.Sprintf("%s:%d", filepath.Base(i.view.File), i.view.Line)
}

func (i siteItem) FilterValue() string { return i.view.File + i.view.Marker }

type updateMsg struct {
	views   []SiteView
	changes []history.Change
}

type uiModel struct {
	sites      list.Model
	changeLog  []string
	lastUpdate time.Time
	width      int
}

func newUIModel(views []SiteView) uiModel {
	items := siteItems(views)
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Tweakable literals"
	l.SetShowStatusBar(false)
	return uiModel{sites: l, lastUpdate: time.Now()}
}

func siteItems(views []SiteView) []list.Item {
	items := make([]list.Item, 0, len(views))
	for _, v := range views {
		items = append(items, siteItem{view: v})
	}
	return items
}

func (m uiModel) Init() tea.Cmd { return nil }

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		h, v := docStyle.GetFrameSize()
		m.sites.SetSize(msg.Width-h, msg.Height-v-6)
	case updateMsg:
		m.sites.SetItems(siteItems(msg.views))
		m.lastUpdate = time.Now()
		for _, c := range msg.changes {
			line := fmt.Sprintf("%s %s:%d  %s -> %s",
				c.Time.Local().Format("15:04:05"),
				filepath.Base(c.File), c.Line, c.OldValue, c.NewValue)
			m.changeLog = append([]string{line}, m.changeLog...)
		}
		if len(m.changeLog) > 8 {
			m.changeLog = m.changeLog[:8]
		}
	}

	var cmd tea.Cmd
	m.sites, cmd = m.sites.Update(msg)
	return m, cmd
}

func (m uiModel) View() string {
	out := titleStyle("retune") + "\n"
	out += docStyle.Render(m.sites.View()) + "\n"

	if len(m.changeLog) > 0 {
		out += changeStyle.Render("Recent edits") + "\n"
		for _, line := range m.changeLog {
			out += "  " + line + "\n"
		}
	}
	out += statusStyle.Render(fmt.Sprintf("updated %s  (q to quit)", m.lastUpdate.Format("15:04:05")))
	return out
}

// RunUI starts the live terminal view and keeps it fed from the notify
// watcher.
func RunUI(app *App) error {
	p := tea.NewProgram(newUIModel(app.Sites()), tea.WithAltScreen())

	if err := app.StartWatcher(func(changes []history.Change) {
		p.Send(updateMsg{views: app.Sites(), changes: changes})
	}); err != nil {
		return err
	}

	_, err := p.Run()
	return err
}
