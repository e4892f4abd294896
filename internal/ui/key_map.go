package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/libstats/internal/stats"
)

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	day       key.Binding
	month     key.Binding
	year      key.Binding
	weekday   key.Binding
	genre     key.Binding
	save      key.Binding
	snapshots key.Binding
	enter     key.Binding
	back      key.Binding
	help      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		day:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "by day")),
		month:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "by month")),
		year:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "by year")),
		weekday:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "by weekday")),
		genre:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "by genre")),
		save:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save snapshot")),
		snapshots: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "snapshots")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// policyFor returns the policy bound to msg, if any.
func (k keyMap) policyFor(msg tea.KeyMsg) (stats.Policy, bool) {
	switch {
	case key.Matches(msg, k.day):
		return stats.ByDay, true
	case key.Matches(msg, k.month):
		return stats.ByMonth, true
	case key.Matches(msg, k.year):
		return stats.ByYear, true
	case key.Matches(msg, k.weekday):
		return stats.ByWeekday, true
	case key.Matches(msg, k.genre):
		return stats.ByGenre, true
	}
	return "", false
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.month, k.weekday, k.genre, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.day, k.month, k.year, k.weekday, k.genre},
		{k.save, k.snapshots, k.enter, k.back},
		{k.help, k.quit},
	}
}
