package tui

import (
	"github.com/charmbracelet/bubbles/v2/key"
)

type KeyMap struct {
	Quit    key.Binding
	Help    key.Binding
	NextTab key.Binding
	Chat    key.Binding
	DMs     key.Binding
	Spy     key.Binding
	Reports key.Binding
	Focus   key.Binding
	Suspend key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+/", "ctrl+_"),
			key.WithHelp("ctrl+/", "more"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "next tab"),
		),
		Chat: key.NewBinding(
			key.WithKeys("alt+1"),
			key.WithHelp("alt+1", "chat"),
		),
		DMs: key.NewBinding(
			key.WithKeys("alt+2"),
			key.WithHelp("alt+2", "messages"),
		),
		Spy: key.NewBinding(
			key.WithKeys("alt+3"),
			key.WithHelp("alt+3", "spy"),
		),
		Reports: key.NewBinding(
			key.WithKeys("alt+4"),
			key.WithHelp("alt+4", "reports"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch focus"),
		),
		Suspend: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("ctrl+z", "suspend"),
		),
	}
}
