package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the terminal client's key bindings with built-in help text.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding

	Up   key.Binding
	Down key.Binding
	Open key.Binding

	Magnitude      key.Binding
	ClearMagnitude key.Binding
	ToggleProvider key.Binding
	SelectUSGS     key.Binding
	SelectEMSC     key.Binding
	NearMe         key.Binding
	Refresh        key.Binding
	Chart          key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter", "o"),
			key.WithHelp("enter/o", "open details"),
		),
		Magnitude: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "toggle min magnitude"),
		),
		ClearMagnitude: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "clear magnitude"),
		),
		ToggleProvider: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "switch provider"),
		),
		SelectUSGS: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "USGS"),
		),
		SelectEMSC: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "EMSC"),
		),
		NearMe: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "near me"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Chart: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "toggle chart"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Magnitude, k.ToggleProvider, k.NearMe, k.Refresh, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Chart},
		{k.Magnitude, k.ClearMagnitude, k.NearMe},
		{k.ToggleProvider, k.SelectUSGS, k.SelectEMSC},
		{k.Refresh, k.Help, k.Quit},
	}
}
