package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Back      key.Binding
	Login     key.Binding
	Register  key.Binding
}

var Keys = KeyMap{
	Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Login:     key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "login")),
	Register:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "register")),
}
