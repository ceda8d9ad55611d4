package view

import (
	tea "github.com/charmbracelet/bubbletea"
)

// View is a menu screen. ShortHelp is rendered below it by the root model.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}
