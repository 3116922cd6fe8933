package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	hitStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("180"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
)
