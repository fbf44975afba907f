package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Spotify green for the progress bar, the rest follow the terminal palette.
var styles = NewPalette("#1DB954", "#04B575", "#FF5F56", "#FFA500", "#626262")

// Palette is a small stylesheet built with named [lipgloss.Style] fields.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	bar   lipgloss.Style
	track lipgloss.Style
}

func NewPalette(accent, ok, err, warn, muted string) *Palette {
	return &Palette{
		title: NewBold(accent).MarginBottom(1),
		ok:    NewBold(ok),
		err:   NewBold(err),
		warn:  NewStyle(warn),
		help:  NewEm(muted),
		bar:   NewStyle(accent),
		track: NewStyle(muted),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
