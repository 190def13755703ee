package tui

import (
	"fmt"
	"strings"
)

func (m Model) viewLoading() string {
	if m.width == 0 || m.height == 0 {
		return fmt.Sprintf("\n\n   %s %s\n\n", m.spinner.View(), m.status)
	}

	return renderLoadingScreen(m.width, m.height, m.spinner.View()+" "+m.status)
}

func renderLoadingScreen(width, height int, status string) string {
	logo := []string{
		" ___ ___ ___ _   _ _  _ _  _____",
		"/ __| _ \\ _ \\ | | | \\| | |/ /_ _|",
		"\\__ \\  _/   / |_| | .` | ' < | |",
		"|___/_| |_|_\\\\___/|_|\\_|_|\\_\\___|",
	}

	blockHeight := len(logo) + 2
	startRow := (height - blockHeight) / 2

	var b strings.Builder
	for y := 0; y < height; y++ {
		var text string
		switch {
		case y >= startRow && y < startRow+len(logo):
			text = titleStyle.Render(center(logo[y-startRow], width))
		case y == startRow+len(logo)+1:
			text = center(status, width)
		default:
			text = strings.Repeat(" ", width)
		}
		b.WriteString(text)
		if y < height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func center(text string, width int) string {
	runes := []rune(text)
	if len(runes) > width {
		return string(runes[:width])
	}
	pad := width - len(runes)
	left := pad / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", pad-left)
}
