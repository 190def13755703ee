package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/njyeung/sprunki/backend"
	"github.com/njyeung/sprunki/page"
)

func (m Model) viewBrowsing() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var top []string
	if !m.screen.Focused() {
		top = append(top, m.viewHeader()...)
		top = append(top, navStyle.Render(strings.Repeat("─", m.width)))
	}
	if form := m.composer.View(m.width); form != "" {
		top = append(top, form)
	}

	bottom := []string{}
	if m.snap.CanLoadMore {
		bottom = append(bottom, metaStyle.Render(fmt.Sprintf("m: Load more comments (%d remaining)", m.snap.Remaining)))
	}
	bottom = append(bottom, m.viewStatus())
	if !m.screen.Focused() {
		bottom = append(bottom,
			navStyle.Render("j/k: move  l: like  r: reply  n: new comment  s: sort"),
			navStyle.Render("f: fullscreen  F: native fullscreen  q: quit"),
		)
	}

	topBlock := strings.Join(top, "\n")
	used := lipgloss.Height(topBlock) + len(bottom)
	if topBlock == "" {
		used = len(bottom)
	}
	listHeight := max(m.height-used-1, 1)

	parts := []string{}
	if topBlock != "" {
		parts = append(parts, topBlock)
	}
	parts = append(parts, lipgloss.NewStyle().Height(listHeight).Render(m.panel.View(m.width, listHeight)))
	parts = append(parts, bottom...)
	return strings.Join(parts, "\n")
}

func (m Model) viewHeader() []string {
	sortLabel := "newest"
	if m.snap.Sort == backend.SortLikes {
		sortLabel = "most liked"
	}

	stats := m.snap.Stats
	if stats == nil {
		return []string{titleStyle.Render(fmt.Sprintf("Comments (%d)", m.snap.Total)) + "  " + metaStyle.Render("sorted by "+sortLabel)}
	}

	title := titleStyle.Render(fmt.Sprintf("Comments (%d)", stats.TotalComments))
	avg := starStyle.Render(stars(int(stats.AverageRating+0.5))) + " " + metaStyle.Render(fmt.Sprintf("%.1f", stats.AverageRating))
	lines := []string{title + "  " + avg + "  " + metaStyle.Render("sorted by "+sortLabel)}

	barWidth := max(min(m.width-16, 30), 5)
	for r := 5; r >= 1; r-- {
		count := stats.RatingDistribution[r]
		pct := 0
		if stats.TotalComments > 0 {
			pct = count * 100 / stats.TotalComments
		}
		filled := pct * barWidth / 100
		bar := starStyle.Render(strings.Repeat("█", filled)) + navStyle.Render(strings.Repeat("░", barWidth-filled))
		lines = append(lines, fmt.Sprintf("%d★ %s %s", r, bar, metaStyle.Render(fmt.Sprintf("%3d%%", pct))))
	}
	return lines
}

func (m Model) viewStatus() string {
	if m.toast != nil {
		text := runewidth.Truncate(m.toast.Message, max(m.width-2, 10), "…")
		if m.toast.Kind == page.ToastError {
			return errorStyle.Render(text)
		}
		return successStyle.Render(text)
	}
	if m.snap.Loading {
		return m.spinner.View() + " " + metaStyle.Render("Loading...")
	}
	return ""
}
