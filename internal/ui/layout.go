// Package ui provides the shared terminal frame every view renders
// into: a header row carrying the title, the unread badge, and the
// connection status, then the content area, then a status bar split
// into key hints and the active view's label.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/killthenoise/killthenoise/internal/theme"
)

// The frame always spends exactly one row above and one below the
// content area.
const frameRows = 2

// Layout slices the terminal into the frame rows and the content area.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout for the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows left for the active view.
func (l Layout) ContentHeight() int {
	return l.Height - frameRows
}

// RenderHeader draws the header row: the title, an unread badge when
// non-empty, and the connection status pushed to the right edge.
func (l Layout) RenderHeader(title, badge, status string) string {
	left := theme.HeaderStyle.Render(title)
	if badge != "" {
		left = lipgloss.JoinHorizontal(lipgloss.Top, left, theme.BadgeStyle.Render(badge))
	}
	right := theme.HeaderStyle.Render(status)

	return l.row(left, right, theme.HeaderStyle)
}

// RenderStatusBar draws the bottom row: key hints or a transient status
// message on the left, the active view's label on the right.
func (l Layout) RenderStatusBar(hints, viewLabel string) string {
	left := theme.StatusBarStyle.Render(hints)
	right := theme.StatusBarStyle.Render(viewLabel)

	return l.row(left, right, theme.StatusBarStyle)
}

// row joins a left and right segment on one full-width line, filling
// the middle with the bar's background.
func (l Layout) row(left, right string, bar lipgloss.Style) string {
	gap := l.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	fill := bar.Padding(0).Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, fill, right)
}

// RenderWithFrame stacks the header, content area, and status bar into
// the final terminal view.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
