package issuetable

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/killthenoise/killthenoise/internal/model"
	"github.com/killthenoise/killthenoise/internal/theme"
)

// GroupItem wraps a model.IssueGroup so it can be used in a bubbles/list.
type GroupItem struct {
	Group     model.IssueGroup
	HasTicket bool
}

// FilterValue returns the string used for fuzzy filtering.
func (i GroupItem) FilterValue() string { return i.Group.Title }

// Title returns the group title for the list.
func (i GroupItem) Title() string { return i.Group.Title }

// Description returns a short summary line for the list.
func (i GroupItem) Description() string {
	parts := []string{
		string(i.Group.Type),
		fmt.Sprintf("%d reports", i.Group.Frequency),
		relativeTime(i.Group.UpdatedAt),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering group rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single group row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	gi, ok := item.(GroupItem)
	if !ok {
		return
	}

	g := gi.Group
	isSelected := index == m.Index()

	sevBadge := theme.SeverityStyle(g.SeverityOrZero()).
		Render(severityLabel(g.Severity))

	typeBadge := theme.TypeStyle(string(g.Type)).Render(typeLabel(g.Type))

	freq := theme.DimmedStyle.Render(fmt.Sprintf("×%d", g.Frequency))

	ticketBadge := ""
	if gi.HasTicket {
		ticketBadge = lipgloss.NewStyle().
			Foreground(theme.ColorBlue).
			Render(" [jira]")
	}

	srcBadge := sourceSummary(g.Sources)

	timeStr := theme.DimmedStyle.Render(relativeTime(g.UpdatedAt))

	line := fmt.Sprintf(
		"%s %s %s %s%s %s  %s",
		sevBadge, typeBadge, freq, g.Title, ticketBadge, srcBadge, timeStr,
	)

	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// severityLabel renders the numeric severity badge, "--" when the
// backend supplied none.
func severityLabel(severity *float64) string {
	if severity == nil {
		return " --"
	}
	return fmt.Sprintf("%3.0f", *severity)
}

// typeLabel returns the short label shown in the type badge.
func typeLabel(t model.IssueType) string {
	switch t {
	case model.IssueTypeBug:
		return "BUG"
	case model.IssueTypeFeature:
		return "FEAT"
	default:
		return "?"
	}
}

// sourceSummary renders the per-source counts, e.g. "slack:4 jira:1".
func sourceSummary(sources []model.SourceCount) string {
	if len(sources) == 0 {
		return ""
	}
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, theme.SourceLabelStyle(s.Source).
			Render(fmt.Sprintf("%s:%d", s.Source, s.Count)))
	}
	return strings.Join(parts, " ")
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case d < 24*time.Hour:
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hrs)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		weeks := int(d.Hours() / 24 / 7)
		if weeks == 1 {
			return "1w ago"
		}
		return fmt.Sprintf("%dw ago", weeks)
	}
}
