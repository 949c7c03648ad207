package issues

import (
	"sort"
	"strings"

	"github.com/killthenoise/killthenoise/internal/model"
	"github.com/killthenoise/killthenoise/internal/prefs"
)

// compareGroups orders two groups by a single field, ascending. It is
// symmetric: compareGroups(a, b, f) == -compareGroups(b, a, f). Equal
// keys return 0 so the stable sort preserves backend order.
func compareGroups(a, b model.IssueGroup, field prefs.SortField) int {
	switch field {
	case prefs.SortFrequency:
		switch {
		case a.Frequency < b.Frequency:
			return -1
		case a.Frequency > b.Frequency:
			return 1
		}
		return 0
	case prefs.SortTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case prefs.SortUpdatedAt:
		switch {
		case a.UpdatedAt.Before(b.UpdatedAt):
			return -1
		case a.UpdatedAt.After(b.UpdatedAt):
			return 1
		}
		return 0
	default:
		av, bv := a.SeverityOrZero(), b.SeverityOrZero()
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
}

// sortGroups sorts in place by field and direction. The sort is stable,
// so groups comparing equal keep their relative backend order.
func sortGroups(groups []model.IssueGroup, field prefs.SortField, dir prefs.SortDirection) {
	sort.SliceStable(groups, func(i, j int) bool {
		c := compareGroups(groups[i], groups[j], field)
		if dir == prefs.SortDesc {
			return c > 0
		}
		return c < 0
	})
}
