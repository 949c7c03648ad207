// Package prefs persists the operator's issue-list filter and sort
// preferences. Storage is behind a small backend interface so tests can
// run against an in-memory map while the app uses a viper-backed file.
// Preferences are keyed tenant-agnostically; switching tenants keeps
// them.
package prefs

import "fmt"

// TypeFilter narrows the issue list by classification.
type TypeFilter string

const (
	TypeAll     TypeFilter = "all"
	TypeBug     TypeFilter = "bug"
	TypeFeature TypeFilter = "feature_request"
)

// TicketFilter narrows the issue list by Jira ticket presence.
type TicketFilter string

const (
	TicketAll TicketFilter = "all"
	TicketHas TicketFilter = "has_ticket"
	TicketNo  TicketFilter = "no_ticket"
)

// SeverityFilter narrows the issue list by severity threshold.
type SeverityFilter string

const (
	SeverityAll  SeverityFilter = "all"
	SeverityHigh SeverityFilter = ">=80"
	SeverityLow  SeverityFilter = "<80"
)

// SortField selects the issue list sort key.
type SortField string

const (
	SortSeverity  SortField = "severity"
	SortFrequency SortField = "frequency"
	SortTitle     SortField = "title"
	SortUpdatedAt SortField = "updated_at"
)

// SortDirection selects ascending or descending order.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Preferences holds every persisted issue-list view setting.
type Preferences struct {
	TypeFilter     TypeFilter
	TicketFilter   TicketFilter
	SeverityFilter SeverityFilter
	SortField      SortField
	SortDirection  SortDirection
}

// Default returns the documented default preferences.
func Default() Preferences {
	return Preferences{
		TypeFilter:     TypeAll,
		TicketFilter:   TicketAll,
		SeverityFilter: SeverityAll,
		SortField:      SortSeverity,
		SortDirection:  SortDesc,
	}
}

// Storage keys. Plain strings so any backend can round-trip them.
const (
	keyTypeFilter     = "issues.type_filter"
	keyTicketFilter   = "issues.jira_status_filter"
	keySeverityFilter = "issues.severity_filter"
	keySortField      = "issues.sort_field"
	keySortDirection  = "issues.sort_direction"
)

// Backend is the storage a Service reads and writes preferences through.
// Get reports whether a value was present; Set persists immediately.
type Backend interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Service loads and saves preferences through an injected backend,
// validating every stored value and falling back to the documented
// default for anything unrecognized or corrupt.
type Service struct {
	backend Backend
}

// NewService creates a preferences service over the given backend.
func NewService(b Backend) *Service {
	return &Service{backend: b}
}

// Load reads all preferences from the backend. Missing or invalid
// values resolve to their defaults; Load never fails.
func (s *Service) Load() Preferences {
	p := Default()

	if v, ok := s.backend.Get(keyTypeFilter); ok {
		if tf, valid := parseTypeFilter(v); valid {
			p.TypeFilter = tf
		}
	}
	if v, ok := s.backend.Get(keyTicketFilter); ok {
		if tf, valid := parseTicketFilter(v); valid {
			p.TicketFilter = tf
		}
	}
	if v, ok := s.backend.Get(keySeverityFilter); ok {
		if sf, valid := parseSeverityFilter(v); valid {
			p.SeverityFilter = sf
		}
	}
	if v, ok := s.backend.Get(keySortField); ok {
		if f, valid := parseSortField(v); valid {
			p.SortField = f
		}
	}
	if v, ok := s.backend.Get(keySortDirection); ok {
		if d, valid := parseSortDirection(v); valid {
			p.SortDirection = d
		}
	}

	return p
}

// Save writes all preferences to the backend.
func (s *Service) Save(p Preferences) error {
	pairs := []struct {
		key   string
		value string
	}{
		{keyTypeFilter, string(p.TypeFilter)},
		{keyTicketFilter, string(p.TicketFilter)},
		{keySeverityFilter, string(p.SeverityFilter)},
		{keySortField, string(p.SortField)},
		{keySortDirection, string(p.SortDirection)},
	}

	for _, pair := range pairs {
		if err := s.backend.Set(pair.key, pair.value); err != nil {
			return fmt.Errorf("persisting %s: %w", pair.key, err)
		}
	}
	return nil
}

func parseTypeFilter(v string) (TypeFilter, bool) {
	switch TypeFilter(v) {
	case TypeAll, TypeBug, TypeFeature:
		return TypeFilter(v), true
	}
	return "", false
}

func parseTicketFilter(v string) (TicketFilter, bool) {
	switch TicketFilter(v) {
	case TicketAll, TicketHas, TicketNo:
		return TicketFilter(v), true
	}
	return "", false
}

func parseSeverityFilter(v string) (SeverityFilter, bool) {
	switch SeverityFilter(v) {
	case SeverityAll, SeverityHigh, SeverityLow:
		return SeverityFilter(v), true
	}
	return "", false
}

func parseSortField(v string) (SortField, bool) {
	switch SortField(v) {
	case SortSeverity, SortFrequency, SortTitle, SortUpdatedAt:
		return SortField(v), true
	}
	return "", false
}

func parseSortDirection(v string) (SortDirection, bool) {
	switch SortDirection(v) {
	case SortAsc, SortDesc:
		return SortDirection(v), true
	}
	return "", false
}
