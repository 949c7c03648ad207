package prefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenEmpty(t *testing.T) {
	s := NewService(NewMemoryBackend())

	p := s.Load()

	assert.Equal(t, Default(), p)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewService(NewMemoryBackend())

	p := Preferences{
		TypeFilter:     TypeBug,
		TicketFilter:   TicketNo,
		SeverityFilter: SeverityHigh,
		SortField:      SortFrequency,
		SortDirection:  SortAsc,
	}
	require.NoError(t, s.Save(p))

	assert.Equal(t, p, s.Load())
}

func TestLoadIgnoresBogusStoredValues(t *testing.T) {
	b := NewMemoryBackend()
	b.Seed("issues.type_filter", "banana")
	b.Seed("issues.jira_status_filter", "no_ticket")
	b.Seed("issues.severity_filter", ">=9000")
	b.Seed("issues.sort_field", "frequency")
	b.Seed("issues.sort_direction", "sideways")

	p := NewService(b).Load()

	// Unparsable dimensions fall back independently; valid ones survive.
	assert.Equal(t, TypeAll, p.TypeFilter)
	assert.Equal(t, TicketNo, p.TicketFilter)
	assert.Equal(t, SeverityAll, p.SeverityFilter)
	assert.Equal(t, SortFrequency, p.SortField)
	assert.Equal(t, SortDesc, p.SortDirection)
}

func TestFilterCycles(t *testing.T) {
	assert.Equal(t, TypeBug, TypeAll.Next())
	assert.Equal(t, TypeFeature, TypeBug.Next())
	assert.Equal(t, TypeAll, TypeFeature.Next())

	assert.Equal(t, TicketHas, TicketAll.Next())
	assert.Equal(t, TicketNo, TicketHas.Next())
	assert.Equal(t, TicketAll, TicketNo.Next())

	assert.Equal(t, SeverityHigh, SeverityAll.Next())
	assert.Equal(t, SeverityLow, SeverityHigh.Next())
	assert.Equal(t, SeverityAll, SeverityLow.Next())
}
