package model

import "time"

// Provider identifies a third-party system connected to a tenant.
type Provider string

const (
	ProviderSlack   Provider = "slack"
	ProviderHubSpot Provider = "hubspot"
	ProviderJira    Provider = "jira"
)

// IssueType classifies an issue group as reported by the backend.
type IssueType string

const (
	IssueTypeBug     IssueType = "bug"
	IssueTypeFeature IssueType = "feature_request"
)

// AuthStatus is the backend-reported connection state of one provider
// for a tenant. Exactly one of Authenticated and NeedsAuth is actionable
// at a time; CanRefresh may only be true when Authenticated is false but
// a stored credential still exists.
type AuthStatus struct {
	// Authenticated reports whether a valid credential is on file.
	Authenticated bool `json:"authenticated"`

	// NeedsAuth reports whether the tenant must run the OAuth flow.
	NeedsAuth bool `json:"needs_auth"`

	// CanRefresh reports whether an expired credential can be refreshed
	// without re-running the full OAuth flow.
	CanRefresh bool `json:"can_refresh"`

	// IntegrationID is the stored credential record, when one exists.
	IntegrationID string `json:"integration_id,omitempty"`

	// Message is the backend's human-readable status line.
	Message string `json:"message"`

	// Team is the connected workspace or portal name, when known.
	Team string `json:"team,omitempty"`

	// Domain is the provider account domain, when known.
	Domain string `json:"domain,omitempty"`

	// Scopes lists the OAuth scopes granted to the integration.
	Scopes []string `json:"scopes,omitempty"`
}

// SourceCount is one entry of an issue group's per-source breakdown.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// IssueGroup is a backend-computed cluster of raw customer reports
// judged similar by the server-side AI pipeline. Groups are read-only
// on the client; they are fetched, filtered and displayed as-is.
type IssueGroup struct {
	// ID is an opaque identifier, unique within the tenant.
	ID string `json:"id"`

	// Title is the cluster's short headline.
	Title string `json:"title"`

	// Summary is the cluster's longer description.
	Summary string `json:"summary"`

	// Severity is the backend urgency score on a 0-100 scale.
	// Nil when the backend has not scored the group yet.
	Severity *float64 `json:"severity"`

	// Type classifies the group as a bug or a feature request.
	Type IssueType `json:"type"`

	// Confidence is the classifier's confidence in Type, in [0,1].
	Confidence *float64 `json:"confidence,omitempty"`

	// Reasoning is the classifier's explanation for Type.
	Reasoning string `json:"reasoning,omitempty"`

	// Frequency is the count of contributing raw reports. The backend
	// keeps it equal to the sum of Sources counts; the client displays
	// it as-is without re-deriving.
	Frequency int `json:"frequency"`

	// Sources is the ordered per-source report breakdown.
	Sources []SourceCount `json:"sources"`

	// TeamID scopes the group to a product team, when assigned.
	TeamID string `json:"team_id,omitempty"`

	// UpdatedAt is when the backend last recomputed this group.
	UpdatedAt time.Time `json:"updated_at"`
}

// HasSource reports whether the group's breakdown contains the named
// source system.
func (g IssueGroup) HasSource(source string) bool {
	for _, s := range g.Sources {
		if s.Source == source {
			return true
		}
	}
	return false
}

// SeverityOrZero returns the severity score, defaulting a missing
// score to 0 for sorting and threshold checks.
func (g IssueGroup) SeverityOrZero() float64 {
	if g.Severity == nil {
		return 0
	}
	return *g.Severity
}

// ReportItem is a single raw ticket or message contributing to an
// issue group.
type ReportItem struct {
	// ID is the report's unique identifier.
	ID string `json:"id"`

	// GroupID is the owning issue group.
	GroupID string `json:"group_id"`

	// Source names the system the report was ingested from.
	Source string `json:"source"`

	// Title is the report's headline as ingested.
	Title string `json:"title"`

	// URL links back to the item in its source system, when available.
	URL string `json:"url,omitempty"`

	// ExternalID is the item's identifier in its source system
	// (e.g. a Jira issue key).
	ExternalID string `json:"external_id,omitempty"`

	// CreatedAt is when the item was created in its source system.
	CreatedAt time.Time `json:"created_at"`
}

// IsJiraTicket reports whether the report represents an existing Jira
// ticket with a known key.
func (r ReportItem) IsJiraTicket() bool {
	return r.Source == string(ProviderJira) && r.ExternalID != ""
}

// CreatedTicket is the result of creating a Jira ticket from a group.
type CreatedTicket struct {
	TicketKey string `json:"ticket_key"`
	TicketURL string `json:"ticket_url"`
}

// Notification represents an alert surfaced to the operator about a
// newly detected issue cluster.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// GroupID links this notification to the originating issue group.
	GroupID string `json:"group_id"`

	// TenantID scopes the notification to a tenant.
	TenantID string `json:"tenant_id"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Read indicates whether the operator has seen this notification.
	Read bool `json:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}
