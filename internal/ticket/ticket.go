// Package ticket drives Jira ticket creation for an issue group: field
// validation, AI-assisted description drafting with a deterministic
// template fallback, and the create call itself.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/killthenoise/killthenoise/internal/api"
	"github.com/killthenoise/killthenoise/internal/model"
)

const requestTimeout = 30 * time.Second

// ErrMissingFields is returned when title or description is blank
// after trimming whitespace.
var ErrMissingFields = errors.New("title and description are required")

// API is the slice of the backend client ticket creation depends on.
type API interface {
	CreateJiraTicket(ctx context.Context, groupID string, req api.TicketRequest) (*model.CreatedTicket, error)
	GenerateJiraDescription(ctx context.Context, title, summary string) (string, error)
}

// CreatedMsg is a tea.Msg sent when a create attempt resolved.
type CreatedMsg struct {
	GroupID string
	Ticket  *model.CreatedTicket
	Err     string
}

// DescriptionMsg is a tea.Msg carrying a drafted description. Fallback
// reports whether the local template was used instead of the backend.
type DescriptionMsg struct {
	GroupID     string
	Description string
	Fallback    bool
}

// Creator submits ticket requests for issue groups.
type Creator struct {
	client API
}

func NewCreator(client API) *Creator {
	return &Creator{client: client}
}

// Validate checks the form fields the way the create endpoint will.
func Validate(title, description string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
		return ErrMissingFields
	}
	return nil
}

// Create returns a tea.Cmd creating a Jira ticket for the group. Blank
// fields fail locally without a backend call.
func (c *Creator) Create(groupID, title, description string) tea.Cmd {
	return func() tea.Msg {
		if err := Validate(title, description); err != nil {
			return CreatedMsg{GroupID: groupID, Err: err.Error()}
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		req := api.TicketRequest{
			Title:       strings.TrimSpace(title),
			Description: description,
		}
		created, err := c.client.CreateJiraTicket(ctx, groupID, req)
		if err != nil {
			return CreatedMsg{GroupID: groupID, Err: err.Error()}
		}
		return CreatedMsg{GroupID: groupID, Ticket: created}
	}
}

// GenerateDescription returns a tea.Cmd drafting a ticket description
// for the group. It asks the backend first and falls back to a local
// template on any error, so the action always yields usable text.
func (c *Creator) GenerateDescription(group model.IssueGroup) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		desc, err := c.client.GenerateJiraDescription(ctx, group.Title, group.Summary)
		if err == nil && strings.TrimSpace(desc) != "" {
			return DescriptionMsg{GroupID: group.ID, Description: desc}
		}
		return DescriptionMsg{
			GroupID:     group.ID,
			Description: TemplateDescription(group),
			Fallback:    true,
		}
	}
}

// TemplateDescription builds the deterministic fallback description. It
// always contains the group's title and summary so the form is never
// left empty when the drafting service is down.
func TemplateDescription(group model.IssueGroup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "h2. %s\n\n", group.Title)
	b.WriteString("h3. Problem\n")
	if strings.TrimSpace(group.Summary) != "" {
		fmt.Fprintf(&b, "%s\n\n", group.Summary)
	} else {
		b.WriteString("Customers reported this issue across multiple channels.\n\n")
	}
	b.WriteString("h3. User Story\n")
	fmt.Fprintf(&b, "As a customer, I want \"%s\" resolved so that I can continue using the product without disruption.\n\n", group.Title)
	b.WriteString("h3. Acceptance Criteria\n")
	b.WriteString("* The reported behavior no longer occurs\n")
	b.WriteString("* Affected customers are notified of the fix\n")
	b.WriteString("* Regression coverage is added\n\n")
	b.WriteString("h3. Additional Information\n")
	fmt.Fprintf(&b, "Reported %d time(s)", group.Frequency)
	if len(group.Sources) > 0 {
		parts := make([]string, 0, len(group.Sources))
		for _, s := range group.Sources {
			parts = append(parts, fmt.Sprintf("%s: %d", s.Source, s.Count))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString(".\n")
	if group.Reasoning != "" {
		fmt.Fprintf(&b, "\nAnalysis: %s\n", group.Reasoning)
	}
	return b.String()
}
