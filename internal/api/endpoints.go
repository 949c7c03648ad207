package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/killthenoise/killthenoise/internal/model"
)

// AuthURL is the backend's response to an authorization-URL request.
type AuthURL struct {
	AuthorizationURL string `json:"authorization_url"`
	IntegrationID    string `json:"integration_id"`
}

// GetAuthStatus fetches the connection state of one provider for the
// client's tenant.
func (c *Client) GetAuthStatus(ctx context.Context, provider model.Provider) (*model.AuthStatus, error) {
	path := fmt.Sprintf("/api/integrations/%s/auth-status/%s",
		url.PathEscape(string(provider)), url.PathEscape(c.tenantID))

	var status model.AuthStatus
	if err := c.get(ctx, path, &status); err != nil {
		return nil, fmt.Errorf("fetching %s auth status: %w", provider, err)
	}
	return &status, nil
}

// GetAuthURL asks the backend for an OAuth authorization URL for the
// given provider. The client never performs any token exchange itself;
// it only opens the returned URL.
func (c *Client) GetAuthURL(ctx context.Context, provider model.Provider) (*AuthURL, error) {
	path := fmt.Sprintf("/api/integrations/%s/authorize/%s",
		url.PathEscape(string(provider)), url.PathEscape(c.tenantID))

	var out AuthURL
	if err := c.get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("fetching %s authorization URL: %w", provider, err)
	}
	if out.AuthorizationURL == "" {
		return nil, fmt.Errorf("backend returned no authorization URL for %s", provider)
	}
	return &out, nil
}

// RefreshToken asks the backend to refresh the stored credential behind
// integrationID. A success=false response surfaces as an APIError.
func (c *Client) RefreshToken(ctx context.Context, provider model.Provider, integrationID string) error {
	path := fmt.Sprintf("/api/integrations/%s/refresh-token/%s/%s",
		url.PathEscape(string(provider)), url.PathEscape(c.tenantID),
		url.PathEscape(integrationID))

	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("refreshing %s token: %w", provider, err)
	}
	return nil
}

// ListIssueGroups fetches up to limit AI-clustered issue groups for the
// client's tenant.
func (c *Client) ListIssueGroups(ctx context.Context, limit int) ([]model.IssueGroup, error) {
	q := url.Values{}
	q.Set("tenant_id", c.tenantID)
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}

	var groups []model.IssueGroup
	if err := c.get(ctx, "/api/ai-issues?"+q.Encode(), &groups); err != nil {
		return nil, fmt.Errorf("listing issue groups: %w", err)
	}
	return groups, nil
}

// GetGroupReports fetches the raw reports contributing to one group.
func (c *Client) GetGroupReports(ctx context.Context, groupID string) ([]model.ReportItem, error) {
	path := fmt.Sprintf("/api/ai-issues/%s/reports", url.PathEscape(groupID))

	var reports []model.ReportItem
	if err := c.get(ctx, path, &reports); err != nil {
		return nil, fmt.Errorf("listing reports for group %s: %w", groupID, err)
	}
	return reports, nil
}

// TicketRequest is the payload for creating a Jira ticket from a group.
type TicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateJiraTicket creates a Jira ticket from an issue group and
// associates it with the group on the backend.
func (c *Client) CreateJiraTicket(ctx context.Context, groupID string, req TicketRequest) (*model.CreatedTicket, error) {
	path := fmt.Sprintf("/api/ai-issues/%s/create-jira-ticket?tenant_id=%s",
		url.PathEscape(groupID), url.QueryEscape(c.tenantID))

	var ticket model.CreatedTicket
	if err := c.post(ctx, path, req, &ticket); err != nil {
		return nil, fmt.Errorf("creating ticket for group %s: %w", groupID, err)
	}
	return &ticket, nil
}

// descriptionRequest is the payload for AI description generation.
type descriptionRequest struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// descriptionResponse is the AI description generation payload.
type descriptionResponse struct {
	Description string `json:"description"`
}

// GenerateJiraDescription asks the backend's AI service to draft a
// ticket description from a group's title and summary.
func (c *Client) GenerateJiraDescription(ctx context.Context, title, summary string) (string, error) {
	var out descriptionResponse
	err := c.post(ctx, "/api/ai/generate-jira-description",
		descriptionRequest{Title: title, Summary: summary}, &out)
	if err != nil {
		return "", fmt.Errorf("generating ticket description: %w", err)
	}
	return out.Description, nil
}
