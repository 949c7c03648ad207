package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killthenoise/killthenoise/internal/model"
)

func newTestClient(url string) *Client {
	return NewClient(url, "tenant-1", 5*time.Second)
}

func TestGetAuthStatusEnvelopeNested(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/integrations/slack/auth-status/tenant-1", r.URL.Path)
		assert.Equal(t, "tenant-1", r.Header.Get("X-Tenant-ID"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": {"authenticated": true, "team": "Acme", "message": "connected"}
		}`))
	}))
	defer srv.Close()

	status, err := newTestClient(srv.URL).GetAuthStatus(context.Background(), model.ProviderSlack)

	require.NoError(t, err)
	assert.True(t, status.Authenticated)
	assert.Equal(t, "Acme", status.Team)
}

func TestGetAuthStatusRootPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"authenticated": false, "needs_auth": true, "message": "authorize"}`))
	}))
	defer srv.Close()

	status, err := newTestClient(srv.URL).GetAuthStatus(context.Background(), model.ProviderHubSpot)

	require.NoError(t, err)
	assert.False(t, status.Authenticated)
	assert.True(t, status.NeedsAuth)
}

func TestSuccessFalseBecomesAPIErrorEvenOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "message": "integration not configured"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetAuthStatus(context.Background(), model.ProviderJira)

	require.Error(t, err)
	assert.True(t, IsAPIError(err))
	assert.Contains(t, err.Error(), "integration not configured")
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tenant not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ListIssueGroups(context.Background(), 20)

	require.Error(t, err)
	assert.True(t, IsAPIError(err))
	assert.Contains(t, err.Error(), "tenant not found")
}

func TestListIssueGroupsQueryAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai-issues", r.URL.Path)
		assert.Equal(t, "tenant-1", r.URL.Query().Get("tenant_id"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": [
				{
					"id": "g1",
					"title": "Login fails",
					"summary": "500s at peak",
					"severity": 91.5,
					"type": "bug",
					"frequency": 12,
					"sources": [{"source": "slack", "count": 9}],
					"updated_at": "2026-08-30T10:00:00Z"
				},
				{
					"id": "g2",
					"title": "Dark mode",
					"summary": "",
					"severity": null,
					"type": "feature_request",
					"frequency": 3,
					"sources": [],
					"updated_at": "2026-08-29T08:00:00Z"
				}
			]
		}`))
	}))
	defer srv.Close()

	groups, err := newTestClient(srv.URL).ListIssueGroups(context.Background(), 20)

	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.NotNil(t, groups[0].Severity)
	assert.InDelta(t, 91.5, *groups[0].Severity, 0.001)
	assert.Nil(t, groups[1].Severity, "null severity stays nil")
	assert.Equal(t, model.IssueTypeFeature, groups[1].Type)
}

func TestRateLimitRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "data": []}`))
	}))
	defer srv.Close()

	groups, err := newTestClient(srv.URL).ListIssueGroups(context.Background(), 0)

	require.NoError(t, err)
	assert.Empty(t, groups)
	assert.Equal(t, 3, attempts)
}

func TestRateLimitGivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ListIssueGroups(context.Background(), 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
}

func TestGetAuthURLRejectsEmptyURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "data": {"authorization_url": "", "integration_id": "int-1"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetAuthURL(context.Background(), model.ProviderSlack)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no authorization URL")
}

func TestCreateJiraTicketPostBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ai-issues/g1/create-jira-ticket", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": {"ticket_key": "ENG-42", "ticket_url": "https://jira.example/ENG-42"}
		}`))
	}))
	defer srv.Close()

	ticket, err := newTestClient(srv.URL).CreateJiraTicket(context.Background(), "g1",
		TicketRequest{Title: "Login fails", Description: "desc"})

	require.NoError(t, err)
	assert.Equal(t, "ENG-42", ticket.TicketKey)
}

func TestWithTenant(t *testing.T) {
	c := newTestClient("http://localhost:8000")
	scoped := c.WithTenant("tenant-2")

	assert.Equal(t, "tenant-1", c.TenantID())
	assert.Equal(t, "tenant-2", scoped.TenantID())
}
