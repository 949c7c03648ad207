package connect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killthenoise/killthenoise/internal/api"
	"github.com/killthenoise/killthenoise/internal/model"
)

// fakeBackend is a scriptable connect.API for controller tests.
type fakeBackend struct {
	mu          sync.Mutex
	statusCalls int
	statusFn    func(call int) (*model.AuthStatus, error)
	authURL     *api.AuthURL
	authURLErr  error
	refreshErr  error
	refreshed   []string
}

func (f *fakeBackend) GetAuthStatus(_ context.Context, _ model.Provider) (*model.AuthStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	return f.statusFn(f.statusCalls)
}

func (f *fakeBackend) GetAuthURL(_ context.Context, _ model.Provider) (*api.AuthURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authURLErr != nil {
		return nil, f.authURLErr
	}
	return f.authURL, nil
}

func (f *fakeBackend) RefreshToken(_ context.Context, _ model.Provider, integrationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, integrationID)
	return f.refreshErr
}

func needsAuth() *model.AuthStatus {
	return &model.AuthStatus{NeedsAuth: true, Message: "authorize the app"}
}

func authenticated() *model.AuthStatus {
	return &model.AuthStatus{Authenticated: true, IntegrationID: "int-1", Team: "Acme"}
}

func testOptions() Options {
	return Options{
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  5 * time.Second,
		OpenURL:      func(string) error { return nil },
	}
}

// collect reads controller results until pred matches or the deadline hits.
func collect(t *testing.T, c *Controller, deadline time.Duration, pred func(tea.Msg) bool) tea.Msg {
	t.Helper()
	timeout := time.After(deadline)
	for {
		got := make(chan tea.Msg, 1)
		go func() { got <- c.WaitForNextResult()() }()
		select {
		case msg := <-got:
			if pred(msg) {
				return msg
			}
		case <-timeout:
			t.Fatal("timed out waiting for controller result")
			return nil
		}
	}
}

func TestCheckAuthForeground(t *testing.T) {
	backend := &fakeBackend{statusFn: func(int) (*model.AuthStatus, error) {
		return authenticated(), nil
	}}
	c := New(backend, model.ProviderSlack, testOptions())

	msg := c.CheckAuth(false)()

	status, ok := msg.(StatusMsg)
	require.True(t, ok)
	assert.Equal(t, StateAuthenticated, status.Snapshot.State)
	assert.Equal(t, "Acme", status.Snapshot.Status.Team)
}

func TestCheckAuthForegroundErrorBlocks(t *testing.T) {
	backend := &fakeBackend{statusFn: func(int) (*model.AuthStatus, error) {
		return nil, errors.New("backend unreachable")
	}}
	c := New(backend, model.ProviderSlack, testOptions())

	msg := c.CheckAuth(false)().(StatusMsg)

	assert.Equal(t, StateError, msg.Snapshot.State)
	assert.Contains(t, msg.Snapshot.ErrorMsg, "unreachable")
}

func TestCheckAuthBackgroundErrorKeepsState(t *testing.T) {
	calls := 0
	backend := &fakeBackend{statusFn: func(int) (*model.AuthStatus, error) {
		calls++
		if calls == 1 {
			return needsAuth(), nil
		}
		return nil, errors.New("transient")
	}}
	c := New(backend, model.ProviderSlack, testOptions())

	c.CheckAuth(false)()
	msg := c.CheckAuth(true)().(StatusMsg)

	assert.Equal(t, StateNeedsAuth, msg.Snapshot.State,
		"background failure keeps the last known state")
	assert.Empty(t, msg.Snapshot.ErrorMsg)
}

func TestConnectOpensBrowserAndPollsToAuthenticated(t *testing.T) {
	backend := &fakeBackend{
		authURL: &api.AuthURL{AuthorizationURL: "https://auth.example/start", IntegrationID: "int-1"},
		statusFn: func(call int) (*model.AuthStatus, error) {
			if call < 3 {
				return needsAuth(), nil
			}
			return authenticated(), nil
		},
	}

	var opened string
	opts := testOptions()
	opts.OpenURL = func(url string) error {
		opened = url
		return nil
	}
	c := New(backend, model.ProviderSlack, opts)
	defer c.Stop()

	msg := c.Connect()()
	started, ok := msg.(ConnectStartedMsg)
	require.True(t, ok)
	assert.Equal(t, "int-1", started.IntegrationID)
	assert.Equal(t, "https://auth.example/start", opened)
	assert.True(t, c.Polling())

	stopped := collect(t, c, 3*time.Second, func(m tea.Msg) bool {
		_, ok := m.(PollStoppedMsg)
		return ok
	}).(PollStoppedMsg)

	assert.Equal(t, StopAuthenticated, stopped.Reason)
	assert.Equal(t, StateAuthenticated, c.Snapshot().State)
	assert.False(t, c.Polling())
}

func TestConnectBlockedWindow(t *testing.T) {
	backend := &fakeBackend{
		authURL: &api.AuthURL{AuthorizationURL: "https://auth.example/start"},
		statusFn: func(int) (*model.AuthStatus, error) {
			return needsAuth(), nil
		},
	}

	opts := testOptions()
	opts.OpenURL = func(string) error { return errors.New("no display") }
	c := New(backend, model.ProviderSlack, opts)

	msg := c.Connect()().(StatusMsg)

	assert.Equal(t, StateError, msg.Snapshot.State)
	assert.Contains(t, msg.Snapshot.ErrorMsg, "popups")
	assert.False(t, c.Polling())
}

func TestPollingStopsAtTimeout(t *testing.T) {
	backend := &fakeBackend{
		authURL: &api.AuthURL{AuthorizationURL: "https://auth.example/start"},
		statusFn: func(int) (*model.AuthStatus, error) {
			return needsAuth(), nil
		},
	}

	opts := testOptions()
	opts.PollTimeout = 60 * time.Millisecond
	c := New(backend, model.ProviderSlack, opts)
	defer c.Stop()

	c.Connect()()

	stopped := collect(t, c, 3*time.Second, func(m tea.Msg) bool {
		_, ok := m.(PollStoppedMsg)
		return ok
	}).(PollStoppedMsg)

	assert.Equal(t, StopTimeout, stopped.Reason)
	assert.Equal(t, StateNeedsAuth, c.Snapshot().State)
	assert.False(t, c.Polling())
}

func TestPollingStopsWhenWindowClosed(t *testing.T) {
	backend := &fakeBackend{
		authURL: &api.AuthURL{AuthorizationURL: "https://auth.example/start"},
		statusFn: func(int) (*model.AuthStatus, error) {
			return needsAuth(), nil
		},
	}

	var mu sync.Mutex
	windowClosed := false

	opts := testOptions()
	opts.WindowClosed = func() bool {
		mu.Lock()
		defer mu.Unlock()
		return windowClosed
	}
	c := New(backend, model.ProviderSlack, opts)
	defer c.Stop()

	c.Connect()()
	mu.Lock()
	windowClosed = true
	mu.Unlock()

	stopped := collect(t, c, 3*time.Second, func(m tea.Msg) bool {
		_, ok := m.(PollStoppedMsg)
		return ok
	}).(PollStoppedMsg)

	assert.Equal(t, StopWindowClosed, stopped.Reason)
	assert.Equal(t, StateNeedsAuth, c.Snapshot().State)
}

func TestRefreshTokenWithoutIntegrationID(t *testing.T) {
	backend := &fakeBackend{statusFn: func(int) (*model.AuthStatus, error) {
		return needsAuth(), nil
	}}
	c := New(backend, model.ProviderJira, testOptions())

	msg := c.RefreshToken()().(RefreshResultMsg)

	assert.False(t, msg.Success)
	assert.Empty(t, backend.refreshed)
}

func TestRefreshTokenUsesLookupFallback(t *testing.T) {
	backend := &fakeBackend{statusFn: func(int) (*model.AuthStatus, error) {
		return authenticated(), nil
	}}

	opts := testOptions()
	opts.LookupIntegrationID = func() (string, error) {
		return "stored-int", nil
	}
	c := New(backend, model.ProviderJira, opts)

	msg := c.RefreshToken()().(RefreshResultMsg)

	assert.True(t, msg.Success)
	assert.Equal(t, []string{"stored-int"}, backend.refreshed)
}

func TestRefreshTokenSuccessRechecksStatus(t *testing.T) {
	backend := &fakeBackend{statusFn: func(int) (*model.AuthStatus, error) {
		return authenticated(), nil
	}}
	c := New(backend, model.ProviderJira, testOptions())

	c.CheckAuth(false)()
	msg := c.RefreshToken()().(RefreshResultMsg)

	assert.True(t, msg.Success)
	assert.Equal(t, []string{"int-1"}, backend.refreshed)
	assert.Equal(t, StateAuthenticated, c.Snapshot().State)
}

func TestStopEndsPollingRun(t *testing.T) {
	backend := &fakeBackend{
		authURL: &api.AuthURL{AuthorizationURL: "https://auth.example/start"},
		statusFn: func(int) (*model.AuthStatus, error) {
			return needsAuth(), nil
		},
	}
	c := New(backend, model.ProviderSlack, testOptions())

	c.Connect()()
	require.True(t, c.Polling())

	c.Stop()

	assert.False(t, c.Polling())
}
