// Package connect drives the OAuth connect flow for a single provider.
// The client never exchanges tokens itself; the controller orchestrates
// three backend calls (auth status, authorization URL, token refresh),
// opens the authorization URL in the operator's browser, and polls the
// status endpoint until the flow completes, the browser window is seen
// closed, or a hard wall-clock ceiling elapses.
package connect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"

	"github.com/killthenoise/killthenoise/internal/api"
	"github.com/killthenoise/killthenoise/internal/model"
)

// State is the controller's connection lifecycle state.
type State int

const (
	// StateIdle means no connection attempt is in progress yet.
	StateIdle State = iota
	// StateChecking means a foreground status fetch is in flight.
	StateChecking
	// StateAuthenticated means the provider is connected.
	StateAuthenticated
	// StateNeedsAuth means the tenant must run the OAuth flow.
	StateNeedsAuth
	// StatePolling means an OAuth window is open and the controller is
	// re-checking status on a timer.
	StatePolling
	// StateError means a status fetch failed; a manual retry is offered.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateNeedsAuth:
		return "needs_auth"
	case StatePolling:
		return "polling"
	case StateError:
		return "error"
	}
	return "unknown"
}

// ErrPopupBlocked indicates the authorization URL could not be opened
// in a browser window.
var ErrPopupBlocked = errors.New("browser window was blocked: allow popups for KillTheNoise and try again")

// fetchTimeout bounds a single status or refresh call.
const fetchTimeout = 30 * time.Second

// API is the slice of the backend client the controller depends on.
type API interface {
	GetAuthStatus(ctx context.Context, provider model.Provider) (*model.AuthStatus, error)
	GetAuthURL(ctx context.Context, provider model.Provider) (*api.AuthURL, error)
	RefreshToken(ctx context.Context, provider model.Provider, integrationID string) error
}

// StatusMsg is a tea.Msg carrying the controller's state after a status
// fetch resolved (foreground or polling tick).
type StatusMsg struct {
	Provider model.Provider
	Snapshot Snapshot
}

// ConnectStartedMsg is a tea.Msg sent when the OAuth window was opened
// and polling began. IntegrationID is the pending integration record.
type ConnectStartedMsg struct {
	Provider      model.Provider
	IntegrationID string
}

// RefreshResultMsg is a tea.Msg with the outcome of a token refresh.
type RefreshResultMsg struct {
	Provider model.Provider
	Success  bool
}

// PollStopReason says why a polling run ended.
type PollStopReason int

const (
	// StopAuthenticated means status reported authenticated=true.
	StopAuthenticated PollStopReason = iota
	// StopWindowClosed means the browser-window probe reported closed.
	StopWindowClosed
	// StopTimeout means the wall-clock ceiling elapsed.
	StopTimeout
	// StopCancelled means the controller was torn down.
	StopCancelled
)

// PollStoppedMsg is a tea.Msg sent once when a polling run ends.
type PollStoppedMsg struct {
	Provider model.Provider
	Reason   PollStopReason
}

// Snapshot is a copy of the controller's observable state, safe to
// render without holding its lock.
type Snapshot struct {
	State    State
	Status   *model.AuthStatus
	ErrorMsg string
	Polling  bool
}

// Options tunes the controller. Zero values mean production defaults.
type Options struct {
	// PollInterval is the delay between polling ticks (default 3s).
	PollInterval time.Duration

	// PollTimeout is the hard ceiling on a polling run (default 5m).
	PollTimeout time.Duration

	// OpenURL opens the authorization URL. Defaults to the system
	// browser. A non-nil error is treated as a blocked popup.
	OpenURL func(url string) error

	// WindowClosed reports whether the operator closed the OAuth
	// window. The probe is best-effort only; the PollTimeout ceiling
	// is the authoritative backstop when it never fires.
	WindowClosed func() bool

	// LookupIntegrationID supplies a stored integration ID when the
	// latest status did not include one, e.g. from the keyring.
	LookupIntegrationID func() (string, error)
}

// Controller manages the connect lifecycle for one provider.
type Controller struct {
	client   API
	provider model.Provider
	opts     Options

	mu       sync.Mutex
	state    State
	status   *model.AuthStatus
	errorMsg string
	polling  bool
	stopCh   chan struct{}
	resultCh chan tea.Msg
}

// New creates a controller for the given provider.
func New(client API, provider model.Provider, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 5 * time.Minute
	}
	if opts.OpenURL == nil {
		opts.OpenURL = browser.OpenURL
	}

	return &Controller{
		client:   client,
		provider: provider,
		opts:     opts,
		state:    StateIdle,
		resultCh: make(chan tea.Msg, 16),
	}
}

// Provider returns the provider this controller manages.
func (c *Controller) Provider() model.Provider {
	return c.provider
}

// Snapshot returns a copy of the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:    c.state,
		Status:   c.status,
		ErrorMsg: c.errorMsg,
		Polling:  c.polling,
	}
}

// CheckAuth returns a tea.Cmd performing one status fetch. A background
// call never toggles the Checking state and swallows transport errors
// so polling ticks do not flicker the UI; a foreground call surfaces
// failure as a blocking Error state with a retry action.
func (c *Controller) CheckAuth(background bool) tea.Cmd {
	return func() tea.Msg {
		snap := c.checkAuth(context.Background(), background)
		return StatusMsg{Provider: c.provider, Snapshot: snap}
	}
}

// checkAuth performs the status fetch and resolves the state machine.
func (c *Controller) checkAuth(ctx context.Context, background bool) Snapshot {
	c.mu.Lock()
	if !background {
		c.state = StateChecking
		c.errorMsg = ""
	}
	c.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	status, err := c.client.GetAuthStatus(fetchCtx, c.provider)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		if background {
			// Swallowed per tick: keep the last known state so the
			// card does not flash an error on a missed poll.
			return c.snapshotLocked()
		}
		c.state = StateError
		c.errorMsg = err.Error()
		return c.snapshotLocked()
	}

	c.status = status
	c.errorMsg = ""
	if status.Authenticated {
		c.state = StateAuthenticated
		if c.polling {
			c.stopPollingLocked()
		}
	} else if c.polling {
		c.state = StatePolling
	} else {
		c.state = StateNeedsAuth
	}

	return c.snapshotLocked()
}

// Connect requests an authorization URL, opens it in the browser, and
// starts polling. Failure to obtain the URL or to open the window lands
// in the Error state; the blocked-window case gets its own message.
func (c *Controller) Connect() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		authURL, err := c.client.GetAuthURL(ctx, c.provider)
		if err != nil {
			return c.fail(fmt.Sprintf("could not start the %s OAuth flow: %v", c.provider, err))
		}

		if err := c.opts.OpenURL(authURL.AuthorizationURL); err != nil {
			return c.fail(ErrPopupBlocked.Error())
		}

		c.startPolling()

		return ConnectStartedMsg{
			Provider:      c.provider,
			IntegrationID: authURL.IntegrationID,
		}
	}
}

// fail records an error state and returns the matching StatusMsg.
func (c *Controller) fail(msg string) tea.Msg {
	c.mu.Lock()
	c.state = StateError
	c.errorMsg = msg
	snap := c.snapshotLocked()
	c.mu.Unlock()
	return StatusMsg{Provider: c.provider, Snapshot: snap}
}

// RefreshToken refreshes the stored credential and re-checks status on
// success. It reports success over the result channel and never lets an
// error escape its own boundary.
func (c *Controller) RefreshToken() tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		integrationID := ""
		if c.status != nil {
			integrationID = c.status.IntegrationID
		}
		c.mu.Unlock()

		if integrationID == "" && c.opts.LookupIntegrationID != nil {
			if id, err := c.opts.LookupIntegrationID(); err == nil {
				integrationID = id
			}
		}
		if integrationID == "" {
			return RefreshResultMsg{Provider: c.provider, Success: false}
		}

		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		if err := c.client.RefreshToken(ctx, c.provider, integrationID); err != nil {
			c.mu.Lock()
			c.errorMsg = err.Error()
			c.mu.Unlock()
			return RefreshResultMsg{Provider: c.provider, Success: false}
		}

		c.checkAuth(context.Background(), false)
		return RefreshResultMsg{Provider: c.provider, Success: true}
	}
}

// startPolling launches the polling goroutine if one is not running.
func (c *Controller) startPolling() {
	c.mu.Lock()
	if c.polling {
		c.mu.Unlock()
		return
	}
	c.polling = true
	c.state = StatePolling
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.mu.Unlock()

	go c.pollLoop(stopCh)
}

// pollLoop re-checks auth status on a fixed interval until the flow
// completes, the window-closed probe fires, the ceiling elapses, or the
// controller is stopped. Every tick's snapshot is pushed to the result
// channel so the UI can re-render without a loading flicker.
func (c *Controller) pollLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(c.opts.PollTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-stopCh:
			c.sendResult(PollStoppedMsg{Provider: c.provider, Reason: StopCancelled})
			return

		case <-deadline.C:
			c.finishPolling(StopTimeout)
			return

		case <-ticker.C:
			if c.opts.WindowClosed != nil && c.opts.WindowClosed() {
				c.finishPolling(StopWindowClosed)
				return
			}

			snap := c.checkAuth(context.Background(), true)
			c.sendResult(StatusMsg{Provider: c.provider, Snapshot: snap})

			if snap.State == StateAuthenticated {
				c.sendResult(PollStoppedMsg{Provider: c.provider, Reason: StopAuthenticated})
				return
			}
		}
	}
}

// finishPolling stops the run and resolves the final state with one
// foreground check, landing on Authenticated or NeedsAuth.
func (c *Controller) finishPolling(reason PollStopReason) {
	c.mu.Lock()
	c.stopPollingLocked()
	c.mu.Unlock()

	snap := c.checkAuth(context.Background(), false)
	c.sendResult(StatusMsg{Provider: c.provider, Snapshot: snap})
	c.sendResult(PollStoppedMsg{Provider: c.provider, Reason: reason})
}

// NotifyWindowClosed lets the UI report that the operator closed the
// OAuth window. Best-effort: it simply ends the current polling run.
func (c *Controller) NotifyWindowClosed() {
	c.mu.Lock()
	polling := c.polling
	c.stopPollingLocked()
	c.mu.Unlock()

	if polling {
		c.sendResult(PollStoppedMsg{Provider: c.provider, Reason: StopWindowClosed})
	}
}

// Stop tears the controller down, ending any polling run. Always safe
// to call on teardown; the timer never outlives the component.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPollingLocked()
}

// stopPollingLocked halts the polling goroutine. Caller holds c.mu.
func (c *Controller) stopPollingLocked() {
	if !c.polling {
		return
	}
	c.polling = false
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	if c.state == StatePolling {
		c.state = StateChecking
	}
}

// Polling reports whether a polling run is active.
func (c *Controller) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polling
}

// sendResult pushes a message to the result channel without blocking.
func (c *Controller) sendResult(msg tea.Msg) {
	select {
	case c.resultCh <- msg:
	default:
		// Drop if the channel is full to avoid blocking the poller.
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next polling
// message. Call it again after each received message to keep listening.
func (c *Controller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-c.resultCh
		if !ok {
			return nil
		}
		return msg
	}
}
