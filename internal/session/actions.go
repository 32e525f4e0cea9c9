package session

import (
	"log/slog"
	"sync"
)

type AuthStatus string

const (
	AuthStatusAuthenticated   AuthStatus = "authenticated"
	AuthStatusUnauthenticated AuthStatus = "unauthenticated"
	AuthStatusPending         AuthStatus = "pending"
)

type PendingActionType string

const (
	PendingActionNew    PendingActionType = "new"
	PendingActionSelect PendingActionType = "select"
)

// PendingMeetingAction is the single deferred create/select request a
// client may hold while a connect is in flight. A newer request supersedes
// the previous one.
type PendingMeetingAction struct {
	Type      PendingActionType
	Title     string
	MeetingID string
}

type StartOutcome string

const (
	StartOutcomeStarted StartOutcome = "started"
	StartOutcomeQueued  StartOutcome = "queued"
)

// ActionQueueConfig wires the collaborators of an ActionQueue. The hooks
// are optional; a nil hook is a no-op.
type ActionQueueConfig struct {
	IsConnected func() bool
	Connect     func()
	Start       func(action PendingMeetingAction) error
	Logout      func() error

	BeforeStart  func()
	OnStarted    func()
	BeforeLogout func()
	AfterLogout  func()
}

// ActionQueue serializes a client's meeting start/select requests across
// connectivity transitions and guards logout re-entrancy. It protects a
// single client's usecase state, not cross-connection concurrency.
type ActionQueue struct {
	cfg ActionQueueConfig

	mu             sync.Mutex
	pending        *PendingMeetingAction
	logoutInFlight bool
}

func NewActionQueue(cfg ActionQueueConfig) *ActionQueue {
	return &ActionQueue{cfg: cfg}
}

// RequestStart executes the start operation when connected, or records the
// action and triggers a connect when not. The start operation never runs
// while disconnected.
func (q *ActionQueue) RequestStart(action PendingMeetingAction) (StartOutcome, error) {
	if !q.cfg.IsConnected() {
		q.mu.Lock()
		q.pending = &action
		q.mu.Unlock()
		slog.Info("meeting action queued pending connect", "action_type", action.Type)
		q.cfg.Connect()
		return StartOutcomeQueued, nil
	}

	if q.cfg.BeforeStart != nil {
		q.cfg.BeforeStart()
	}
	if err := q.cfg.Start(action); err != nil {
		return "", err
	}
	if q.cfg.OnStarted != nil {
		q.cfg.OnStarted()
	}
	return StartOutcomeStarted, nil
}

// TakePendingAction hands out the queued action, if any, and clears it.
// Called once connectivity is confirmed so the caller can re-invoke
// RequestStart with the same action.
func (q *ActionQueue) TakePendingAction() *PendingMeetingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	action := q.pending
	q.pending = nil
	return action
}

// RequestLogout runs the logout side effect at most once at a time. A call
// while one is pending returns false without touching the side effect. The
// in-flight flag is released on success and failure alike.
func (q *ActionQueue) RequestLogout() (bool, error) {
	q.mu.Lock()
	if q.logoutInFlight {
		q.mu.Unlock()
		return false, nil
	}
	q.logoutInFlight = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.logoutInFlight = false
		q.mu.Unlock()
	}()

	if q.cfg.BeforeLogout != nil {
		q.cfg.BeforeLogout()
	}
	if err := q.cfg.Logout(); err != nil {
		return true, err
	}
	if q.cfg.AfterLogout != nil {
		q.cfg.AfterLogout()
	}
	return true, nil
}

// LogoutInProgress reports whether a logout side effect is currently
// running.
func (q *ActionQueue) LogoutInProgress() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.logoutInFlight
}

// ShouldAutoConnect closes the race where a disconnect during logout would
// otherwise trigger an immediate reconnect before the auth state has
// transitioned to unauthenticated.
func ShouldAutoConnect(authStatus AuthStatus, isConnected, logoutInProgress bool) bool {
	return authStatus == AuthStatusAuthenticated && !isConnected && !logoutInProgress
}
