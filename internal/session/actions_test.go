package session

import (
	"errors"
	"sync"
	"testing"
)

type actionQueueFixture struct {
	connected    bool
	connectCalls int
	startCalls   int
	startErr     error
	logoutCalls  int
	logoutErr    error
	started      []PendingMeetingAction
}

func (f *actionQueueFixture) config() ActionQueueConfig {
	return ActionQueueConfig{
		IsConnected: func() bool { return f.connected },
		Connect:     func() { f.connectCalls++ },
		Start: func(a PendingMeetingAction) error {
			f.startCalls++
			f.started = append(f.started, a)
			return f.startErr
		},
		Logout: func() error {
			f.logoutCalls++
			return f.logoutErr
		},
	}
}

func TestRequestStart_DisconnectedQueuesAndConnects(t *testing.T) {
	f := &actionQueueFixture{connected: false}
	q := NewActionQueue(f.config())

	outcome, err := q.RequestStart(PendingMeetingAction{Type: PendingActionNew, Title: "standup"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if outcome != StartOutcomeQueued {
		t.Fatalf("outcome = %q, want %q", outcome, StartOutcomeQueued)
	}
	if f.connectCalls != 1 {
		t.Fatalf("connect calls = %d, want 1", f.connectCalls)
	}
	if f.startCalls != 0 {
		t.Fatalf("start must never run while disconnected, got %d calls", f.startCalls)
	}

	pending := q.TakePendingAction()
	if pending == nil || pending.Title != "standup" {
		t.Fatalf("unexpected pending action: %+v", pending)
	}
	if q.TakePendingAction() != nil {
		t.Fatal("pending action must be cleared after being taken")
	}
}

func TestRequestStart_NewerActionSupersedesQueued(t *testing.T) {
	f := &actionQueueFixture{connected: false}
	q := NewActionQueue(f.config())

	_, _ = q.RequestStart(PendingMeetingAction{Type: PendingActionNew, Title: "first"})
	_, _ = q.RequestStart(PendingMeetingAction{Type: PendingActionSelect, MeetingID: "meeting-2"})

	pending := q.TakePendingAction()
	if pending == nil || pending.Type != PendingActionSelect || pending.MeetingID != "meeting-2" {
		t.Fatalf("unexpected pending action: %+v", pending)
	}
}

func TestRequestStart_ConnectedStartsOnce(t *testing.T) {
	f := &actionQueueFixture{connected: true}
	var hookOrder []string
	cfg := f.config()
	cfg.BeforeStart = func() { hookOrder = append(hookOrder, "before") }
	cfg.OnStarted = func() { hookOrder = append(hookOrder, "after") }
	q := NewActionQueue(cfg)

	outcome, err := q.RequestStart(PendingMeetingAction{Type: PendingActionSelect, MeetingID: "meeting-1"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if outcome != StartOutcomeStarted {
		t.Fatalf("outcome = %q, want %q", outcome, StartOutcomeStarted)
	}
	if f.startCalls != 1 || f.connectCalls != 0 {
		t.Fatalf("start calls = %d, connect calls = %d", f.startCalls, f.connectCalls)
	}
	if q.TakePendingAction() != nil {
		t.Fatal("no action should be queued when start runs directly")
	}
	if len(hookOrder) != 2 || hookOrder[0] != "before" || hookOrder[1] != "after" {
		t.Fatalf("unexpected hook order: %v", hookOrder)
	}
}

func TestRequestStart_StartErrorSkipsOnStarted(t *testing.T) {
	f := &actionQueueFixture{connected: true, startErr: errors.New("boom")}
	onStartedCalled := false
	cfg := f.config()
	cfg.OnStarted = func() { onStartedCalled = true }
	q := NewActionQueue(cfg)

	if _, err := q.RequestStart(PendingMeetingAction{Type: PendingActionNew}); err == nil {
		t.Fatal("expected error from start")
	}
	if onStartedCalled {
		t.Fatal("OnStarted must not run when start fails")
	}
}

func TestRequestLogout_AtMostOneInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	q := NewActionQueue(ActionQueueConfig{
		IsConnected: func() bool { return true },
		Connect:     func() {},
		Start:       func(PendingMeetingAction) error { return nil },
		Logout: func() error {
			close(entered)
			<-release
			return nil
		},
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ran, err := q.RequestLogout()
		if !ran || err != nil {
			t.Errorf("first logout: ran=%v err=%v", ran, err)
		}
	}()

	<-entered
	ran, err := q.RequestLogout()
	if ran || err != nil {
		t.Fatalf("second logout while in flight: ran=%v err=%v, want ran=false err=nil", ran, err)
	}
	if !q.LogoutInProgress() {
		t.Fatal("logout should be reported in progress")
	}

	close(release)
	wg.Wait()
	if q.LogoutInProgress() {
		t.Fatal("in-flight flag must be released after completion")
	}
}

func TestRequestLogout_FlagReleasedOnError(t *testing.T) {
	f := &actionQueueFixture{connected: true, logoutErr: errors.New("network down")}
	q := NewActionQueue(f.config())

	ran, err := q.RequestLogout()
	if !ran || err == nil {
		t.Fatalf("ran=%v err=%v, want ran=true with error", ran, err)
	}
	if q.LogoutInProgress() {
		t.Fatal("in-flight flag must be released after a failed logout")
	}

	ran, err = q.RequestLogout()
	if !ran || err == nil {
		t.Fatalf("logout must be retryable after failure: ran=%v err=%v", ran, err)
	}
	if f.logoutCalls != 2 {
		t.Fatalf("logout calls = %d, want 2", f.logoutCalls)
	}
}

func TestRequestLogout_AfterLogoutOnlyOnSuccess(t *testing.T) {
	afterCalls := 0
	logoutErr := errors.New("boom")
	q := NewActionQueue(ActionQueueConfig{
		IsConnected: func() bool { return true },
		Connect:     func() {},
		Start:       func(PendingMeetingAction) error { return nil },
		Logout:      func() error { return logoutErr },
		AfterLogout: func() { afterCalls++ },
	})

	_, _ = q.RequestLogout()
	if afterCalls != 0 {
		t.Fatal("AfterLogout must not run when logout fails")
	}

	logoutErr = nil
	_, _ = q.RequestLogout()
	if afterCalls != 1 {
		t.Fatalf("AfterLogout calls = %d, want 1", afterCalls)
	}
}

func TestShouldAutoConnect(t *testing.T) {
	tests := []struct {
		auth             AuthStatus
		connected        bool
		logoutInProgress bool
		want             bool
	}{
		{AuthStatusAuthenticated, false, false, true},
		{AuthStatusAuthenticated, true, false, false},
		{AuthStatusAuthenticated, false, true, false},
		{AuthStatusAuthenticated, true, true, false},
		{AuthStatusUnauthenticated, false, false, false},
		{AuthStatusUnauthenticated, true, false, false},
		{AuthStatusPending, false, false, false},
		{AuthStatusPending, false, true, false},
		{AuthStatusPending, true, false, false},
	}
	for _, tt := range tests {
		got := ShouldAutoConnect(tt.auth, tt.connected, tt.logoutInProgress)
		if got != tt.want {
			t.Errorf("ShouldAutoConnect(%q, connected=%v, logout=%v) = %v, want %v",
				tt.auth, tt.connected, tt.logoutInProgress, got, tt.want)
		}
	}
}
