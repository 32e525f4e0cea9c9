package session

import "testing"

func TestHub_BroadcastReachesMeetingMembersOnly(t *testing.T) {
	hub := NewHub()
	a := &mockSender{}
	b := &mockSender{}
	c := &mockSender{}
	hub.Register("meeting-1", "conn-a", a)
	hub.Register("meeting-1", "conn-b", b)
	hub.Register("meeting-2", "conn-c", c)

	hub.Broadcast("meeting-1", OutboundFrame{Type: TypeMeetingUpdated})

	if len(a.framesOfType(TypeMeetingUpdated)) != 1 || len(b.framesOfType(TypeMeetingUpdated)) != 1 {
		t.Fatal("all members of the meeting must receive the frame")
	}
	if len(c.framesOfType(TypeMeetingUpdated)) != 0 {
		t.Fatal("other meetings must not receive the frame")
	}
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	a := &mockSender{}
	hub.Register("meeting-1", "conn-a", a)
	hub.Unregister("meeting-1", "conn-a")

	hub.Broadcast("meeting-1", OutboundFrame{Type: TypeMeetingUpdated})

	if len(a.framesOfType(TypeMeetingUpdated)) != 0 {
		t.Fatal("unregistered connection must not receive frames")
	}
}

func TestHub_BroadcastToUnknownMeetingIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Broadcast("missing", OutboundFrame{Type: TypeMeetingUpdated})
}
