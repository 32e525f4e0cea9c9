package session

import (
	"log/slog"
	"sync"
)

// Hub fans outbound frames to every live connection joined to a meeting so
// view-mode participants follow along with the recorder.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[string]Sender // meetingID -> connID -> sender
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[string]Sender)}
}

func (h *Hub) Register(meetingID, connID string, s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.conns[meetingID]
	if !ok {
		m = make(map[string]Sender)
		h.conns[meetingID] = m
	}
	m[connID] = s
}

func (h *Hub) Unregister(meetingID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.conns[meetingID]
	if !ok {
		return
	}
	delete(m, connID)
	if len(m) == 0 {
		delete(h.conns, meetingID)
	}
}

func (h *Hub) Broadcast(meetingID string, frame OutboundFrame) {
	h.mu.RLock()
	senders := make([]Sender, 0, len(h.conns[meetingID]))
	for _, s := range h.conns[meetingID] {
		senders = append(senders, s)
	}
	h.mu.RUnlock()

	for _, s := range senders {
		if err := s.Send(frame); err != nil {
			slog.Debug("broadcast send failed", "meeting_id", meetingID, "error", err)
		}
	}
}
