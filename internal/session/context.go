package session

import (
	"sync"

	"github.com/Eotel/live-graphic-recorder/internal/transcriber"
)

type MeetingMode string

const (
	ModeNone   MeetingMode = ""
	ModeRecord MeetingMode = "record"
	ModeView   MeetingMode = "view"
)

// Sender delivers one outbound frame to the connection's client. Writes
// must be safe for concurrent use; the transport adapter serializes them.
type Sender interface {
	Send(frame OutboundFrame) error
}

// Context is the per-connection state object. It is owned by exactly one
// connection, created on upgrade and torn down on disconnect. The mutex
// covers the audio buffer and stream fields, which the frame loop and the
// transcription-ready callback touch concurrently.
type Context struct {
	ConnID string
	UserID string
	sender Sender

	mu sync.Mutex

	meetingID        string
	meetingMode      MeetingMode
	sessionID        string
	imageModelPreset string

	pendingAudio        [][]byte
	pendingAudioBytes   int
	pendingUtteranceEnd int

	writer      transcriber.StreamWriter
	streamReady bool

	finalsSinceAnalysis int
}

func newContext(connID, userID, imageModelPreset string, sender Sender) *Context {
	return &Context{
		ConnID:           connID,
		UserID:           userID,
		sender:           sender,
		imageModelPreset: imageModelPreset,
	}
}

func (c *Context) send(frame OutboundFrame) {
	if err := c.sender.Send(frame); err != nil {
		// The read loop notices the broken connection; nothing to do here.
		return
	}
}

func (c *Context) sendError(message, code string) {
	c.send(errorFrame(message, code))
}

func (c *Context) snapshotMeeting() (meetingID string, mode MeetingMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meetingID, c.meetingMode
}

func (c *Context) activeSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// setStream installs the ready transcription channel and flushes the audio
// buffered while it was starting, in arrival order. The channel comes up
// asynchronously, so the session it was started for may have been stopped
// or replaced in the meantime; installed is false in that case and the
// caller must close the writer.
func (c *Context) setStream(sessionID string, w transcriber.StreamWriter) (installed bool, err error) {
	c.mu.Lock()
	if c.sessionID != sessionID {
		c.mu.Unlock()
		return false, nil
	}
	pending := c.pendingAudio
	c.pendingAudio = nil
	c.pendingAudioBytes = 0
	c.writer = w
	c.streamReady = true
	c.mu.Unlock()

	for _, chunk := range pending {
		if err := w.Write(chunk); err != nil {
			return true, err
		}
	}
	return true, nil
}

// clearStream drops the channel and any unflushed audio. Returns the writer
// so the caller can close it outside the lock.
func (c *Context) clearStream() transcriber.StreamWriter {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.writer
	c.writer = nil
	c.streamReady = false
	c.sessionID = ""
	c.pendingAudio = nil
	c.pendingAudioBytes = 0
	c.pendingUtteranceEnd = 0
	c.finalsSinceAnalysis = 0
	return w
}

// noteUtteranceEnd buffers an utterance-end signal that arrived ahead of
// its final segment.
func (c *Context) noteUtteranceEnd() {
	c.mu.Lock()
	c.pendingUtteranceEnd++
	c.mu.Unlock()
}

// consumeUtteranceEnd reconciles one buffered utterance-end signal with the
// final segment being persisted.
func (c *Context) consumeUtteranceEnd() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingUtteranceEnd == 0 {
		return false
	}
	c.pendingUtteranceEnd--
	return true
}
