package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/Eotel/live-graphic-recorder/internal/mediastore"
	"github.com/Eotel/live-graphic-recorder/internal/repository"
	"github.com/Eotel/live-graphic-recorder/internal/transcriber"
)

// RecorderHooks are optional callbacks around the recording lifecycle. A
// nil hook is a no-op.
type RecorderHooks struct {
	OnStarted func(sessionID string)
	OnStopped func(hasUnsavedLocal bool)
}

// Recorder orchestrates one recording attempt: the remote transcription
// channel plus a local fallback dump of the raw audio, so the user's audio
// survives a remote upload failure. The fallback artifact's existence flag
// is what the client uses to offer a manual cloud-save retry.
type Recorder struct {
	repo  repository.Repository
	stt   transcriber.Transcriber
	media mediastore.Store
	lang  string
	hooks RecorderHooks
}

func NewRecorder(repo repository.Repository, stt transcriber.Transcriber, media mediastore.Store, lang string, hooks RecorderHooks) *Recorder {
	return &Recorder{repo: repo, stt: stt, media: media, lang: lang, hooks: hooks}
}

func localFallbackPath(sessionID string) string {
	return "fallback/" + sessionID + ".pcm"
}

// Start creates the session row, resets the local fallback recording, and
// kicks off the remote transcription channel. newReceiver is called with
// the fresh session id before the channel goroutine launches, so callbacks
// never observe a blank id. The channel comes up asynchronously; audio
// arriving before readiness is buffered by the caller through the
// backpressure guard and flushed once the writer is installed on the
// connection context. A writer that arrives after the session was stopped
// or replaced is closed instead of installed.
func (r *Recorder) Start(ctx context.Context, sctx *Context, newReceiver func(sessionID string) transcriber.ResultReceiver) (*repository.Session, error) {
	sess, err := r.repo.CreateSession(ctx, repository.CreateSessionInput{
		MeetingID: sctx.meetingID,
		StartedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	_ = r.media.Remove(localFallbackPath(sess.ID))
	if err := r.media.Save(localFallbackPath(sess.ID), nil); err != nil {
		slog.Error("failed to initialize local fallback recording", "error", err, "session_id", sess.ID)
	}

	sctx.mu.Lock()
	sctx.sessionID = sess.ID
	sctx.mu.Unlock()

	receiver := newReceiver(sess.ID)

	go func() {
		w, err := r.stt.StartStreaming(context.Background(), sess.ID, r.lang, receiver)
		if err != nil {
			slog.Error("failed to start transcription channel", "error", err, "session_id", sess.ID)
			receiver.OnError(err)
			return
		}
		installed, err := sctx.setStream(sess.ID, w)
		if !installed {
			if err := w.Close(); err != nil {
				slog.Warn("failed to close orphaned transcription channel", "error", err, "session_id", sess.ID)
			}
			return
		}
		if err != nil {
			slog.Error("failed to flush buffered audio", "error", err, "session_id", sess.ID)
			receiver.OnError(err)
		}
	}()

	if r.hooks.OnStarted != nil {
		r.hooks.OnStarted(sess.ID)
	}
	return sess, nil
}

// Stop ends the remote session and the local fallback recording, and
// reports whether an unsaved local audio artifact exists.
func (r *Recorder) Stop(ctx context.Context, sctx *Context) (bool, error) {
	sessionID := sctx.activeSessionID()
	if sessionID == "" {
		return false, nil
	}

	w := sctx.clearStream()
	if w != nil {
		if err := w.Close(); err != nil {
			slog.Warn("failed to close transcription channel", "error", err, "session_id", sessionID)
		}
	}

	if err := r.repo.CompleteSession(ctx, sessionID, time.Now()); err != nil {
		return false, err
	}

	hasUnsavedLocal := false
	if size, err := r.media.Size(localFallbackPath(sessionID)); err == nil && size > 0 {
		hasUnsavedLocal = true
	}

	if r.hooks.OnStopped != nil {
		r.hooks.OnStopped(hasUnsavedLocal)
	}
	return hasUnsavedLocal, nil
}

// AppendLocal adds an accepted audio chunk to the session's local fallback
// recording.
func (r *Recorder) AppendLocal(sessionID string, chunk []byte) {
	if err := r.media.Append(localFallbackPath(sessionID), chunk); err != nil {
		slog.Warn("failed to append local fallback audio", "error", err, "session_id", sessionID)
	}
}
