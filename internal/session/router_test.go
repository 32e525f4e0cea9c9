package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Eotel/live-graphic-recorder/internal/config"
	"github.com/Eotel/live-graphic-recorder/internal/generator"
	"github.com/Eotel/live-graphic-recorder/internal/metasummary"
	"github.com/Eotel/live-graphic-recorder/internal/repository"
	"github.com/Eotel/live-graphic-recorder/internal/repository/repositorytest"
	"github.com/Eotel/live-graphic-recorder/internal/transcriber"
)

// --- mocks ---

type mockSender struct {
	mu     sync.Mutex
	frames []OutboundFrame
}

func (s *mockSender) Send(frame OutboundFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	return nil
}

func (s *mockSender) framesOfType(frameType string) []OutboundFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OutboundFrame
	for _, f := range s.frames {
		if f.Type == frameType {
			out = append(out, f)
		}
	}
	return out
}

func (s *mockSender) lastError() *ErrorData {
	errs := s.framesOfType(TypeError)
	if len(errs) == 0 {
		return nil
	}
	data := errs[len(errs)-1].Data.(ErrorData)
	return &data
}

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

func (m *memStore) Save(relPath string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[relPath] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Append(relPath string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[relPath] = append(m.files[relPath], data...)
	return nil
}

func (m *memStore) Open(relPath string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[relPath]
	if !ok {
		return nil, fmt.Errorf("not found: %s", relPath)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Size(relPath string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[relPath]
	if !ok {
		return 0, fmt.Errorf("not found: %s", relPath)
	}
	return int64(len(data)), nil
}

func (m *memStore) Exists(relPath string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[relPath]
	return ok
}

func (m *memStore) Remove(relPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, relPath)
	return nil
}

type mockStreamWriter struct {
	mu     sync.Mutex
	chunks [][]byte
	closed bool
}

func (w *mockStreamWriter) Write(pcm []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chunks = append(w.chunks, append([]byte(nil), pcm...))
	return nil
}

func (w *mockStreamWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *mockStreamWriter) chunkCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.chunks)
}

func (w *mockStreamWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// mockTranscriber hands out a fresh writer per call, recorded in start
// order. When gate is non-nil the channel stays "starting" until the gate
// closes, which is how tests exercise the buffering window; the gate is
// captured per call, so tests can swap it between session starts.
type mockTranscriber struct {
	mu       sync.Mutex
	gate     chan struct{}
	writers  []*mockStreamWriter
	receiver transcriber.ResultReceiver
}

func (m *mockTranscriber) StartStreaming(_ context.Context, _, _ string, receiver transcriber.ResultReceiver) (transcriber.StreamWriter, error) {
	m.mu.Lock()
	m.receiver = receiver
	gate := m.gate
	w := &mockStreamWriter{}
	m.writers = append(m.writers, w)
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return w, nil
}

func (m *mockTranscriber) currentReceiver() transcriber.ResultReceiver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.receiver
}

func (m *mockTranscriber) setGate(gate chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = gate
}

func (m *mockTranscriber) writerAt(i int) *mockStreamWriter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i >= len(m.writers) {
		return nil
	}
	return m.writers[i]
}

type mockAnalyzer struct {
	mu    sync.Mutex
	calls int
	lines []generator.TranscriptLine
}

func (a *mockAnalyzer) Analyze(_ context.Context, lines []generator.TranscriptLine) (*generator.AnalysisResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.lines = lines
	return &generator.AnalysisResult{
		Summary: []string{"summary"},
		Topics:  []string{"topic-a", "topic-b"},
		Tags:    []string{"tag"},
		Flow:    "steady",
		Heat:    0.5,
	}, nil
}

type mockImageGenerator struct{}

func (mockImageGenerator) GenerateImage(context.Context, generator.ImageRequest) ([]byte, error) {
	return []byte("png"), nil
}

type mockSummarizer struct{}

func (mockSummarizer) Summarize(context.Context, generator.MetaSummaryRequest) (*generator.MetaSummaryResult, error) {
	return &generator.MetaSummaryResult{Summary: []string{"meta"}, Themes: []string{"theme"}}, nil
}

// --- fixture ---

type routerFixture struct {
	router *Router
	repo   *repositorytest.Fake
	stt    *mockTranscriber
	media  *memStore
	sender *mockSender
	sctx   *Context
}

func newRouterFixture(t *testing.T) *routerFixture {
	return newRouterFixtureWith(t, &mockTranscriber{})
}

func newRouterFixtureWith(t *testing.T, stt transcriber.Transcriber) *routerFixture {
	t.Helper()
	cfg := &config.Config{
		DefaultImageModelPreset:   "sketch",
		MaxPendingAudioChunks:     4,
		MaxPendingAudioChunkBytes: 100,
		MaxPendingAudioTotalBytes: 300,
		AnalysisMinSegments:       3,
		MetaSummaryMinAnalyses:    99,
	}
	repo := repositorytest.New()
	media := newMemStore()
	recorder := NewRecorder(repo, stt, media, "en-US", RecorderHooks{})
	meta := metasummary.NewService(repo, mockSummarizer{}, cfg.MetaSummaryMinAnalyses)
	router := NewRouter(cfg, repo, recorder, &mockAnalyzer{}, mockImageGenerator{}, meta, NewHub(), media)

	sender := &mockSender{}
	sctx := router.NewConnection("user-1", sender)
	f := &routerFixture{router: router, repo: repo, media: media, sender: sender, sctx: sctx}
	if m, ok := stt.(*mockTranscriber); ok {
		f.stt = m
	}
	return f
}

func (f *routerFixture) sendFrame(t *testing.T, frameType string, data any) {
	t.Helper()
	frame := map[string]any{"type": frameType}
	if data != nil {
		frame["data"] = data
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("failed to marshal frame: %v", err)
	}
	f.router.HandleText(context.Background(), f.sctx, payload)
}

func (f *routerFixture) startMeeting(t *testing.T) string {
	t.Helper()
	f.sendFrame(t, TypeMeetingStart, map[string]string{"title": "weekly sync"})
	started := f.sender.framesOfType(TypeMeetingStarted)
	if len(started) != 1 {
		t.Fatalf("expected one meeting:started frame, got %d (last error: %+v)", len(started), f.sender.lastError())
	}
	return started[0].Data.(meetingPayload).ID
}

func (f *routerFixture) startSession(t *testing.T) {
	t.Helper()
	f.sendFrame(t, TypeSessionStart, nil)
	if len(f.sender.framesOfType(TypeSessionStarted)) != 1 {
		t.Fatalf("expected one session:started frame (last error: %+v)", f.sender.lastError())
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// --- tests ---

func TestHandleText_MalformedJSON(t *testing.T) {
	f := newRouterFixture(t)
	f.router.HandleText(context.Background(), f.sctx, []byte("{not json"))

	errData := f.sender.lastError()
	if errData == nil || errData.Message != "Invalid message format" {
		t.Fatalf("unexpected error frame: %+v", errData)
	}
}

func TestHandleText_MissingType(t *testing.T) {
	f := newRouterFixture(t)
	f.router.HandleText(context.Background(), f.sctx, []byte(`{"data":{}}`))

	errData := f.sender.lastError()
	if errData == nil || errData.Message != "Invalid message format" {
		t.Fatalf("unexpected error frame: %+v", errData)
	}
}

func TestHandleText_UnknownTypeIgnored(t *testing.T) {
	f := newRouterFixture(t)
	f.router.HandleText(context.Background(), f.sctx, []byte(`{"type":"future:thing"}`))

	f.sender.mu.Lock()
	defer f.sender.mu.Unlock()
	if len(f.sender.frames) != 0 {
		t.Fatalf("unknown types must be ignored silently, got %+v", f.sender.frames)
	}
}

func TestMeetingStart_CreatesAndJoins(t *testing.T) {
	f := newRouterFixture(t)
	meetingID := f.startMeeting(t)

	m, _ := f.repo.GetMeeting(context.Background(), meetingID)
	if m == nil || m.Title != "weekly sync" || m.OwnerUserID != "user-1" {
		t.Fatalf("unexpected persisted meeting: %+v", m)
	}
	gotID, mode := f.sctx.snapshotMeeting()
	if gotID != meetingID || mode != ModeRecord {
		t.Fatalf("connection not joined in record mode: %s %s", gotID, mode)
	}
}

func TestMeetingModeSet_ViewRejectsAudio(t *testing.T) {
	f := newRouterFixture(t)
	meetingID := f.startMeeting(t)
	f.sendFrame(t, TypeMeetingModeSet, map[string]string{"meetingId": meetingID, "mode": "view"})

	f.router.HandleBinary(f.sctx, []byte("pcm"))

	errData := f.sender.lastError()
	if errData == nil || errData.Code != CodeReadOnlyMeeting {
		t.Fatalf("expected READ_ONLY_MEETING, got %+v", errData)
	}
}

func TestMeetingModeSet_RecordRequiresOwnership(t *testing.T) {
	f := newRouterFixture(t)
	other, _ := f.repo.CreateMeeting(context.Background(), meetingInputOwnedBy("user-2"))

	f.sendFrame(t, TypeMeetingModeSet, map[string]string{"meetingId": other.ID, "mode": "record"})
	errData := f.sender.lastError()
	if errData == nil || errData.Code != CodeNotFound {
		t.Fatalf("foreign meeting must look absent, got %+v", errData)
	}

	// View mode on a foreign meeting is allowed.
	f.sendFrame(t, TypeMeetingModeSet, map[string]string{"meetingId": other.ID, "mode": "view"})
	if len(f.sender.framesOfType(TypeMeetingMode)) != 1 {
		t.Fatalf("expected meeting:mode frame (last error: %+v)", f.sender.lastError())
	}
}

func TestHandleBinary_NoActiveSessionDropsAudio(t *testing.T) {
	f := newRouterFixture(t)
	f.startMeeting(t)

	f.router.HandleBinary(f.sctx, []byte("pcm"))

	errData := f.sender.lastError()
	if errData == nil || errData.Code != CodeAudioDropped {
		t.Fatalf("expected AUDIO_DROPPED, got %+v", errData)
	}
}

func TestHandleBinary_BuffersThenFlushesInOrder(t *testing.T) {
	f := newRouterFixture(t)
	gate := make(chan struct{})
	f.stt.setGate(gate)
	f.startMeeting(t)
	f.startSession(t)
	waitFor(t, "channel starting", func() bool { return f.stt.writerAt(0) != nil })

	chunks := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, c := range chunks {
		f.router.HandleBinary(f.sctx, c)
	}
	if f.stt.writerAt(0).chunkCount() != 0 {
		t.Fatal("nothing may reach the channel before it is ready")
	}

	close(gate)
	w := f.stt.writerAt(0)
	waitFor(t, "buffered audio flush", func() bool { return w.chunkCount() == len(chunks) })

	w.mu.Lock()
	defer w.mu.Unlock()
	for i, c := range chunks {
		if string(w.chunks[i]) != string(c) {
			t.Fatalf("chunk %d = %q, want %q", i, w.chunks[i], c)
		}
	}
}

func TestHandleBinary_BackpressureDropsOverflow(t *testing.T) {
	f := newRouterFixture(t)
	f.stt.setGate(make(chan struct{})) // never released
	f.startMeeting(t)
	f.startSession(t)

	for i := 0; i < 4; i++ {
		f.router.HandleBinary(f.sctx, []byte("pcm"))
	}
	if errData := f.sender.lastError(); errData != nil {
		t.Fatalf("first four chunks must be buffered, got error %+v", errData)
	}

	f.router.HandleBinary(f.sctx, []byte("pcm"))
	errData := f.sender.lastError()
	if errData == nil || errData.Code != CodeAudioDropped {
		t.Fatalf("expected AUDIO_DROPPED on overflow, got %+v", errData)
	}
}

func TestHandleBinary_AcceptedChunksReachLocalFallback(t *testing.T) {
	f := newRouterFixture(t)
	f.startMeeting(t)
	f.startSession(t)
	waitFor(t, "channel ready", func() bool { return f.stt.currentReceiver() != nil })

	sessionID := f.sctx.activeSessionID()
	f.router.HandleBinary(f.sctx, []byte("abcd"))
	f.router.HandleBinary(f.sctx, []byte("ef"))

	waitFor(t, "local fallback append", func() bool {
		size, err := f.media.Size(localFallbackPath(sessionID))
		return err == nil && size == 6
	})
}

func TestUtteranceEndReconciliation(t *testing.T) {
	f := newRouterFixture(t)
	f.startMeeting(t)
	f.startSession(t)
	waitFor(t, "channel ready", func() bool { return f.stt.currentReceiver() != nil })
	receiver := f.stt.currentReceiver()

	receiver.OnUtteranceEnd()
	receiver.OnResult(transcriber.Result{Text: "first utterance", IsFinal: true})
	receiver.OnResult(transcriber.Result{Text: "second utterance", IsFinal: true})

	waitFor(t, "segments persisted", func() bool {
		segs, _ := f.repo.ListSegmentsByMeeting(context.Background(), f.meetingID(), nil)
		return len(segs) == 2
	})
	segs, _ := f.repo.ListSegmentsByMeeting(context.Background(), f.meetingID(), nil)
	if !segs[0].IsUtteranceEnd {
		t.Fatal("first final must consume the buffered utterance-end signal")
	}
	if segs[1].IsUtteranceEnd {
		t.Fatal("second final has no signal to consume")
	}
}

func TestInterimResultsAreBroadcastNotPersisted(t *testing.T) {
	f := newRouterFixture(t)
	f.startMeeting(t)
	f.startSession(t)
	waitFor(t, "channel ready", func() bool { return f.stt.currentReceiver() != nil })

	f.stt.currentReceiver().OnResult(transcriber.Result{Text: "typing...", IsFinal: false})

	waitFor(t, "interim broadcast", func() bool {
		return len(f.sender.framesOfType(TypeTranscriptSegment)) == 1
	})
	segs, _ := f.repo.ListSegmentsByMeeting(context.Background(), f.meetingID(), nil)
	if len(segs) != 0 {
		t.Fatalf("interim results must not be persisted, got %d segments", len(segs))
	}
}

func TestAnalysisPipeline_TriggersAfterThreshold(t *testing.T) {
	f := newRouterFixture(t)
	f.startMeeting(t)
	f.startSession(t)
	waitFor(t, "channel ready", func() bool { return f.stt.currentReceiver() != nil })
	receiver := f.stt.currentReceiver()

	for i := 0; i < 3; i++ {
		receiver.OnResult(transcriber.Result{Text: fmt.Sprintf("line %d", i), IsFinal: true})
	}

	waitFor(t, "analysis persisted", func() bool {
		analyses, _ := f.repo.ListAnalysesByMeeting(context.Background(), f.meetingID(), nil)
		return len(analyses) == 1
	})
	waitFor(t, "illustration persisted", func() bool {
		images, _ := f.repo.ListImagesByMeeting(context.Background(), f.meetingID(), nil)
		return len(images) == 1
	})
	waitFor(t, "analysis broadcast", func() bool {
		return len(f.sender.framesOfType(TypeAnalysisNew)) == 1 &&
			len(f.sender.framesOfType(TypeImageNew)) == 1
	})

	images, _ := f.repo.ListImagesByMeeting(context.Background(), f.meetingID(), nil)
	if !f.media.Exists(images[0].FilePath) {
		t.Fatal("generated image bytes must be stored")
	}
}

func TestSessionStop_ReportsUnsavedLocal(t *testing.T) {
	f := newRouterFixture(t)
	f.startMeeting(t)
	f.startSession(t)
	waitFor(t, "channel ready", func() bool { return f.stt.currentReceiver() != nil })
	f.router.HandleBinary(f.sctx, []byte("pcm"))

	f.sendFrame(t, TypeSessionStop, nil)

	stopped := f.sender.framesOfType(TypeSessionStopped)
	if len(stopped) != 1 {
		t.Fatalf("expected one session:stopped frame (last error: %+v)", f.sender.lastError())
	}
	payload := stopped[0].Data.(sessionStoppedPayload)
	if !payload.HasUnsavedLocal {
		t.Fatal("local fallback has audio, flag must be true")
	}
	if !f.stt.writerAt(0).isClosed() {
		t.Fatal("transcription channel must be closed on stop")
	}
	if f.sctx.activeSessionID() != "" {
		t.Fatal("session must be cleared from the connection")
	}
}

func TestSessionStop_NoLocalAudio(t *testing.T) {
	f := newRouterFixture(t)
	f.startMeeting(t)
	f.startSession(t)
	waitFor(t, "channel ready", func() bool { return f.stt.currentReceiver() != nil })

	f.sendFrame(t, TypeSessionStop, nil)

	stopped := f.sender.framesOfType(TypeSessionStopped)
	if len(stopped) != 1 {
		t.Fatalf("expected one session:stopped frame (last error: %+v)", f.sender.lastError())
	}
	if stopped[0].Data.(sessionStoppedPayload).HasUnsavedLocal {
		t.Fatal("flag must be false when no audio reached the fallback")
	}
}

func TestCameraFrame_StoresCapture(t *testing.T) {
	f := newRouterFixture(t)
	f.startMeeting(t)
	f.startSession(t)

	f.sendFrame(t, TypeCameraFrame, map[string]string{"image": "anVwZw=="})

	captures, _ := f.repo.ListCapturesByMeeting(context.Background(), f.meetingID(), nil)
	if len(captures) != 1 {
		t.Fatalf("expected one capture, got %d (last error: %+v)", len(captures), f.sender.lastError())
	}
	if !f.media.Exists(captures[0].FilePath) {
		t.Fatal("capture bytes must be stored")
	}
}

func TestCameraFrame_RejectedInViewMode(t *testing.T) {
	f := newRouterFixture(t)
	meetingID := f.startMeeting(t)
	f.sendFrame(t, TypeMeetingModeSet, map[string]string{"meetingId": meetingID, "mode": "view"})

	f.sendFrame(t, TypeCameraFrame, map[string]string{"image": "anVwZw=="})

	errData := f.sender.lastError()
	if errData == nil || errData.Code != CodeReadOnlyMeeting {
		t.Fatalf("expected READ_ONLY_MEETING, got %+v", errData)
	}
}

func TestMeetingStop_ClosesMeetingAndSession(t *testing.T) {
	f := newRouterFixture(t)
	meetingID := f.startMeeting(t)
	f.startSession(t)
	waitFor(t, "channel ready", func() bool { return f.stt.currentReceiver() != nil })

	f.sendFrame(t, TypeMeetingStop, nil)

	m, _ := f.repo.GetMeeting(context.Background(), meetingID)
	if m.EndedAt == nil {
		t.Fatal("meeting must be closed")
	}
	if f.sctx.activeSessionID() != "" {
		t.Fatal("active session must be stopped with the meeting")
	}
	if gotID, _ := f.sctx.snapshotMeeting(); gotID != "" {
		t.Fatal("connection must leave the meeting")
	}
}

func TestMeetingUpdate_BlankTitleRejected(t *testing.T) {
	f := newRouterFixture(t)
	f.startMeeting(t)

	f.sendFrame(t, TypeMeetingUpdate, map[string]string{"title": "   "})

	errData := f.sender.lastError()
	if errData == nil || errData.Code != CodeInvalidPayload {
		t.Fatalf("expected INVALID_PAYLOAD, got %+v", errData)
	}
}

func TestSpeakerAliasUpdate_Persists(t *testing.T) {
	f := newRouterFixture(t)
	meetingID := f.startMeeting(t)

	f.sendFrame(t, TypeSpeakerAliasUpdate, map[string]any{"speaker": 1, "displayName": "Alice"})

	aliases, _ := f.repo.ListSpeakerAliases(context.Background(), meetingID)
	if len(aliases) != 1 || aliases[0].DisplayName != "Alice" {
		t.Fatalf("unexpected aliases: %+v (last error: %+v)", aliases, f.sender.lastError())
	}
}

func TestSpeakerAliasUpdate_NegativeSpeakerRejected(t *testing.T) {
	f := newRouterFixture(t)
	f.startMeeting(t)

	f.sendFrame(t, TypeSpeakerAliasUpdate, map[string]any{"speaker": -1, "displayName": "Alice"})

	errData := f.sender.lastError()
	if errData == nil || errData.Code != CodeInvalidPayload {
		t.Fatalf("expected INVALID_PAYLOAD, got %+v", errData)
	}
}

func TestImageModelSet_UpdatesPreset(t *testing.T) {
	f := newRouterFixture(t)

	f.sendFrame(t, TypeImageModelSet, map[string]string{"preset": "watercolor"})

	f.sctx.mu.Lock()
	preset := f.sctx.imageModelPreset
	f.sctx.mu.Unlock()
	if preset != "watercolor" {
		t.Fatalf("preset = %q, want watercolor", preset)
	}
}

func TestHandleDisconnect_StopsSessionAndDropsBuffer(t *testing.T) {
	f := newRouterFixture(t)
	f.stt.setGate(make(chan struct{})) // channel never comes up
	f.startMeeting(t)
	f.startSession(t)
	f.router.HandleBinary(f.sctx, []byte("pcm"))

	f.router.HandleDisconnect(context.Background(), f.sctx)

	if f.sctx.activeSessionID() != "" {
		t.Fatal("disconnect must stop the active session")
	}
	f.sctx.mu.Lock()
	pending := len(f.sctx.pendingAudio)
	f.sctx.mu.Unlock()
	if pending != 0 {
		t.Fatal("buffered audio must be discarded on disconnect")
	}
}

func TestSessionRestart_StoppedSessionChannelGetsNoAudio(t *testing.T) {
	f := newRouterFixture(t)
	gate1 := make(chan struct{})
	f.stt.setGate(gate1)
	f.startMeeting(t)
	f.startSession(t)
	waitFor(t, "first channel starting", func() bool { return f.stt.writerAt(0) != nil })

	f.sendFrame(t, TypeSessionStop, nil)

	gate2 := make(chan struct{})
	f.stt.setGate(gate2)
	f.sendFrame(t, TypeSessionStart, nil)
	if len(f.sender.framesOfType(TypeSessionStarted)) != 2 {
		t.Fatalf("expected a second session:started frame (last error: %+v)", f.sender.lastError())
	}
	waitFor(t, "second channel starting", func() bool { return f.stt.writerAt(1) != nil })

	f.router.HandleBinary(f.sctx, []byte("pcm"))

	// The first session's channel comes up only now, after its session was
	// stopped and replaced. It must be closed, never installed.
	close(gate1)
	waitFor(t, "stale channel closed", func() bool { return f.stt.writerAt(0).isClosed() })
	if got := f.stt.writerAt(0).chunkCount(); got != 0 {
		t.Fatalf("stopped session channel received %d chunk(s)", got)
	}

	close(gate2)
	waitFor(t, "buffered audio reaches the new channel", func() bool {
		return f.stt.writerAt(1).chunkCount() == 1
	})
}

// eagerFinalTranscriber delivers a final result from inside StartStreaming,
// before the channel is even returned.
type eagerFinalTranscriber struct{}

func (eagerFinalTranscriber) StartStreaming(_ context.Context, _, _ string, receiver transcriber.ResultReceiver) (transcriber.StreamWriter, error) {
	receiver.OnResult(transcriber.Result{Text: "opening remarks", IsFinal: true})
	return &mockStreamWriter{}, nil
}

func TestSessionStart_EarlyFinalCarriesSessionID(t *testing.T) {
	f := newRouterFixtureWith(t, eagerFinalTranscriber{})
	f.startMeeting(t)
	f.startSession(t)

	sessionID := f.sctx.activeSessionID()
	if sessionID == "" {
		t.Fatal("session must be installed on the connection")
	}
	waitFor(t, "early final persisted", func() bool {
		segs, _ := f.repo.ListSegmentsByMeeting(context.Background(), f.meetingID(), nil)
		return len(segs) == 1
	})
	segs, _ := f.repo.ListSegmentsByMeeting(context.Background(), f.meetingID(), nil)
	if segs[0].SessionID != sessionID {
		t.Fatalf("segment session id = %q, want %q", segs[0].SessionID, sessionID)
	}
}

func TestErrorCode_UnwrapsProtocolError(t *testing.T) {
	wrapped := fmt.Errorf("stop active session: %w", &protocolError{message: "meeting not found", code: CodeNotFound})
	if got := errorCode(wrapped); got != CodeNotFound {
		t.Fatalf("errorCode = %q, want %q", got, CodeNotFound)
	}
	if got := errorCode(fmt.Errorf("plain failure")); got != "" {
		t.Fatalf("errorCode = %q, want empty", got)
	}
}

func (f *routerFixture) meetingID() string {
	id, _ := f.sctx.snapshotMeeting()
	return id
}

func meetingInputOwnedBy(userID string) repository.CreateMeetingInput {
	return repository.CreateMeetingInput{
		OwnerUserID: userID,
		Title:       "someone else's meeting",
		StartedAt:   time.Now(),
	}
}
