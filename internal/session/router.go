package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Eotel/live-graphic-recorder/internal/config"
	"github.com/Eotel/live-graphic-recorder/internal/generator"
	"github.com/Eotel/live-graphic-recorder/internal/mediastore"
	"github.com/Eotel/live-graphic-recorder/internal/metasummary"
	"github.com/Eotel/live-graphic-recorder/internal/metrics"
	"github.com/Eotel/live-graphic-recorder/internal/repository"
	"github.com/Eotel/live-graphic-recorder/internal/transcriber"
)

const analysisTimeout = 60 * time.Second

// Router dispatches one connection's inbound frames. The transport calls
// HandleText/HandleBinary sequentially per connection, so one connection's
// frames are processed in receipt order while other connections proceed
// concurrently.
type Router struct {
	cfg      *config.Config
	repo     repository.Repository
	recorder *Recorder
	analyzer generator.Analyzer
	imageGen generator.ImageGenerator
	meta     *metasummary.Service
	hub      *Hub
	media    mediastore.Store
	limits   BackpressureLimits
}

func NewRouter(
	cfg *config.Config,
	repo repository.Repository,
	recorder *Recorder,
	analyzer generator.Analyzer,
	imageGen generator.ImageGenerator,
	meta *metasummary.Service,
	hub *Hub,
	media mediastore.Store,
) *Router {
	r := &Router{
		cfg:      cfg,
		repo:     repo,
		recorder: recorder,
		analyzer: analyzer,
		imageGen: imageGen,
		meta:     meta,
		hub:      hub,
		media:    media,
		limits: BackpressureLimits{
			MaxChunks:     cfg.MaxPendingAudioChunks,
			MaxChunkBytes: cfg.MaxPendingAudioChunkBytes,
			MaxTotalBytes: cfg.MaxPendingAudioTotalBytes,
		},
	}
	meta.OnGenerated = r.broadcastMetaSummary
	return r
}

// NewConnection creates the state object owned by one live connection.
func (r *Router) NewConnection(userID string, sender Sender) *Context {
	return newContext(uuid.NewString(), userID, r.cfg.DefaultImageModelPreset, sender)
}

// HandleText routes one inbound JSON control frame.
func (r *Router) HandleText(ctx context.Context, sctx *Context, payload []byte) {
	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil || frame.Type == "" {
		metrics.RecordFrame("malformed", false)
		sctx.sendError(invalidMessageFormat, "")
		return
	}

	var err error
	switch frame.Type {
	case TypeMeetingStart:
		err = r.handleMeetingStart(ctx, sctx, frame.Data)
	case TypeMeetingStop:
		err = r.handleMeetingStop(ctx, sctx)
	case TypeMeetingModeSet:
		err = r.handleMeetingModeSet(ctx, sctx, frame.Data)
	case TypeMeetingListRequest:
		err = r.handleMeetingList(ctx, sctx)
	case TypeMeetingHistory:
		err = r.handleMeetingHistory(ctx, sctx, frame.Data)
	case TypeMeetingUpdate:
		err = r.handleMeetingUpdate(ctx, sctx, frame.Data)
	case TypeSpeakerAliasUpdate:
		err = r.handleSpeakerAliasUpdate(ctx, sctx, frame.Data)
	case TypeSessionStart:
		err = r.handleSessionStart(ctx, sctx)
	case TypeSessionStop:
		err = r.handleSessionStop(ctx, sctx)
	case TypeCameraFrame:
		err = r.handleCameraFrame(ctx, sctx, frame.Data)
	case TypeImageModelSet:
		err = r.handleImageModelSet(sctx, frame.Data)
	default:
		// Unknown types are ignored for forward compatibility.
		slog.Warn("ignoring unknown frame type", "type", frame.Type, "conn_id", sctx.ConnID)
		metrics.RecordFrame("unknown", true)
		return
	}

	metrics.RecordFrame(frame.Type, err == nil)
	if err != nil {
		slog.Error("frame handling failed", "type", frame.Type, "error", err,
			"conn_id", sctx.ConnID, "user_id", sctx.UserID)
		sctx.sendError(err.Error(), errorCode(err))
	}
}

// HandleBinary routes one inbound audio chunk. Audio is only accepted in
// record mode; while the transcription channel is still starting, chunks
// pass the backpressure guard and are buffered, otherwise they are written
// straight through.
func (r *Router) HandleBinary(sctx *Context, chunk []byte) {
	_, mode := sctx.snapshotMeeting()
	if mode != ModeRecord {
		sctx.sendError("audio frames are not accepted in view mode", CodeReadOnlyMeeting)
		return
	}

	sctx.mu.Lock()
	sessionID := sctx.sessionID
	if sessionID == "" {
		sctx.mu.Unlock()
		sctx.sendError("no active recording session", CodeAudioDropped)
		return
	}

	if sctx.streamReady {
		w := sctx.writer
		sctx.mu.Unlock()
		if err := w.Write(chunk); err != nil {
			slog.Error("failed to write audio to transcription channel", "error", err, "session_id", sessionID)
			sctx.sendError("audio delivery failed", CodeAudioDropped)
			return
		}
	} else {
		decision := CanBuffer(len(chunk), len(sctx.pendingAudio), sctx.pendingAudioBytes, r.limits)
		if !decision.CanBuffer {
			sctx.mu.Unlock()
			metrics.AudioChunksDroppedTotal.WithLabelValues(string(decision.Reason)).Inc()
			sctx.sendError("audio chunk dropped: "+string(decision.Reason), CodeAudioDropped)
			return
		}
		buf := make([]byte, len(chunk))
		copy(buf, chunk)
		sctx.pendingAudio = append(sctx.pendingAudio, buf)
		sctx.pendingAudioBytes += len(buf)
		sctx.mu.Unlock()
		metrics.AudioChunksBufferedTotal.Inc()
	}

	r.recorder.AppendLocal(sessionID, chunk)
}

// HandleDisconnect tears the connection down: buffered audio is discarded,
// any in-flight recording session is stopped, and the context leaves the
// hub. Already-committed persistence writes stand.
func (r *Router) HandleDisconnect(ctx context.Context, sctx *Context) {
	meetingID, _ := sctx.snapshotMeeting()
	if meetingID != "" {
		r.hub.Unregister(meetingID, sctx.ConnID)
	}
	if sctx.activeSessionID() != "" {
		if _, err := r.recorder.Stop(ctx, sctx); err != nil {
			slog.Error("failed to stop session on disconnect", "error", err, "conn_id", sctx.ConnID)
		}
	}
}

// --- control frame handlers ---

func (r *Router) handleMeetingStart(ctx context.Context, sctx *Context, data json.RawMessage) error {
	var in meetingStartData
	if err := unmarshalData(data, &in); err != nil {
		return err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Untitled meeting"
	}

	meeting, err := r.repo.CreateMeeting(ctx, repository.CreateMeetingInput{
		OwnerUserID: sctx.UserID,
		Title:       title,
		StartedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("create meeting: %w", err)
	}

	r.joinMeeting(sctx, meeting.ID, ModeRecord)
	slog.Info("meeting started", "meeting_id", meeting.ID, "user_id", sctx.UserID)
	sctx.send(OutboundFrame{Type: TypeMeetingStarted, Data: toMeetingPayload(meeting)})
	return nil
}

func (r *Router) handleMeetingStop(ctx context.Context, sctx *Context) error {
	meetingID, _ := sctx.snapshotMeeting()
	if meetingID == "" {
		return &protocolError{message: "not in a meeting", code: CodeNotInMeeting}
	}
	meeting, err := r.ownedMeeting(ctx, sctx, meetingID)
	if err != nil {
		return err
	}

	if sctx.activeSessionID() != "" {
		if _, err := r.recorder.Stop(ctx, sctx); err != nil {
			return fmt.Errorf("stop active session: %w", err)
		}
	}
	if err := r.repo.CloseMeeting(ctx, meeting.ID, time.Now()); err != nil {
		return fmt.Errorf("close meeting: %w", err)
	}

	slog.Info("meeting stopped", "meeting_id", meeting.ID, "user_id", sctx.UserID)
	r.hub.Broadcast(meeting.ID, OutboundFrame{Type: TypeMeetingStopped, Data: meetingPayload{ID: meeting.ID}})
	r.leaveMeeting(sctx)
	return nil
}

func (r *Router) handleMeetingModeSet(ctx context.Context, sctx *Context, data json.RawMessage) error {
	var in meetingModeSetData
	if err := unmarshalData(data, &in); err != nil {
		return err
	}
	mode := MeetingMode(in.Mode)
	if mode != ModeRecord && mode != ModeView {
		return &protocolError{message: "mode must be record or view", code: CodeInvalidPayload}
	}

	meeting, err := r.repo.GetMeeting(ctx, in.MeetingID)
	if err != nil {
		return fmt.Errorf("get meeting: %w", err)
	}
	// Absence and lack of permission look identical to the caller.
	if meeting == nil || (mode == ModeRecord && meeting.OwnerUserID != sctx.UserID) {
		return &protocolError{message: "meeting not found", code: CodeNotFound}
	}

	if sctx.activeSessionID() != "" {
		if _, err := r.recorder.Stop(ctx, sctx); err != nil {
			return fmt.Errorf("stop active session: %w", err)
		}
	}
	r.joinMeeting(sctx, meeting.ID, mode)
	slog.Info("meeting mode set", "meeting_id", meeting.ID, "mode", mode, "user_id", sctx.UserID)
	sctx.send(OutboundFrame{Type: TypeMeetingMode, Data: map[string]string{
		"meetingId": meeting.ID,
		"mode":      string(mode),
	}})
	return nil
}

func (r *Router) handleMeetingList(ctx context.Context, sctx *Context) error {
	meetings, err := r.repo.ListMeetingsByOwner(ctx, sctx.UserID)
	if err != nil {
		return fmt.Errorf("list meetings: %w", err)
	}
	payload := make([]meetingPayload, 0, len(meetings))
	for i := range meetings {
		payload = append(payload, toMeetingPayload(&meetings[i]))
	}
	sctx.send(OutboundFrame{Type: TypeMeetingList, Data: payload})
	return nil
}

func (r *Router) handleMeetingHistory(ctx context.Context, sctx *Context, data json.RawMessage) error {
	meetingID, _ := sctx.snapshotMeeting()
	if meetingID == "" {
		return &protocolError{message: "not in a meeting", code: CodeNotInMeeting}
	}
	var in meetingHistoryData
	if err := unmarshalData(data, &in); err != nil {
		return err
	}

	segments, err := r.repo.ListSegmentsByMeeting(ctx, meetingID, in.Since)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}
	analyses, err := r.repo.ListAnalysesByMeeting(ctx, meetingID, in.Since)
	if err != nil {
		return fmt.Errorf("load analyses: %w", err)
	}
	images, err := r.repo.ListImagesByMeeting(ctx, meetingID, in.Since)
	if err != nil {
		return fmt.Errorf("load images: %w", err)
	}
	metaSummaries, err := r.repo.ListMetaSummariesByMeeting(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("load meta-summaries: %w", err)
	}

	history := historyPayload{
		Segments:      make([]segmentPayload, 0, len(segments)),
		Analyses:      make([]analysisPayload, 0, len(analyses)),
		Images:        make([]imagePayload, 0, len(images)),
		MetaSummaries: make([]metaSummaryPayload, 0, len(metaSummaries)),
	}
	for i := range segments {
		history.Segments = append(history.Segments, toSegmentPayload(&segments[i]))
	}
	for i := range analyses {
		history.Analyses = append(history.Analyses, toAnalysisPayload(&analyses[i]))
	}
	for i := range images {
		history.Images = append(history.Images, toImagePayload(meetingID, &images[i]))
	}
	for i := range metaSummaries {
		history.MetaSummaries = append(history.MetaSummaries, toMetaSummaryPayload(&metaSummaries[i]))
	}
	sctx.send(OutboundFrame{Type: TypeMeetingHistoryRes, Data: history})
	return nil
}

func (r *Router) handleMeetingUpdate(ctx context.Context, sctx *Context, data json.RawMessage) error {
	meetingID, _ := sctx.snapshotMeeting()
	if meetingID == "" {
		return &protocolError{message: "not in a meeting", code: CodeNotInMeeting}
	}
	var in meetingUpdateData
	if err := unmarshalData(data, &in); err != nil {
		return err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return &protocolError{message: "title must not be blank", code: CodeInvalidPayload}
	}
	if _, err := r.ownedMeeting(ctx, sctx, meetingID); err != nil {
		return err
	}
	if err := r.repo.UpdateMeetingTitle(ctx, meetingID, title); err != nil {
		return fmt.Errorf("update meeting title: %w", err)
	}
	r.hub.Broadcast(meetingID, OutboundFrame{Type: TypeMeetingUpdated, Data: map[string]string{
		"meetingId": meetingID,
		"title":     title,
	}})
	return nil
}

func (r *Router) handleSpeakerAliasUpdate(ctx context.Context, sctx *Context, data json.RawMessage) error {
	meetingID, _ := sctx.snapshotMeeting()
	if meetingID == "" {
		return &protocolError{message: "not in a meeting", code: CodeNotInMeeting}
	}
	var in speakerAliasUpdateData
	if err := unmarshalData(data, &in); err != nil {
		return err
	}
	if in.Speaker < 0 {
		return &protocolError{message: "speaker index must be non-negative", code: CodeInvalidPayload}
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return &protocolError{message: "display name must not be blank", code: CodeInvalidPayload}
	}
	if _, err := r.ownedMeeting(ctx, sctx, meetingID); err != nil {
		return err
	}
	if err := r.repo.UpsertSpeakerAlias(ctx, repository.UpsertSpeakerAliasInput{
		MeetingID:   meetingID,
		Speaker:     in.Speaker,
		DisplayName: name,
	}); err != nil {
		return fmt.Errorf("upsert speaker alias: %w", err)
	}
	r.hub.Broadcast(meetingID, OutboundFrame{Type: TypeSpeakerAlias, Data: map[string]any{
		"meetingId":   meetingID,
		"speaker":     in.Speaker,
		"displayName": name,
	}})
	return nil
}

func (r *Router) handleSessionStart(ctx context.Context, sctx *Context) error {
	meetingID, mode := sctx.snapshotMeeting()
	if meetingID == "" {
		return &protocolError{message: "not in a meeting", code: CodeNotInMeeting}
	}
	if mode != ModeRecord {
		return &protocolError{message: "recording requires record mode", code: CodeReadOnlyMeeting}
	}
	if sctx.activeSessionID() != "" {
		return &protocolError{message: "a recording session is already active", code: CodeInvalidPayload}
	}

	sess, err := r.recorder.Start(ctx, sctx, func(sessionID string) transcriber.ResultReceiver {
		return &sessionReceiver{router: r, sctx: sctx, meetingID: meetingID, sessionID: sessionID}
	})
	if err != nil {
		return fmt.Errorf("start recording session: %w", err)
	}

	slog.Info("recording session started", "session_id", sess.ID, "meeting_id", meetingID)
	sctx.send(OutboundFrame{Type: TypeSessionStarted, Data: map[string]string{"sessionId": sess.ID}})
	return nil
}

func (r *Router) handleSessionStop(ctx context.Context, sctx *Context) error {
	sessionID := sctx.activeSessionID()
	if sessionID == "" {
		return &protocolError{message: "no active recording session", code: CodeInvalidPayload}
	}
	hasUnsavedLocal, err := r.recorder.Stop(ctx, sctx)
	if err != nil {
		return fmt.Errorf("stop recording session: %w", err)
	}
	slog.Info("recording session stopped", "session_id", sessionID, "has_unsaved_local", hasUnsavedLocal)
	sctx.send(OutboundFrame{Type: TypeSessionStopped, Data: sessionStoppedPayload{
		SessionID:       sessionID,
		HasUnsavedLocal: hasUnsavedLocal,
	}})
	return nil
}

func (r *Router) handleCameraFrame(ctx context.Context, sctx *Context, data json.RawMessage) error {
	meetingID, mode := sctx.snapshotMeeting()
	if mode != ModeRecord {
		return &protocolError{message: "camera frames are not accepted in view mode", code: CodeReadOnlyMeeting}
	}
	sessionID := sctx.activeSessionID()
	if sessionID == "" {
		return &protocolError{message: "no active recording session", code: CodeInvalidPayload}
	}
	var in cameraFrameData
	if err := unmarshalData(data, &in); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(in.Image)
	if err != nil || len(raw) == 0 {
		return &protocolError{message: "camera frame image must be base64-encoded", code: CodeInvalidPayload}
	}

	ts := time.Now()
	if in.Timestamp != nil {
		ts = *in.Timestamp
	}
	relPath := fmt.Sprintf("captures/%s/%s.jpg", sessionID, uuid.NewString())
	if err := r.media.Save(relPath, raw); err != nil {
		return fmt.Errorf("save camera capture: %w", err)
	}
	capture, err := r.repo.InsertCapture(ctx, repository.InsertCaptureInput{
		SessionID: sessionID,
		FilePath:  relPath,
		Timestamp: ts,
	})
	if err != nil {
		return fmt.Errorf("persist camera capture: %w", err)
	}
	slog.Debug("camera capture stored", "capture_id", capture.ID, "session_id", sessionID, "meeting_id", meetingID)
	return nil
}

func (r *Router) handleImageModelSet(sctx *Context, data json.RawMessage) error {
	var in imageModelSetData
	if err := unmarshalData(data, &in); err != nil {
		return err
	}
	preset := strings.TrimSpace(in.Preset)
	if preset == "" {
		return &protocolError{message: "preset must not be blank", code: CodeInvalidPayload}
	}
	sctx.mu.Lock()
	sctx.imageModelPreset = preset
	sctx.mu.Unlock()
	sctx.send(OutboundFrame{Type: TypeImageModel, Data: map[string]string{"preset": preset}})
	return nil
}

// --- transcript pipeline ---

// sessionReceiver bridges transcription channel callbacks back into the
// session: persisting finals, reconciling utterance-end signals, fanning
// segments out to the meeting, and scheduling periodic analyses.
type sessionReceiver struct {
	router    *Router
	sctx      *Context
	meetingID string
	sessionID string

	mu sync.Mutex // serializes final-segment persistence
}

func (sr *sessionReceiver) OnResult(res transcriber.Result) {
	if strings.TrimSpace(res.Text) == "" {
		return
	}
	if !res.IsFinal {
		// Interim results are fanned out live but never persisted.
		sr.router.hub.Broadcast(sr.meetingID, OutboundFrame{Type: TypeTranscriptSegment, Data: segmentPayload{
			SessionID: sr.sessionID,
			Text:      res.Text,
			Timestamp: time.Now(),
			IsFinal:   false,
			Speaker:   res.Speaker,
			StartTime: res.StartTime,
		}})
		return
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	seg, err := sr.router.repo.InsertSegment(ctx, repository.InsertSegmentInput{
		SessionID:      sr.sessionID,
		Text:           res.Text,
		Timestamp:      time.Now(),
		IsFinal:        true,
		Speaker:        res.Speaker,
		StartTime:      res.StartTime,
		IsUtteranceEnd: sr.sctx.consumeUtteranceEnd(),
	})
	if err != nil {
		slog.Error("failed to insert transcript segment", "error", err, "session_id", sr.sessionID)
		return
	}
	sr.router.hub.Broadcast(sr.meetingID, OutboundFrame{Type: TypeTranscriptSegment, Data: toSegmentPayload(seg)})

	sr.sctx.mu.Lock()
	sr.sctx.finalsSinceAnalysis++
	due := sr.sctx.finalsSinceAnalysis >= sr.router.cfg.AnalysisMinSegments
	if due {
		sr.sctx.finalsSinceAnalysis = 0
	}
	preset := sr.sctx.imageModelPreset
	sr.sctx.mu.Unlock()

	if due {
		go sr.router.runAnalysis(sr.meetingID, sr.sessionID, preset)
	}
}

func (sr *sessionReceiver) OnUtteranceEnd() {
	sr.sctx.noteUtteranceEnd()
}

func (sr *sessionReceiver) OnError(err error) {
	slog.Error("transcription channel error", "error", err, "session_id", sr.sessionID, "meeting_id", sr.meetingID)
	sr.sctx.sendError("transcription temporarily unavailable", "")
}

// runAnalysis summarizes the transcript accumulated since the previous
// analysis, persists the result, and kicks off illustration and
// meta-summary evaluation. Runs detached from the frame path; failures are
// logged and contained here.
func (r *Router) runAnalysis(meetingID, sessionID, imageModelPreset string) {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	var since *time.Time
	analyses, err := r.repo.ListAnalysesByMeeting(ctx, meetingID, nil)
	if err != nil {
		slog.Error("failed to load previous analyses", "error", err, "meeting_id", meetingID)
		return
	}
	if len(analyses) > 0 {
		last := analyses[len(analyses)-1].Timestamp
		since = &last
	}

	segments, err := r.repo.ListSegmentsByMeeting(ctx, meetingID, since)
	if err != nil {
		slog.Error("failed to load transcript window", "error", err, "meeting_id", meetingID)
		return
	}
	if len(segments) == 0 {
		return
	}

	lines := make([]generator.TranscriptLine, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, generator.TranscriptLine{
			Speaker:   seg.Speaker,
			Text:      seg.Text,
			Timestamp: seg.Timestamp,
		})
	}

	result, err := r.analyzer.Analyze(ctx, lines)
	if err != nil {
		slog.Error("analysis generation failed", "error", err, "meeting_id", meetingID)
		return
	}

	analysis, err := r.repo.InsertAnalysis(ctx, repository.InsertAnalysisInput{
		SessionID: sessionID,
		Summary:   result.Summary,
		Topics:    result.Topics,
		Tags:      result.Tags,
		Flow:      result.Flow,
		Heat:      result.Heat,
		Timestamp: time.Now(),
	})
	if err != nil {
		slog.Error("failed to persist analysis", "error", err, "meeting_id", meetingID)
		return
	}
	slog.Info("analysis generated", "meeting_id", meetingID, "session_id", sessionID, "topics", len(analysis.Topics))
	r.hub.Broadcast(meetingID, OutboundFrame{Type: TypeAnalysisNew, Data: toAnalysisPayload(analysis)})

	r.runIllustration(ctx, meetingID, sessionID, analysis, imageModelPreset)
	r.meta.TriggerAsync(meetingID)
}

// runIllustration asks the image collaborator for a picture of the latest
// analysis. Best-effort.
func (r *Router) runIllustration(ctx context.Context, meetingID, sessionID string, analysis *repository.Analysis, preset string) {
	prompt := illustrationPrompt(analysis)
	if prompt == "" {
		return
	}
	data, err := r.imageGen.GenerateImage(ctx, generator.ImageRequest{Prompt: prompt, ModelPreset: preset})
	if err != nil {
		slog.Error("image generation failed", "error", err, "meeting_id", meetingID)
		return
	}
	relPath := fmt.Sprintf("images/%s/%s.png", sessionID, uuid.NewString())
	if err := r.media.Save(relPath, data); err != nil {
		slog.Error("failed to save generated image", "error", err, "meeting_id", meetingID)
		return
	}
	img, err := r.repo.InsertImage(ctx, repository.InsertImageInput{
		SessionID: sessionID,
		FilePath:  relPath,
		Prompt:    prompt,
		Timestamp: time.Now(),
	})
	if err != nil {
		slog.Error("failed to persist generated image", "error", err, "meeting_id", meetingID)
		return
	}
	r.hub.Broadcast(meetingID, OutboundFrame{Type: TypeImageNew, Data: toImagePayload(meetingID, img)})
}

func illustrationPrompt(analysis *repository.Analysis) string {
	if len(analysis.Topics) > 0 {
		return strings.Join(analysis.Topics, ", ")
	}
	if len(analysis.Summary) > 0 {
		return analysis.Summary[0]
	}
	return ""
}

func (r *Router) broadcastMetaSummary(ms *repository.MetaSummary) {
	r.hub.Broadcast(ms.MeetingID, OutboundFrame{Type: TypeMetaSummaryNew, Data: toMetaSummaryPayload(ms)})
}

// --- helpers ---

func (r *Router) joinMeeting(sctx *Context, meetingID string, mode MeetingMode) {
	prev, _ := sctx.snapshotMeeting()
	if prev != "" && prev != meetingID {
		r.hub.Unregister(prev, sctx.ConnID)
	}
	sctx.mu.Lock()
	sctx.meetingID = meetingID
	sctx.meetingMode = mode
	sctx.mu.Unlock()
	r.hub.Register(meetingID, sctx.ConnID, sctx.sender)
}

func (r *Router) leaveMeeting(sctx *Context) {
	meetingID, _ := sctx.snapshotMeeting()
	if meetingID != "" {
		r.hub.Unregister(meetingID, sctx.ConnID)
	}
	sctx.mu.Lock()
	sctx.meetingID = ""
	sctx.meetingMode = ModeNone
	sctx.mu.Unlock()
}

// ownedMeeting loads a meeting the caller must own. Absence and lack of
// ownership are indistinguishable to the caller.
func (r *Router) ownedMeeting(ctx context.Context, sctx *Context, meetingID string) (*repository.Meeting, error) {
	meeting, err := r.repo.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	if meeting == nil || meeting.OwnerUserID != sctx.UserID {
		return nil, &protocolError{message: "meeting not found", code: CodeNotFound}
	}
	return meeting, nil
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return &protocolError{message: "missing payload", code: CodeInvalidPayload}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &protocolError{message: "invalid payload", code: CodeInvalidPayload}
	}
	return nil
}

type protocolError struct {
	message string
	code    string
}

func (e *protocolError) Error() string { return e.message }

func errorCode(err error) string {
	var pe *protocolError
	if errors.As(err, &pe) {
		return pe.code
	}
	return ""
}

func toMeetingPayload(m *repository.Meeting) meetingPayload {
	return meetingPayload{ID: m.ID, Title: m.Title, StartedAt: m.StartedAt, EndedAt: m.EndedAt}
}

func toSegmentPayload(s *repository.TranscriptSegment) segmentPayload {
	return segmentPayload{
		SessionID:      s.SessionID,
		Text:           s.Text,
		Timestamp:      s.Timestamp,
		IsFinal:        s.IsFinal,
		Speaker:        s.Speaker,
		StartTime:      s.StartTime,
		IsUtteranceEnd: s.IsUtteranceEnd,
	}
}

func toAnalysisPayload(a *repository.Analysis) analysisPayload {
	return analysisPayload{
		SessionID: a.SessionID,
		Summary:   a.Summary,
		Topics:    a.Topics,
		Tags:      a.Tags,
		Flow:      a.Flow,
		Heat:      a.Heat,
		Timestamp: a.Timestamp,
	}
}

func toImagePayload(meetingID string, img *repository.GeneratedImage) imagePayload {
	return imagePayload{
		ID:        img.ID,
		SessionID: img.SessionID,
		URL:       fmt.Sprintf("/api/meetings/%s/images/%d", meetingID, img.ID),
		Prompt:    img.Prompt,
		Timestamp: img.Timestamp,
	}
}

func toMetaSummaryPayload(ms *repository.MetaSummary) metaSummaryPayload {
	return metaSummaryPayload{
		ID:                    ms.ID,
		MeetingID:             ms.MeetingID,
		StartTime:             ms.StartTime,
		EndTime:               ms.EndTime,
		Summary:               ms.Summary,
		Themes:                ms.Themes,
		RepresentativeImageID: ms.RepresentativeImageID,
	}
}
