package session

import (
	"encoding/json"
	"strings"
	"time"
)

// Inbound frame types.
const (
	TypeMeetingStart       = "meeting:start"
	TypeMeetingStop        = "meeting:stop"
	TypeMeetingModeSet     = "meeting:mode:set"
	TypeMeetingListRequest = "meeting:list:request"
	TypeMeetingHistory     = "meeting:history:request"
	TypeMeetingUpdate      = "meeting:update"
	TypeSpeakerAliasUpdate = "meeting:speaker-alias:update"
	TypeSessionStart       = "session:start"
	TypeSessionStop        = "session:stop"
	TypeCameraFrame        = "camera:frame"
	TypeImageModelSet      = "image:model:set"
)

// Outbound frame types.
const (
	TypeError             = "error"
	TypeMeetingStarted    = "meeting:started"
	TypeMeetingStopped    = "meeting:stopped"
	TypeMeetingMode       = "meeting:mode"
	TypeMeetingList       = "meeting:list"
	TypeMeetingHistoryRes = "meeting:history"
	TypeMeetingUpdated    = "meeting:updated"
	TypeSpeakerAlias      = "meeting:speaker-alias"
	TypeSessionStarted    = "session:started"
	TypeSessionStopped    = "session:stopped"
	TypeTranscriptSegment = "transcript:segment"
	TypeAnalysisNew       = "analysis:new"
	TypeImageNew          = "image:new"
	TypeMetaSummaryNew    = "meta-summary:new"
	TypeImageModel        = "image:model"
)

// Error codes carried in outbound error frames.
const (
	CodeReadOnlyMeeting = "READ_ONLY_MEETING"
	CodeAudioDropped    = "AUDIO_DROPPED"
	CodeNotInMeeting    = "NOT_IN_MEETING"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidPayload  = "INVALID_PAYLOAD"
)

const invalidMessageFormat = "Invalid message format"

// maxClientErrorLen bounds error text surfaced to clients.
const maxClientErrorLen = 200

type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type OutboundFrame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func errorFrame(message, code string) OutboundFrame {
	return OutboundFrame{Type: TypeError, Data: ErrorData{Message: sanitizeClientMessage(message), Code: code}}
}

// sanitizeClientMessage strips path-looking and credential-looking
// fragments and truncates before an internal error message crosses the
// connection.
func sanitizeClientMessage(msg string) string {
	fields := strings.Fields(msg)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.ContainsRune(f, '/') || strings.ContainsRune(f, '\\') || looksLikeCredential(f) {
			continue
		}
		kept = append(kept, f)
	}
	out := strings.Join(kept, " ")
	if out == "" {
		out = "internal error"
	}
	if len(out) > maxClientErrorLen {
		out = out[:maxClientErrorLen]
	}
	return out
}

// looksLikeCredential reports whether a token resembles a secret: a
// key=value pair naming a credential, a JWT, or a long opaque base64/hex
// run such as an API key.
func looksLikeCredential(token string) bool {
	lower := strings.ToLower(token)
	for _, marker := range []string{"token=", "key=", "secret=", "password=", "authorization=", "bearer"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	if strings.HasPrefix(token, "eyJ") && strings.Count(token, ".") == 2 {
		return true
	}
	return len(token) >= 32 && isOpaqueRun(token)
}

func isOpaqueRun(token string) bool {
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '+', r == '=', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Inbound payloads.

type meetingStartData struct {
	Title string `json:"title"`
}

type meetingModeSetData struct {
	MeetingID string `json:"meetingId"`
	Mode      string `json:"mode"`
}

type meetingHistoryData struct {
	Since *time.Time `json:"since,omitempty"`
}

type meetingUpdateData struct {
	Title string `json:"title"`
}

type speakerAliasUpdateData struct {
	Speaker     int    `json:"speaker"`
	DisplayName string `json:"displayName"`
}

type cameraFrameData struct {
	Image     string     `json:"image"` // base64-encoded
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type imageModelSetData struct {
	Preset string `json:"preset"`
}

// Outbound payloads.

type meetingPayload struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

type segmentPayload struct {
	SessionID      string    `json:"sessionId"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	IsFinal        bool      `json:"isFinal"`
	Speaker        *int      `json:"speaker,omitempty"`
	StartTime      *float64  `json:"startTime,omitempty"`
	IsUtteranceEnd bool      `json:"isUtteranceEnd,omitempty"`
}

type analysisPayload struct {
	SessionID string    `json:"sessionId"`
	Summary   []string  `json:"summary"`
	Topics    []string  `json:"topics"`
	Tags      []string  `json:"tags"`
	Flow      string    `json:"flow"`
	Heat      float64   `json:"heat"`
	Timestamp time.Time `json:"timestamp"`
}

type imagePayload struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	URL       string    `json:"url"`
	Prompt    string    `json:"prompt,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type metaSummaryPayload struct {
	ID                    string    `json:"id"`
	MeetingID             string    `json:"meetingId"`
	StartTime             time.Time `json:"startTime"`
	EndTime               time.Time `json:"endTime"`
	Summary               []string  `json:"summary"`
	Themes                []string  `json:"themes"`
	RepresentativeImageID *int64    `json:"representativeImageId,omitempty"`
}

type sessionStoppedPayload struct {
	SessionID       string `json:"sessionId"`
	HasUnsavedLocal bool   `json:"hasUnsavedLocal"`
}

type historyPayload struct {
	Segments      []segmentPayload     `json:"segments"`
	Analyses      []analysisPayload    `json:"analyses"`
	Images        []imagePayload       `json:"images"`
	MetaSummaries []metaSummaryPayload `json:"metaSummaries"`
}
