package repository

import (
	"context"
	"time"
)

type CreateMeetingInput struct {
	OwnerUserID string
	Title       string
	StartedAt   time.Time
}

type CreateSessionInput struct {
	MeetingID string
	StartedAt time.Time
}

type InsertSegmentInput struct {
	SessionID      string
	Text           string
	Timestamp      time.Time
	IsFinal        bool
	Speaker        *int
	StartTime      *float64
	IsUtteranceEnd bool
}

type InsertAnalysisInput struct {
	SessionID string
	Summary   []string
	Topics    []string
	Tags      []string
	Flow      string
	Heat      float64
	Timestamp time.Time
}

type InsertImageInput struct {
	SessionID string
	FilePath  string
	Prompt    string
	Timestamp time.Time
}

type InsertCaptureInput struct {
	SessionID string
	FilePath  string
	Timestamp time.Time
}

type InsertMetaSummaryInput struct {
	MeetingID             string
	StartTime             time.Time
	EndTime               time.Time
	Summary               []string
	Themes                []string
	RepresentativeImageID *int64
}

type UpsertSpeakerAliasInput struct {
	MeetingID   string
	Speaker     int
	DisplayName string
}

type MeetingRepository interface {
	CreateMeeting(ctx context.Context, input CreateMeetingInput) (*Meeting, error)
	// GetMeeting returns nil without error when no meeting matches.
	GetMeeting(ctx context.Context, meetingID string) (*Meeting, error)
	ListMeetingsByOwner(ctx context.Context, ownerUserID string) ([]Meeting, error)
	UpdateMeetingTitle(ctx context.Context, meetingID, title string) error
	CloseMeeting(ctx context.Context, meetingID string, endedAt time.Time) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	CompleteSession(ctx context.Context, sessionID string, endedAt time.Time) error
	ListSessionsByMeeting(ctx context.Context, meetingID string) ([]Session, error)
}

type TranscriptRepository interface {
	InsertSegment(ctx context.Context, input InsertSegmentInput) (*TranscriptSegment, error)
	// ListSegmentsByMeeting returns final segments across all of the
	// meeting's sessions ordered by timestamp. A nil since returns all.
	ListSegmentsByMeeting(ctx context.Context, meetingID string, since *time.Time) ([]TranscriptSegment, error)
}

type AnalysisRepository interface {
	InsertAnalysis(ctx context.Context, input InsertAnalysisInput) (*Analysis, error)
	ListAnalysesByMeeting(ctx context.Context, meetingID string, since *time.Time) ([]Analysis, error)
	CountAnalysesAfter(ctx context.Context, meetingID string, after time.Time) (int, error)
}

type MediaRepository interface {
	InsertImage(ctx context.Context, input InsertImageInput) (*GeneratedImage, error)
	InsertCapture(ctx context.Context, input InsertCaptureInput) (*CameraCapture, error)
	ListImagesByMeeting(ctx context.Context, meetingID string, since *time.Time) ([]GeneratedImage, error)
	ListCapturesByMeeting(ctx context.Context, meetingID string, since *time.Time) ([]CameraCapture, error)
	// GetImage and GetCapture return nil without error when the id does
	// not exist within the given meeting.
	GetImage(ctx context.Context, meetingID string, imageID int64) (*GeneratedImage, error)
	GetCapture(ctx context.Context, meetingID string, captureID int64) (*CameraCapture, error)
}

type MetaSummaryRepository interface {
	InsertMetaSummary(ctx context.Context, input InsertMetaSummaryInput) (*MetaSummary, error)
	ListMetaSummariesByMeeting(ctx context.Context, meetingID string) ([]MetaSummary, error)
	// GetLatestMetaSummary returns nil without error when the meeting has
	// no meta-summary yet.
	GetLatestMetaSummary(ctx context.Context, meetingID string) (*MetaSummary, error)
}

type SpeakerAliasRepository interface {
	UpsertSpeakerAlias(ctx context.Context, input UpsertSpeakerAliasInput) error
	ListSpeakerAliases(ctx context.Context, meetingID string) ([]SpeakerAlias, error)
}

type Repository interface {
	MeetingRepository
	SessionRepository
	TranscriptRepository
	AnalysisRepository
	MediaRepository
	MetaSummaryRepository
	SpeakerAliasRepository
}
