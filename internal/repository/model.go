package repository

import "time"

type Meeting struct {
	ID          string
	OwnerUserID string
	Title       string
	StartedAt   time.Time
	EndedAt     *time.Time
	CreatedAt   time.Time
}

type Session struct {
	ID        string
	MeetingID string
	StartedAt time.Time
	EndedAt   *time.Time
}

type TranscriptSegment struct {
	ID             string
	SessionID      string
	Text           string
	Timestamp      time.Time
	IsFinal        bool
	Speaker        *int
	StartTime      *float64
	IsUtteranceEnd bool
	CreatedAt      time.Time
}

type Analysis struct {
	ID        string
	SessionID string
	Summary   []string
	Topics    []string
	Tags      []string
	Flow      string
	Heat      float64
	Timestamp time.Time
}

type MediaKind string

const (
	MediaKindImage   MediaKind = "image"
	MediaKindCapture MediaKind = "capture"
)

type GeneratedImage struct {
	ID        int64
	SessionID string
	FilePath  string
	Prompt    string
	Timestamp time.Time
}

type CameraCapture struct {
	ID        int64
	SessionID string
	FilePath  string
	Timestamp time.Time
}

type MetaSummary struct {
	ID                    string
	MeetingID             string
	StartTime             time.Time
	EndTime               time.Time
	Summary               []string
	Themes                []string
	RepresentativeImageID *int64
	CreatedAt             time.Time
}

type SpeakerAlias struct {
	MeetingID   string
	Speaker     int
	DisplayName string
	UpdatedAt   time.Time
}
