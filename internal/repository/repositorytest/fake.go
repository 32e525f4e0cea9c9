// Package repositorytest provides an in-memory Repository for tests.
package repositorytest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Eotel/live-graphic-recorder/internal/repository"
)

type Fake struct {
	mu sync.Mutex

	Meetings      map[string]*repository.Meeting
	Sessions      map[string]*repository.Session
	Segments      []repository.TranscriptSegment
	Analyses      []repository.Analysis
	Images        []repository.GeneratedImage
	Captures      []repository.CameraCapture
	MetaSummaries []repository.MetaSummary
	Aliases       []repository.SpeakerAlias

	nextID int64
}

func New() *Fake {
	return &Fake{
		Meetings: map[string]*repository.Meeting{},
		Sessions: map[string]*repository.Session{},
	}
}

func (f *Fake) next() int64 {
	f.nextID++
	return f.nextID
}

func (f *Fake) CreateMeeting(_ context.Context, input repository.CreateMeetingInput) (*repository.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &repository.Meeting{
		ID:          fmt.Sprintf("meeting-%d", f.next()),
		OwnerUserID: input.OwnerUserID,
		Title:       input.Title,
		StartedAt:   input.StartedAt,
	}
	f.Meetings[m.ID] = m
	return m, nil
}

func (f *Fake) GetMeeting(_ context.Context, meetingID string) (*repository.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Meetings[meetingID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *Fake) ListMeetingsByOwner(_ context.Context, ownerUserID string) ([]repository.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Meeting
	for _, m := range f.Meetings {
		if m.OwnerUserID == ownerUserID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (f *Fake) UpdateMeetingTitle(_ context.Context, meetingID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.Meetings[meetingID]; ok {
		m.Title = title
	}
	return nil
}

func (f *Fake) CloseMeeting(_ context.Context, meetingID string, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.Meetings[meetingID]; ok {
		m.EndedAt = &endedAt
	}
	return nil
}

func (f *Fake) CreateSession(_ context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &repository.Session{
		ID:        fmt.Sprintf("session-%d", f.next()),
		MeetingID: input.MeetingID,
		StartedAt: input.StartedAt,
	}
	f.Sessions[s.ID] = s
	return s, nil
}

func (f *Fake) CompleteSession(_ context.Context, sessionID string, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.Sessions[sessionID]; ok {
		s.EndedAt = &endedAt
	}
	return nil
}

func (f *Fake) ListSessionsByMeeting(_ context.Context, meetingID string) ([]repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Session
	for _, s := range f.Sessions {
		if s.MeetingID == meetingID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (f *Fake) sessionMeeting(sessionID string) string {
	if s, ok := f.Sessions[sessionID]; ok {
		return s.MeetingID
	}
	return ""
}

func (f *Fake) InsertSegment(_ context.Context, input repository.InsertSegmentInput) (*repository.TranscriptSegment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seg := repository.TranscriptSegment{
		ID:             fmt.Sprintf("segment-%d", f.next()),
		SessionID:      input.SessionID,
		Text:           input.Text,
		Timestamp:      input.Timestamp,
		IsFinal:        input.IsFinal,
		Speaker:        input.Speaker,
		StartTime:      input.StartTime,
		IsUtteranceEnd: input.IsUtteranceEnd,
	}
	f.Segments = append(f.Segments, seg)
	return &seg, nil
}

func (f *Fake) ListSegmentsByMeeting(_ context.Context, meetingID string, since *time.Time) ([]repository.TranscriptSegment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.TranscriptSegment
	for _, seg := range f.Segments {
		if !seg.IsFinal || f.sessionMeeting(seg.SessionID) != meetingID {
			continue
		}
		if since != nil && !seg.Timestamp.After(*since) {
			continue
		}
		out = append(out, seg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *Fake) InsertAnalysis(_ context.Context, input repository.InsertAnalysisInput) (*repository.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := repository.Analysis{
		ID:        fmt.Sprintf("analysis-%d", f.next()),
		SessionID: input.SessionID,
		Summary:   input.Summary,
		Topics:    input.Topics,
		Tags:      input.Tags,
		Flow:      input.Flow,
		Heat:      input.Heat,
		Timestamp: input.Timestamp,
	}
	f.Analyses = append(f.Analyses, a)
	return &a, nil
}

func (f *Fake) ListAnalysesByMeeting(_ context.Context, meetingID string, since *time.Time) ([]repository.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Analysis
	for _, a := range f.Analyses {
		if f.sessionMeeting(a.SessionID) != meetingID {
			continue
		}
		if since != nil && !a.Timestamp.After(*since) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *Fake) CountAnalysesAfter(_ context.Context, meetingID string, after time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.Analyses {
		if f.sessionMeeting(a.SessionID) == meetingID && a.Timestamp.After(after) {
			n++
		}
	}
	return n, nil
}

func (f *Fake) InsertImage(_ context.Context, input repository.InsertImageInput) (*repository.GeneratedImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img := repository.GeneratedImage{
		ID:        f.next(),
		SessionID: input.SessionID,
		FilePath:  input.FilePath,
		Prompt:    input.Prompt,
		Timestamp: input.Timestamp,
	}
	f.Images = append(f.Images, img)
	return &img, nil
}

func (f *Fake) InsertCapture(_ context.Context, input repository.InsertCaptureInput) (*repository.CameraCapture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := repository.CameraCapture{
		ID:        f.next(),
		SessionID: input.SessionID,
		FilePath:  input.FilePath,
		Timestamp: input.Timestamp,
	}
	f.Captures = append(f.Captures, cp)
	return &cp, nil
}

func (f *Fake) ListImagesByMeeting(_ context.Context, meetingID string, since *time.Time) ([]repository.GeneratedImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.GeneratedImage
	for _, img := range f.Images {
		if f.sessionMeeting(img.SessionID) != meetingID {
			continue
		}
		if since != nil && !img.Timestamp.After(*since) {
			continue
		}
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *Fake) ListCapturesByMeeting(_ context.Context, meetingID string, since *time.Time) ([]repository.CameraCapture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.CameraCapture
	for _, cp := range f.Captures {
		if f.sessionMeeting(cp.SessionID) != meetingID {
			continue
		}
		if since != nil && !cp.Timestamp.After(*since) {
			continue
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *Fake) GetImage(_ context.Context, meetingID string, imageID int64) (*repository.GeneratedImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, img := range f.Images {
		if img.ID == imageID && f.sessionMeeting(img.SessionID) == meetingID {
			cp := img
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *Fake) GetCapture(_ context.Context, meetingID string, captureID int64) (*repository.CameraCapture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cp := range f.Captures {
		if cp.ID == captureID && f.sessionMeeting(cp.SessionID) == meetingID {
			c := cp
			return &c, nil
		}
	}
	return nil, nil
}

func (f *Fake) InsertMetaSummary(_ context.Context, input repository.InsertMetaSummaryInput) (*repository.MetaSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ms := repository.MetaSummary{
		ID:                    fmt.Sprintf("meta-%d", f.next()),
		MeetingID:             input.MeetingID,
		StartTime:             input.StartTime,
		EndTime:               input.EndTime,
		Summary:               input.Summary,
		Themes:                input.Themes,
		RepresentativeImageID: input.RepresentativeImageID,
	}
	f.MetaSummaries = append(f.MetaSummaries, ms)
	return &ms, nil
}

func (f *Fake) ListMetaSummariesByMeeting(_ context.Context, meetingID string) ([]repository.MetaSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.MetaSummary
	for _, ms := range f.MetaSummaries {
		if ms.MeetingID == meetingID {
			out = append(out, ms)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return out, nil
}

func (f *Fake) GetLatestMetaSummary(_ context.Context, meetingID string) (*repository.MetaSummary, error) {
	all, _ := f.ListMetaSummariesByMeeting(context.Background(), meetingID)
	if len(all) == 0 {
		return nil, nil
	}
	latest := all[len(all)-1]
	return &latest, nil
}

func (f *Fake) UpsertSpeakerAlias(_ context.Context, input repository.UpsertSpeakerAliasInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Aliases {
		if f.Aliases[i].MeetingID == input.MeetingID && f.Aliases[i].Speaker == input.Speaker {
			f.Aliases[i].DisplayName = input.DisplayName
			return nil
		}
	}
	f.Aliases = append(f.Aliases, repository.SpeakerAlias{
		MeetingID:   input.MeetingID,
		Speaker:     input.Speaker,
		DisplayName: input.DisplayName,
	})
	return nil
}

func (f *Fake) ListSpeakerAliases(_ context.Context, meetingID string) ([]repository.SpeakerAlias, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.SpeakerAlias
	for _, a := range f.Aliases {
		if a.MeetingID == meetingID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Speaker < out[j].Speaker })
	return out, nil
}
