package metasummary

import (
	"context"
	"log/slog"
	"time"

	"github.com/Eotel/live-graphic-recorder/internal/generator"
	"github.com/Eotel/live-graphic-recorder/internal/repository"
)

const generateTimeout = 60 * time.Second

// Service rolls accumulated analyses up into meta-summaries. Generation is
// best-effort: failures are logged and swallowed, never retried, and never
// surfaced to the real-time recording path. The next qualifying analysis
// re-triggers evaluation.
type Service struct {
	repo       repository.Repository
	summarizer generator.MetaSummarizer

	// MinNewAnalyses is the tunable trigger threshold: how many analyses
	// must have accumulated past the last covered window.
	minNewAnalyses int

	// OnGenerated, when set, is invoked with each persisted meta-summary.
	OnGenerated func(ms *repository.MetaSummary)
}

func NewService(repo repository.Repository, summarizer generator.MetaSummarizer, minNewAnalyses int) *Service {
	return &Service{repo: repo, summarizer: summarizer, minNewAnalyses: minNewAnalyses}
}

// TriggerAsync evaluates the trigger on a detached goroutine.
func (s *Service) TriggerAsync(meetingID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
		defer cancel()
		if err := s.MaybeGenerate(ctx, meetingID); err != nil {
			slog.Error("meta-summary generation failed", "error", err, "meeting_id", meetingID)
		}
	}()
}

// MaybeGenerate checks whether enough new analyses accumulated since the
// last meta-summary and, if so, generates and persists one covering the
// uncovered window. Windows are keyed off the previous window's end time,
// so they advance monotonically and never overlap.
func (s *Service) MaybeGenerate(ctx context.Context, meetingID string) error {
	last, err := s.repo.GetLatestMetaSummary(ctx, meetingID)
	if err != nil {
		return err
	}
	var after time.Time
	if last != nil {
		after = last.EndTime
	}

	n, err := s.repo.CountAnalysesAfter(ctx, meetingID, after)
	if err != nil {
		return err
	}
	if n < s.minNewAnalyses {
		return nil
	}

	var since *time.Time
	if !after.IsZero() {
		since = &after
	}
	analyses, err := s.repo.ListAnalysesByMeeting(ctx, meetingID, since)
	if err != nil {
		return err
	}
	if len(analyses) == 0 {
		return nil
	}

	startTime := analyses[0].Timestamp
	endTime := analyses[len(analyses)-1].Timestamp

	items := make([]generator.AnalysisWindowItem, 0, len(analyses))
	for _, a := range analyses {
		items = append(items, generator.AnalysisWindowItem{
			Summary:   a.Summary,
			Topics:    a.Topics,
			Timestamp: a.Timestamp,
		})
	}

	result, err := s.summarizer.Summarize(ctx, generator.MetaSummaryRequest{
		Analyses:  items,
		StartTime: startTime,
		EndTime:   endTime,
	})
	if err != nil {
		return err
	}

	ms, err := s.repo.InsertMetaSummary(ctx, repository.InsertMetaSummaryInput{
		MeetingID:             meetingID,
		StartTime:             startTime,
		EndTime:               endTime,
		Summary:               result.Summary,
		Themes:                result.Themes,
		RepresentativeImageID: s.representativeImage(ctx, meetingID, since, endTime),
	})
	if err != nil {
		return err
	}
	slog.Info("meta-summary generated", "meeting_id", meetingID, "meta_summary_id", ms.ID,
		"window_start", startTime, "window_end", endTime, "analyses", len(analyses))

	if s.OnGenerated != nil {
		s.OnGenerated(ms)
	}
	return nil
}

// representativeImage picks the newest generated image inside the window,
// if any. Best-effort; lookup failures leave the field unset.
func (s *Service) representativeImage(ctx context.Context, meetingID string, since *time.Time, endTime time.Time) *int64 {
	images, err := s.repo.ListImagesByMeeting(ctx, meetingID, since)
	if err != nil {
		slog.Warn("failed to list images for meta-summary", "error", err, "meeting_id", meetingID)
		return nil
	}
	var picked *int64
	for i := range images {
		if images[i].Timestamp.After(endTime) {
			break
		}
		picked = &images[i].ID
	}
	return picked
}
