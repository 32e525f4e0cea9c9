package report

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Eotel/live-graphic-recorder/internal/mediastore"
	"github.com/Eotel/live-graphic-recorder/internal/repository"
)

type LimitPolicy string

const (
	// LimitPolicySkip omits media once the cap would be exceeded and still
	// produces a complete archive.
	LimitPolicySkip LimitPolicy = "skip"
	// LimitPolicyError aborts the whole export instead of emitting a
	// truncated archive.
	LimitPolicyError LimitPolicy = "error"
)

type Options struct {
	IncludeMedia    bool
	IncludeCaptures bool
	OnMediaLimit    LimitPolicy
}

const (
	MediaModeAll  = "all"
	MediaModeNone = "none"
)

// MediaBundle describes what ended up in the archive's media directory.
// Mode is "all" or "none"; partially-bundled archives are never produced.
type MediaBundle struct {
	Mode  string
	Files int
	Bytes int64
}

type Report struct {
	Stream      io.ReadCloser
	Filename    string
	MediaBundle MediaBundle
}

// SizeLimitError reports an export aborted under the "error" media policy.
type SizeLimitError struct {
	AttemptedBytes int64
	MaxBytes       int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("media size %d exceeds configured maximum %d", e.AttemptedBytes, e.MaxBytes)
}

var ErrMeetingNotFound = errors.New("meeting not found")

// Engine assembles a meeting's accumulated artifacts into a streamed zip
// archive. The archive is produced as a forward-only byte stream; nothing
// is buffered whole before the first byte reaches the caller.
type Engine struct {
	repo          repository.Repository
	media         mediastore.Store
	maxMediaBytes int64
}

func NewEngine(repo repository.Repository, media mediastore.Store, maxMediaBytes int64) *Engine {
	return &Engine{repo: repo, media: media, maxMediaBytes: maxMediaBytes}
}

type mediaItem struct {
	kind    string
	id      int64
	relPath string
	ts      time.Time
	size    int64
}

// BuildReport loads the meeting's artifacts, plans the media bundle under
// the size policy, and returns a streaming archive. The caller must close
// the stream.
func (e *Engine) BuildReport(ctx context.Context, meetingID string, opts Options) (*Report, error) {
	meeting, err := e.repo.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	if meeting == nil {
		return nil, ErrMeetingNotFound
	}

	sessions, err := e.repo.ListSessionsByMeeting(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	segments, err := e.repo.ListSegmentsByMeeting(ctx, meetingID, nil)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	analyses, err := e.repo.ListAnalysesByMeeting(ctx, meetingID, nil)
	if err != nil {
		return nil, fmt.Errorf("load analyses: %w", err)
	}
	images, err := e.repo.ListImagesByMeeting(ctx, meetingID, nil)
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	captures, err := e.repo.ListCapturesByMeeting(ctx, meetingID, nil)
	if err != nil {
		return nil, fmt.Errorf("load captures: %w", err)
	}
	metaSummaries, err := e.repo.ListMetaSummariesByMeeting(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("load meta-summaries: %w", err)
	}
	aliases, err := e.repo.ListSpeakerAliases(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("load speaker aliases: %w", err)
	}

	var wanted []mediaItem
	if opts.IncludeMedia {
		for _, img := range images {
			wanted = append(wanted, mediaItem{kind: "image", id: img.ID, relPath: img.FilePath, ts: img.Timestamp})
		}
	}
	if opts.IncludeCaptures {
		for _, cap := range captures {
			wanted = append(wanted, mediaItem{kind: "capture", id: cap.ID, relPath: cap.FilePath, ts: cap.Timestamp})
		}
	}

	bundled, missing, totalBytes, err := e.planMedia(wanted, opts.OnMediaLimit)
	if err != nil {
		return nil, err
	}

	aliasMap := speakerAliasMap(aliases)
	doc := jsonDocument{
		Meeting:        meetingDoc{ID: meeting.ID, Title: meeting.Title, StartedAt: meeting.StartedAt, EndedAt: meeting.EndedAt},
		Sessions:       make([]sessionDoc, 0, len(sessions)),
		Segments:       make([]segmentDoc, 0, len(segments)),
		Analyses:       make([]analysisDoc, 0, len(analyses)),
		TopicFrequency: topicFrequency(analyses),
		SpeakerAliases: aliasMap,
		MetaSummaries:  make([]metaSummaryDoc, 0, len(metaSummaries)),
		Media:          make([]mediaDoc, 0, len(bundled)),
		MissingMedia:   missing,
	}
	for _, s := range sessions {
		doc.Sessions = append(doc.Sessions, sessionDoc{ID: s.ID, StartedAt: s.StartedAt, EndedAt: s.EndedAt})
	}
	for _, seg := range segments {
		doc.Segments = append(doc.Segments, segmentDoc{
			SessionID:      seg.SessionID,
			Text:           seg.Text,
			Timestamp:      seg.Timestamp,
			Speaker:        seg.Speaker,
			IsUtteranceEnd: seg.IsUtteranceEnd,
		})
	}
	for _, a := range analyses {
		doc.Analyses = append(doc.Analyses, analysisDoc{
			SessionID: a.SessionID,
			Summary:   a.Summary,
			Topics:    a.Topics,
			Tags:      a.Tags,
			Flow:      a.Flow,
			Heat:      a.Heat,
			Timestamp: a.Timestamp,
		})
	}
	for _, ms := range metaSummaries {
		doc.MetaSummaries = append(doc.MetaSummaries, metaSummaryDoc{
			ID:                    ms.ID,
			StartTime:             ms.StartTime,
			EndTime:               ms.EndTime,
			Summary:               ms.Summary,
			Themes:                ms.Themes,
			RepresentativeImageID: ms.RepresentativeImageID,
		})
	}
	for _, item := range bundled {
		doc.Media = append(doc.Media, mediaDoc{
			Kind:        item.kind,
			ID:          item.id,
			ArchivePath: archiveMediaPath(item.kind, item.id, item.relPath),
			Timestamp:   item.ts,
		})
	}

	markdown := renderMarkdown(meeting, segments, analyses, metaSummaries, aliasMap)

	mode := MediaModeNone
	if len(bundled) > 0 {
		mode = MediaModeAll
	}

	stream := e.streamArchive(meeting, markdown, &doc, bundled)
	return &Report{
		Stream:   stream,
		Filename: reportFilename(meeting),
		MediaBundle: MediaBundle{
			Mode:  mode,
			Files: len(bundled),
			Bytes: totalBytes,
		},
	}, nil
}

// planMedia applies the size policy. Bundling is all-or-none: when the
// combined media size exceeds the cap, the "error" policy aborts the whole
// export and the "skip" policy bundles nothing, recording every item in
// the missing list. No partial enumeration state is exposed.
func (e *Engine) planMedia(wanted []mediaItem, policy LimitPolicy) ([]mediaItem, []missingMediaDoc, int64, error) {
	missing := make([]missingMediaDoc, 0)
	readable := make([]mediaItem, 0, len(wanted))
	var total int64
	for _, item := range wanted {
		size, err := e.media.Size(item.relPath)
		if err != nil {
			slog.Warn("media file missing during report export", "kind", item.kind, "media_id", item.id, "error", err)
			missing = append(missing, missingMediaDoc{Kind: item.kind, ID: item.id, Reason: "notFound"})
			continue
		}
		item.size = size
		readable = append(readable, item)
		total += size
	}

	if total > e.maxMediaBytes {
		if policy == LimitPolicyError {
			return nil, nil, 0, &SizeLimitError{AttemptedBytes: total, MaxBytes: e.maxMediaBytes}
		}
		for _, item := range readable {
			missing = append(missing, missingMediaDoc{Kind: item.kind, ID: item.id, Reason: "sizeLimit"})
		}
		return nil, missing, 0, nil
	}
	return readable, missing, total, nil
}

// streamArchive pipes zip entries to the reader as they are produced, so
// generation and transmission are pipelined.
func (e *Engine) streamArchive(meeting *repository.Meeting, markdown []byte, doc *jsonDocument, bundled []mediaItem) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		zw := zip.NewWriter(pw)
		err := e.writeEntries(zw, meeting, markdown, doc, bundled)
		if err == nil {
			err = zw.Close()
		} else {
			_ = zw.Close()
		}
		pw.CloseWithError(err)
	}()
	return pr
}

func (e *Engine) writeEntries(zw *zip.Writer, meeting *repository.Meeting, markdown []byte, doc *jsonDocument, bundled []mediaItem) error {
	modified := meeting.StartedAt.UTC()
	if meeting.EndedAt != nil {
		modified = meeting.EndedAt.UTC()
	}

	newEntry := func(name string) (io.Writer, error) {
		return zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
	}

	w, err := newEntry("report.md")
	if err != nil {
		return err
	}
	if _, err := w.Write(markdown); err != nil {
		return err
	}

	w, err = newEntry("report.json")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}

	for _, item := range bundled {
		f, err := e.media.Open(item.relPath)
		if err != nil {
			return fmt.Errorf("open media %s/%d: %w", item.kind, item.id, err)
		}
		w, err := newEntry(archiveMediaPath(item.kind, item.id, item.relPath))
		if err != nil {
			_ = f.Close()
			return err
		}
		if _, err := io.Copy(w, f); err != nil {
			_ = f.Close()
			return fmt.Errorf("copy media %s/%d: %w", item.kind, item.id, err)
		}
		_ = f.Close()
	}
	return nil
}
