package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Eotel/live-graphic-recorder/internal/repository"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

// --- meetings ---

func (r *PostgresRepository) CreateMeeting(ctx context.Context, input repository.CreateMeetingInput) (*repository.Meeting, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO meetings (owner_user_id, title, started_at)
		 VALUES ($1, $2, $3)
		 RETURNING id, owner_user_id, title, started_at, ended_at, created_at`,
		input.OwnerUserID, input.Title, input.StartedAt)
	return scanMeeting(row)
}

func (r *PostgresRepository) GetMeeting(ctx context.Context, meetingID string) (*repository.Meeting, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, owner_user_id, title, started_at, ended_at, created_at
		 FROM meetings WHERE id = $1`,
		meetingID)
	m, err := scanMeeting(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *PostgresRepository) ListMeetingsByOwner(ctx context.Context, ownerUserID string) ([]repository.Meeting, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_user_id, title, started_at, ended_at, created_at
		 FROM meetings WHERE owner_user_id = $1 ORDER BY started_at DESC`,
		ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) UpdateMeetingTitle(ctx context.Context, meetingID, title string) error {
	_, err := r.pool.Exec(ctx, `UPDATE meetings SET title = $2 WHERE id = $1`, meetingID, title)
	return err
}

func (r *PostgresRepository) CloseMeeting(ctx context.Context, meetingID string, endedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE meetings SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`,
		meetingID, endedAt)
	return err
}

// --- sessions ---

func (r *PostgresRepository) CreateSession(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (meeting_id, started_at)
		 VALUES ($1, $2)
		 RETURNING id, meeting_id, started_at, ended_at`,
		input.MeetingID, input.StartedAt)
	var s repository.Session
	if err := row.Scan(&s.ID, &s.MeetingID, &s.StartedAt, &s.EndedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) CompleteSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`,
		sessionID, endedAt)
	return err
}

func (r *PostgresRepository) ListSessionsByMeeting(ctx context.Context, meetingID string) ([]repository.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, meeting_id, started_at, ended_at
		 FROM sessions WHERE meeting_id = $1 ORDER BY started_at`,
		meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Session
	for rows.Next() {
		var s repository.Session
		if err := rows.Scan(&s.ID, &s.MeetingID, &s.StartedAt, &s.EndedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// --- transcript segments ---

func (r *PostgresRepository) InsertSegment(ctx context.Context, input repository.InsertSegmentInput) (*repository.TranscriptSegment, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO transcript_segments (session_id, text, timestamp, is_final, speaker, start_time, is_utterance_end)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, session_id, text, timestamp, is_final, speaker, start_time, is_utterance_end, created_at`,
		input.SessionID, input.Text, input.Timestamp, input.IsFinal, input.Speaker, input.StartTime, input.IsUtteranceEnd)
	var seg repository.TranscriptSegment
	if err := row.Scan(&seg.ID, &seg.SessionID, &seg.Text, &seg.Timestamp, &seg.IsFinal,
		&seg.Speaker, &seg.StartTime, &seg.IsUtteranceEnd, &seg.CreatedAt); err != nil {
		return nil, err
	}
	return &seg, nil
}

func (r *PostgresRepository) ListSegmentsByMeeting(ctx context.Context, meetingID string, since *time.Time) ([]repository.TranscriptSegment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ts.id, ts.session_id, ts.text, ts.timestamp, ts.is_final, ts.speaker, ts.start_time, ts.is_utterance_end, ts.created_at
		 FROM transcript_segments ts
		 JOIN sessions s ON s.id = ts.session_id
		 WHERE s.meeting_id = $1 AND ts.is_final AND ($2::timestamptz IS NULL OR ts.timestamp > $2)
		 ORDER BY ts.timestamp`,
		meetingID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.TranscriptSegment
	for rows.Next() {
		var seg repository.TranscriptSegment
		if err := rows.Scan(&seg.ID, &seg.SessionID, &seg.Text, &seg.Timestamp, &seg.IsFinal,
			&seg.Speaker, &seg.StartTime, &seg.IsUtteranceEnd, &seg.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, seg)
	}
	return list, rows.Err()
}

// --- analyses ---

func (r *PostgresRepository) InsertAnalysis(ctx context.Context, input repository.InsertAnalysisInput) (*repository.Analysis, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO analyses (session_id, summary, topics, tags, flow, heat, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, session_id, summary, topics, tags, flow, heat, timestamp`,
		input.SessionID, input.Summary, input.Topics, input.Tags, input.Flow, input.Heat, input.Timestamp)
	return scanAnalysis(row)
}

func (r *PostgresRepository) ListAnalysesByMeeting(ctx context.Context, meetingID string, since *time.Time) ([]repository.Analysis, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.session_id, a.summary, a.topics, a.tags, a.flow, a.heat, a.timestamp
		 FROM analyses a
		 JOIN sessions s ON s.id = a.session_id
		 WHERE s.meeting_id = $1 AND ($2::timestamptz IS NULL OR a.timestamp > $2)
		 ORDER BY a.timestamp`,
		meetingID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) CountAnalysesAfter(ctx context.Context, meetingID string, after time.Time) (int, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM analyses a
		 JOIN sessions s ON s.id = a.session_id
		 WHERE s.meeting_id = $1 AND a.timestamp > $2`,
		meetingID, after)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// --- media ---

func (r *PostgresRepository) InsertImage(ctx context.Context, input repository.InsertImageInput) (*repository.GeneratedImage, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO generated_images (session_id, file_path, prompt, timestamp)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, session_id, file_path, prompt, timestamp`,
		input.SessionID, input.FilePath, input.Prompt, input.Timestamp)
	var img repository.GeneratedImage
	if err := row.Scan(&img.ID, &img.SessionID, &img.FilePath, &img.Prompt, &img.Timestamp); err != nil {
		return nil, err
	}
	return &img, nil
}

func (r *PostgresRepository) InsertCapture(ctx context.Context, input repository.InsertCaptureInput) (*repository.CameraCapture, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO camera_captures (session_id, file_path, timestamp)
		 VALUES ($1, $2, $3)
		 RETURNING id, session_id, file_path, timestamp`,
		input.SessionID, input.FilePath, input.Timestamp)
	var c repository.CameraCapture
	if err := row.Scan(&c.ID, &c.SessionID, &c.FilePath, &c.Timestamp); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) ListImagesByMeeting(ctx context.Context, meetingID string, since *time.Time) ([]repository.GeneratedImage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT i.id, i.session_id, i.file_path, i.prompt, i.timestamp
		 FROM generated_images i
		 JOIN sessions s ON s.id = i.session_id
		 WHERE s.meeting_id = $1 AND ($2::timestamptz IS NULL OR i.timestamp > $2)
		 ORDER BY i.timestamp`,
		meetingID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.GeneratedImage
	for rows.Next() {
		var img repository.GeneratedImage
		if err := rows.Scan(&img.ID, &img.SessionID, &img.FilePath, &img.Prompt, &img.Timestamp); err != nil {
			return nil, err
		}
		list = append(list, img)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) ListCapturesByMeeting(ctx context.Context, meetingID string, since *time.Time) ([]repository.CameraCapture, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.session_id, c.file_path, c.timestamp
		 FROM camera_captures c
		 JOIN sessions s ON s.id = c.session_id
		 WHERE s.meeting_id = $1 AND ($2::timestamptz IS NULL OR c.timestamp > $2)
		 ORDER BY c.timestamp`,
		meetingID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.CameraCapture
	for rows.Next() {
		var c repository.CameraCapture
		if err := rows.Scan(&c.ID, &c.SessionID, &c.FilePath, &c.Timestamp); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) GetImage(ctx context.Context, meetingID string, imageID int64) (*repository.GeneratedImage, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT i.id, i.session_id, i.file_path, i.prompt, i.timestamp
		 FROM generated_images i
		 JOIN sessions s ON s.id = i.session_id
		 WHERE s.meeting_id = $1 AND i.id = $2`,
		meetingID, imageID)
	var img repository.GeneratedImage
	err := row.Scan(&img.ID, &img.SessionID, &img.FilePath, &img.Prompt, &img.Timestamp)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func (r *PostgresRepository) GetCapture(ctx context.Context, meetingID string, captureID int64) (*repository.CameraCapture, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT c.id, c.session_id, c.file_path, c.timestamp
		 FROM camera_captures c
		 JOIN sessions s ON s.id = c.session_id
		 WHERE s.meeting_id = $1 AND c.id = $2`,
		meetingID, captureID)
	var c repository.CameraCapture
	err := row.Scan(&c.ID, &c.SessionID, &c.FilePath, &c.Timestamp)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// --- meta-summaries ---

func (r *PostgresRepository) InsertMetaSummary(ctx context.Context, input repository.InsertMetaSummaryInput) (*repository.MetaSummary, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO meta_summaries (meeting_id, start_time, end_time, summary, themes, representative_image_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, meeting_id, start_time, end_time, summary, themes, representative_image_id, created_at`,
		input.MeetingID, input.StartTime, input.EndTime, input.Summary, input.Themes, input.RepresentativeImageID)
	return scanMetaSummary(row)
}

func (r *PostgresRepository) ListMetaSummariesByMeeting(ctx context.Context, meetingID string) ([]repository.MetaSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, meeting_id, start_time, end_time, summary, themes, representative_image_id, created_at
		 FROM meta_summaries WHERE meeting_id = $1 ORDER BY end_time`,
		meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.MetaSummary
	for rows.Next() {
		ms, err := scanMetaSummary(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *ms)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) GetLatestMetaSummary(ctx context.Context, meetingID string) (*repository.MetaSummary, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, meeting_id, start_time, end_time, summary, themes, representative_image_id, created_at
		 FROM meta_summaries WHERE meeting_id = $1 ORDER BY end_time DESC LIMIT 1`,
		meetingID)
	ms, err := scanMetaSummary(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return ms, err
}

// --- speaker aliases ---

func (r *PostgresRepository) UpsertSpeakerAlias(ctx context.Context, input repository.UpsertSpeakerAliasInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO speaker_aliases (meeting_id, speaker, display_name, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (meeting_id, speaker)
		 DO UPDATE SET display_name = EXCLUDED.display_name, updated_at = NOW()`,
		input.MeetingID, input.Speaker, input.DisplayName)
	return err
}

func (r *PostgresRepository) ListSpeakerAliases(ctx context.Context, meetingID string) ([]repository.SpeakerAlias, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT meeting_id, speaker, display_name, updated_at
		 FROM speaker_aliases WHERE meeting_id = $1 ORDER BY speaker`,
		meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.SpeakerAlias
	for rows.Next() {
		var a repository.SpeakerAlias
		if err := rows.Scan(&a.MeetingID, &a.Speaker, &a.DisplayName, &a.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// --- scan helpers ---

func scanMeeting(row pgx.Row) (*repository.Meeting, error) {
	var m repository.Meeting
	if err := row.Scan(&m.ID, &m.OwnerUserID, &m.Title, &m.StartedAt, &m.EndedAt, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func scanAnalysis(row pgx.Row) (*repository.Analysis, error) {
	var a repository.Analysis
	if err := row.Scan(&a.ID, &a.SessionID, &a.Summary, &a.Topics, &a.Tags, &a.Flow, &a.Heat, &a.Timestamp); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanMetaSummary(row pgx.Row) (*repository.MetaSummary, error) {
	var ms repository.MetaSummary
	if err := row.Scan(&ms.ID, &ms.MeetingID, &ms.StartTime, &ms.EndTime, &ms.Summary, &ms.Themes,
		&ms.RepresentativeImageID, &ms.CreatedAt); err != nil {
		return nil, err
	}
	return &ms, nil
}
