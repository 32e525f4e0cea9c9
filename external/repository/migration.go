package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS meetings (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meetings_owner ON meetings (owner_user_id, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		meeting_id UUID NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_meeting ON sessions (meeting_id, started_at)`,
	`CREATE TABLE IF NOT EXISTS transcript_segments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		is_final BOOLEAN NOT NULL,
		speaker INTEGER,
		start_time DOUBLE PRECISION,
		is_utterance_end BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transcript_segments_session ON transcript_segments (session_id, timestamp)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		summary TEXT[] NOT NULL DEFAULT '{}',
		topics TEXT[] NOT NULL DEFAULT '{}',
		tags TEXT[] NOT NULL DEFAULT '{}',
		flow TEXT NOT NULL DEFAULT '',
		heat DOUBLE PRECISION NOT NULL DEFAULT 0,
		timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_session ON analyses (session_id, timestamp)`,
	`CREATE TABLE IF NOT EXISTS generated_images (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		file_path TEXT NOT NULL,
		prompt TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS camera_captures (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		file_path TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS meta_summaries (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		meeting_id UUID NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		summary TEXT[] NOT NULL DEFAULT '{}',
		themes TEXT[] NOT NULL DEFAULT '{}',
		representative_image_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meta_summaries_meeting ON meta_summaries (meeting_id, end_time)`,
	`CREATE TABLE IF NOT EXISTS speaker_aliases (
		meeting_id UUID NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
		speaker INTEGER NOT NULL CHECK (speaker >= 0),
		display_name TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (meeting_id, speaker)
	)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
