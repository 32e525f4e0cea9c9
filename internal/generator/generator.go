package generator

import (
	"context"
	"time"
)

type TranscriptLine struct {
	Speaker   *int      `json:"speaker,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type AnalysisResult struct {
	Summary []string `json:"summary"`
	Topics  []string `json:"topics"`
	Tags    []string `json:"tags"`
	Flow    string   `json:"flow"`
	Heat    float64  `json:"heat"`
}

// Analyzer turns a window of transcript lines into a periodic analysis.
type Analyzer interface {
	Analyze(ctx context.Context, lines []TranscriptLine) (*AnalysisResult, error)
}

type ImageRequest struct {
	Prompt      string `json:"prompt"`
	ModelPreset string `json:"modelPreset"`
}

// ImageGenerator returns encoded image bytes for a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) ([]byte, error)
}

type AnalysisWindowItem struct {
	Summary   []string  `json:"summary"`
	Topics    []string  `json:"topics"`
	Timestamp time.Time `json:"timestamp"`
}

type MetaSummaryRequest struct {
	Analyses  []AnalysisWindowItem `json:"analyses"`
	StartTime time.Time            `json:"startTime"`
	EndTime   time.Time            `json:"endTime"`
}

type MetaSummaryResult struct {
	Summary []string `json:"summary"`
	Themes  []string `json:"themes"`
}

// MetaSummarizer rolls a window of analyses up into one meta-summary.
type MetaSummarizer interface {
	Summarize(ctx context.Context, req MetaSummaryRequest) (*MetaSummaryResult, error)
}
