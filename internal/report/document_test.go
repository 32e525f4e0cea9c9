package report

import (
	"testing"
	"time"

	"github.com/Eotel/live-graphic-recorder/internal/repository"
)

func TestSpeakerAliasMap_ExcludesInvalidEntries(t *testing.T) {
	aliases := []repository.SpeakerAlias{
		{Speaker: 0, DisplayName: "Host"},
		{Speaker: 1, DisplayName: "  "},
		{Speaker: -1, DisplayName: "Ghost"},
		{Speaker: 2, DisplayName: "Guest"},
	}

	m := speakerAliasMap(aliases)

	if len(m) != 2 {
		t.Fatalf("map = %+v, want 2 entries", m)
	}
	if m["0"] != "Host" || m["2"] != "Guest" {
		t.Fatalf("unexpected map: %+v", m)
	}
}

func TestSpeakerLabel(t *testing.T) {
	aliases := map[string]string{"1": "Dana"}
	one, three := 1, 3

	if got := speakerLabel(nil, aliases); got != "" {
		t.Fatalf("nil speaker label = %q, want empty", got)
	}
	if got := speakerLabel(&one, aliases); got != "Dana" {
		t.Fatalf("aliased label = %q, want Dana", got)
	}
	if got := speakerLabel(&three, aliases); got != "Speaker 3" {
		t.Fatalf("fallback label = %q, want Speaker 3", got)
	}
}

func TestReportFilename_Deterministic(t *testing.T) {
	meeting := &repository.Meeting{
		ID:        "0f8fad5b-d9cb-469f-a165-70867728950e",
		Title:     "Q1 Planning / Budget!",
		StartedAt: time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC),
	}

	first := reportFilename(meeting)
	second := reportFilename(meeting)

	if first != second {
		t.Fatalf("filename must be stable: %q vs %q", first, second)
	}
	want := "meeting-report_2026-02-14_q1-planning-budget_0f8fad5b.zip"
	if first != want {
		t.Fatalf("filename = %q, want %q", first, want)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Weekly Sync", "weekly-sync"},
		{"  ---  ", "meeting"},
		{"", "meeting"},
		{"A/B Test: Results", "a-b-test-results"},
		{"日本語タイトル", "日本語タイトル"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatElapsedHMS(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{65 * time.Second, "00:01:05"},
		{time.Hour + 23*time.Minute + 45*time.Second, "01:23:45"},
	}
	for _, tt := range tests {
		if got := formatElapsedHMS(tt.d); got != tt.want {
			t.Errorf("formatElapsedHMS(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestArchiveMediaPath(t *testing.T) {
	if got := archiveMediaPath("image", 7, "images/s1/x.png"); got != "media/images/7.png" {
		t.Fatalf("got %q", got)
	}
	if got := archiveMediaPath("capture", 9, "captures/s1/y"); got != "media/captures/9.bin" {
		t.Fatalf("got %q", got)
	}
}
