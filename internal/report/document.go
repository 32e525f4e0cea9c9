package report

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Eotel/live-graphic-recorder/internal/repository"
)

const reportTimeLayout = "2006-01-02 15:04:05"

type meetingDoc struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

type sessionDoc struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

type segmentDoc struct {
	SessionID      string    `json:"sessionId"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	Speaker        *int      `json:"speaker,omitempty"`
	IsUtteranceEnd bool      `json:"isUtteranceEnd,omitempty"`
}

type analysisDoc struct {
	SessionID string    `json:"sessionId"`
	Summary   []string  `json:"summary"`
	Topics    []string  `json:"topics"`
	Tags      []string  `json:"tags"`
	Flow      string    `json:"flow"`
	Heat      float64   `json:"heat"`
	Timestamp time.Time `json:"timestamp"`
}

type metaSummaryDoc struct {
	ID                    string    `json:"id"`
	StartTime             time.Time `json:"startTime"`
	EndTime               time.Time `json:"endTime"`
	Summary               []string  `json:"summary"`
	Themes                []string  `json:"themes"`
	RepresentativeImageID *int64    `json:"representativeImageId,omitempty"`
}

type mediaDoc struct {
	Kind        string    `json:"kind"`
	ID          int64     `json:"id"`
	ArchivePath string    `json:"archivePath"`
	Timestamp   time.Time `json:"timestamp"`
}

type missingMediaDoc struct {
	Kind   string `json:"kind"`
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

type jsonDocument struct {
	Meeting        meetingDoc        `json:"meeting"`
	Sessions       []sessionDoc      `json:"sessions"`
	Segments       []segmentDoc      `json:"segments"`
	Analyses       []analysisDoc     `json:"analyses"`
	TopicFrequency map[string]int    `json:"topicFrequency"`
	SpeakerAliases map[string]string `json:"speakerAliases"`
	MetaSummaries  []metaSummaryDoc  `json:"metaSummaries"`
	Media          []mediaDoc        `json:"media"`
	MissingMedia   []missingMediaDoc `json:"missingMedia"`
}

// speakerAliasMap resolves numeric speaker ids to display names. Entries
// with a negative index or a blank name are excluded; keys are the
// stringified speaker index.
func speakerAliasMap(aliases []repository.SpeakerAlias) map[string]string {
	m := make(map[string]string, len(aliases))
	for _, a := range aliases {
		if a.Speaker < 0 || strings.TrimSpace(a.DisplayName) == "" {
			continue
		}
		m[strconv.Itoa(a.Speaker)] = a.DisplayName
	}
	return m
}

// topicFrequency aggregates how often each topic appeared across analyses.
func topicFrequency(analyses []repository.Analysis) map[string]int {
	freq := make(map[string]int)
	for _, a := range analyses {
		for _, topic := range a.Topics {
			topic = strings.TrimSpace(topic)
			if topic == "" {
				continue
			}
			freq[topic]++
		}
	}
	return freq
}

func speakerLabel(speaker *int, aliases map[string]string) string {
	if speaker == nil {
		return ""
	}
	if name, ok := aliases[strconv.Itoa(*speaker)]; ok {
		return name
	}
	return fmt.Sprintf("Speaker %d", *speaker)
}

// renderMarkdown produces the deterministic human-readable report.
func renderMarkdown(
	meeting *repository.Meeting,
	segments []repository.TranscriptSegment,
	analyses []repository.Analysis,
	metaSummaries []repository.MetaSummary,
	aliases map[string]string,
) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", meeting.Title)
	fmt.Fprintf(&b, "- Started: %s\n", meeting.StartedAt.UTC().Format(reportTimeLayout))
	if meeting.EndedAt != nil {
		fmt.Fprintf(&b, "- Ended: %s\n", meeting.EndedAt.UTC().Format(reportTimeLayout))
	}
	if len(aliases) > 0 {
		keys := make([]string, 0, len(aliases))
		for k := range aliases {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		names := make([]string, 0, len(keys))
		for _, k := range keys {
			names = append(names, aliases[k])
		}
		fmt.Fprintf(&b, "- Speakers: %s\n", strings.Join(names, ", "))
	}
	b.WriteString("\n")

	if len(metaSummaries) > 0 {
		b.WriteString("## Overview\n\n")
		for _, ms := range metaSummaries {
			fmt.Fprintf(&b, "### %s – %s\n\n",
				ms.StartTime.UTC().Format(reportTimeLayout), ms.EndTime.UTC().Format(reportTimeLayout))
			for _, line := range ms.Summary {
				fmt.Fprintf(&b, "- %s\n", line)
			}
			if len(ms.Themes) > 0 {
				fmt.Fprintf(&b, "\nThemes: %s\n", strings.Join(ms.Themes, ", "))
			}
			b.WriteString("\n")
		}
	}

	if len(analyses) > 0 {
		b.WriteString("## Analyses\n\n")
		for _, a := range analyses {
			fmt.Fprintf(&b, "### %s\n\n", a.Timestamp.UTC().Format(reportTimeLayout))
			for _, line := range a.Summary {
				fmt.Fprintf(&b, "- %s\n", line)
			}
			if len(a.Topics) > 0 {
				fmt.Fprintf(&b, "\nTopics: %s\n", strings.Join(a.Topics, ", "))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Transcript\n\n")
	for _, seg := range segments {
		elapsed := seg.Timestamp.Sub(meeting.StartedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		label := speakerLabel(seg.Speaker, aliases)
		if label != "" {
			fmt.Fprintf(&b, "%s [%s] %s\n", formatElapsedHMS(elapsed), label, seg.Text)
		} else {
			fmt.Fprintf(&b, "%s %s\n", formatElapsedHMS(elapsed), seg.Text)
		}
	}

	return []byte(b.String())
}

func formatElapsedHMS(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// reportFilename derives the archive name from the meeting's date, title,
// and id. Stable across invocations for the same meeting.
func reportFilename(meeting *repository.Meeting) string {
	slug := slugify(meeting.Title)
	short := meeting.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("meeting-report_%s_%s_%s.zip",
		meeting.StartedAt.UTC().Format("2006-01-02"), slug, short)
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r > 127:
			// Non-ASCII titles keep their runes; the HTTP layer provides
			// an ASCII fallback in Content-Disposition.
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "meeting"
	}
	return out
}

func archiveMediaPath(kind string, id int64, relPath string) string {
	ext := path.Ext(relPath)
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("media/%ss/%d%s", kind, id, ext)
}
