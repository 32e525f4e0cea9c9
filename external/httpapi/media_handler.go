package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Eotel/live-graphic-recorder/internal/repository"
)

func (s *Server) handleImageDownload(c *gin.Context) {
	s.serveMedia(c, func(ctx context.Context, meetingID string, id int64) (string, error) {
		img, err := s.repo.GetImage(ctx, meetingID, id)
		if err != nil || img == nil {
			return "", err
		}
		return img.FilePath, nil
	})
}

func (s *Server) handleCaptureDownload(c *gin.Context) {
	s.serveMedia(c, func(ctx context.Context, meetingID string, id int64) (string, error) {
		capture, err := s.repo.GetCapture(ctx, meetingID, id)
		if err != nil || capture == nil {
			return "", err
		}
		return capture.FilePath, nil
	})
}

// serveMedia streams one media file. Absent rows, rows of other users'
// meetings and missing files all answer 404 so ids cannot be probed.
func (s *Server) serveMedia(c *gin.Context, lookup func(context.Context, string, int64) (string, error)) {
	meetingID := c.Param("meetingID")
	mediaID, err := strconv.ParseInt(c.Param("mediaID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}

	meeting, err := s.ownedMeeting(c, meetingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load meeting"})
		return
	}
	if meeting == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}

	relPath, err := lookup(c.Request.Context(), meetingID, mediaID)
	if err != nil {
		slog.Error("failed to look up media", "meeting_id", meetingID, "media_id", mediaID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load media"})
		return
	}
	if relPath == "" || !s.media.Exists(relPath) {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}

	reader, err := s.media.Open(relPath)
	if err != nil {
		slog.Error("failed to open media file", "rel_path", relPath, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load media"})
		return
	}
	defer func() {
		_ = reader.Close()
	}()

	c.Header("Content-Type", mimeTypeFor(relPath))
	c.Header("Cache-Control", "private, max-age=86400")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}

// ownedMeeting loads the meeting only when it belongs to the caller. It
// returns nil for both absent and foreign meetings.
func (s *Server) ownedMeeting(c *gin.Context, meetingID string) (*repository.Meeting, error) {
	meeting, err := s.repo.GetMeeting(c.Request.Context(), meetingID)
	if err != nil {
		return nil, err
	}
	if meeting == nil || meeting.OwnerUserID != userIDFrom(c) {
		return nil, nil
	}
	return meeting, nil
}

func mimeTypeFor(relPath string) string {
	switch path.Ext(relPath) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
