package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Eotel/live-graphic-recorder/internal/metrics"
	"github.com/Eotel/live-graphic-recorder/internal/report"
)

// handleReportExport streams a meeting report archive.
//
// Query parameters:
//
//	media=auto|none|strict  auto bundles media when it fits (default),
//	                        none skips media, strict fails with 413 when
//	                        media exceeds the configured cap
//	captures=0|1            include camera captures (default 1)
func (s *Server) handleReportExport(c *gin.Context) {
	meetingID := c.Param("meetingID")

	meeting, err := s.ownedMeeting(c, meetingID)
	if err != nil {
		metrics.ReportExportsTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load meeting"})
		return
	}
	if meeting == nil {
		metrics.ReportExportsTotal.WithLabelValues("not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
		return
	}

	opts, ok := reportOptions(c)
	if !ok {
		metrics.ReportExportsTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media parameter"})
		return
	}

	start := time.Now()
	rep, err := s.engine.BuildReport(c.Request.Context(), meetingID, opts)
	if err != nil {
		var sizeErr *report.SizeLimitError
		switch {
		case errors.As(err, &sizeErr):
			metrics.ReportExportsTotal.WithLabelValues("size_limit").Inc()
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":          "media exceeds the export size limit",
				"attemptedBytes": sizeErr.AttemptedBytes,
				"maxBytes":       sizeErr.MaxBytes,
			})
		case errors.Is(err, report.ErrMeetingNotFound):
			metrics.ReportExportsTotal.WithLabelValues("not_found").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
		default:
			slog.Error("failed to build report", "meeting_id", meetingID, "error", err)
			metrics.ReportExportsTotal.WithLabelValues("error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		}
		return
	}
	defer func() {
		_ = rep.Stream.Close()
	}()

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", contentDisposition(rep.Filename))
	c.Header("Cache-Control", "no-store")
	c.Header("X-Report-Media-Mode", rep.MediaBundle.Mode)
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, rep.Stream); err != nil {
		slog.Warn("report stream interrupted", "meeting_id", meetingID, "error", err)
		metrics.ReportExportsTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.ReportBuildDuration.Observe(time.Since(start).Seconds())
	metrics.ReportExportsTotal.WithLabelValues("ok").Inc()
}

func reportOptions(c *gin.Context) (report.Options, bool) {
	opts := report.Options{
		IncludeMedia:    true,
		IncludeCaptures: c.DefaultQuery("captures", "1") != "0",
		OnMediaLimit:    report.LimitPolicySkip,
	}
	switch c.DefaultQuery("media", "auto") {
	case "auto":
	case "none":
		opts.IncludeMedia = false
	case "strict":
		opts.OnMediaLimit = report.LimitPolicyError
	default:
		return report.Options{}, false
	}
	return opts, true
}

// contentDisposition carries the UTF-8 filename per RFC 5987 with a plain
// ASCII fallback for older clients.
func contentDisposition(filename string) string {
	return fmt.Sprintf(`attachment; filename="report.zip"; filename*=UTF-8''%s`, url.PathEscape(filename))
}
