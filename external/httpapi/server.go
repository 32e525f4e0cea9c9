package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Eotel/live-graphic-recorder/internal/auth"
	"github.com/Eotel/live-graphic-recorder/internal/config"
	"github.com/Eotel/live-graphic-recorder/internal/mediastore"
	"github.com/Eotel/live-graphic-recorder/internal/report"
	"github.com/Eotel/live-graphic-recorder/internal/repository"
	"github.com/Eotel/live-graphic-recorder/internal/session"
)

type Server struct {
	cfg      *config.Config
	router   *session.Router
	engine   *report.Engine
	repo     repository.Repository
	media    mediastore.Store
	resolver auth.Resolver
	httpSrv  *http.Server
}

func NewServer(
	cfg *config.Config,
	router *session.Router,
	engine *report.Engine,
	repo repository.Repository,
	media mediastore.Store,
	resolver auth.Resolver,
) *Server {
	s := &Server{
		cfg:      cfg,
		router:   router,
		engine:   engine,
		repo:     repo,
		media:    media,
		resolver: resolver,
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.buildHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) buildHandler() http.Handler {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := r.Group("/", AuthRequired(s.resolver))
	authed.GET("/ws", s.handleWebSocket)

	api := authed.Group("/api")
	api.GET("/meetings/:meetingID/report.zip", s.handleReportExport)
	api.GET("/meetings/:meetingID/images/:mediaID", s.handleImageDownload)
	api.GET("/meetings/:meetingID/captures/:mediaID", s.handleCaptureDownload)

	return r
}

func (s *Server) ListenAndServe() error {
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
