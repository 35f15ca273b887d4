package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Linjx520074913/qiaoqiao/internal/common"
)

// Server is the HTTP surface over the scan pipeline.
type Server struct {
	router  *gin.Engine
	handler *Handler
	cfg     *common.Config
	logger  *slog.Logger
}

func New(cfg *common.Config, handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = 8 << 20

	s := &Server{router: router, handler: handler, cfg: cfg, logger: logger}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handler.Health)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/scan", s.handler.ScanImage)
		v1.POST("/scan/text", s.handler.ScanText)
		v1.POST("/classify", s.handler.Classify)
		v1.POST("/export", s.handler.Export)
	}
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.listening", "addr", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server.shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
