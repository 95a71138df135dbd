package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oyaguma3/radius-aaa-server/pkg/httputil"
	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
)

// Server は/metricsと/healthを公開するHTTPサーバー
type Server struct {
	server       *http.Server
	shutdownOnce sync.Once
}

// NewServer はメトリクスHTTPサーバーを生成する。起動はStartで行う。
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(gatherer),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// NewRouter はメトリクス公開用のルーターを生成する。
func NewRouter(gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.NoRoute(func(c *gin.Context) {
		httputil.WriteError(c, httputil.NotFound(fmt.Sprintf("path %s not found", c.Request.URL.Path)))
	})
	return r
}

// Start はサーバーを起動し、ctxの終了まで待つ。
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("メトリクスサーバー起動", slog.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

// Stop はサーバーを停止する。複数回呼んでもよい。
func (s *Server) Stop(ctx context.Context) error {
	var stopErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			stopErr = fmt.Errorf("metrics server shutdown error: %w", err)
			slog.Warn("メトリクスサーバー停止エラー",
				logging.WithEventID("METRICS_SHUTDOWN_ERR"),
				logging.WithError(err),
			)
		}
	})
	return stopErr
}
