package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// NewRouter builds the gin engine with every drive route.
func NewRouter(ports Ports, jwtSecret string) (*gin.Engine, error) {
	if ports.Discovery == nil || ports.Ingestion == nil || ports.Retrieval == nil {
		return nil, errors.New("httpapi: discovery, ingestion and retrieval services are required")
	}
	if jwtSecret == "" {
		return nil, errors.New("httpapi: jwt secret is required")
	}

	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())
	router.GET("/healthz", health)

	h := &handler{ports: ports}
	drive := router.Group("/drive")
	drive.Use(AuthJWT(jwtSecret))
	drive.POST("/sync", h.sync)
	drive.GET("/files", h.listFiles)
	drive.GET("/progress", h.progress)
	drive.POST("/files/:fileId/retry", h.retryFile)
	drive.GET("/chunk/:chunkId", h.chunk)
	drive.POST("/retrieve", h.retrieve)

	return router, nil
}

// requestLogger writes one debug line per request through the shared logger.
func requestLogger() gin.HandlerFunc {
	log := logger.With("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
		for _, e := range c.Errors {
			log.Warn("%s %s: %v", c.Request.Method, c.Request.URL.Path, e.Err)
		}
	}
}

// Serve runs handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
