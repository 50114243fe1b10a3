package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the research pipeline over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		gin.SetMode(gin.ReleaseMode)
		srv := &http.Server{
			Addr:              flagAddr,
			Handler:           newRouter(a.orchestrator),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", flagAddr).Msg("server: listening")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			log.Info().Msg("server: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "listen address")
}

type researcher interface {
	ProcessQuery(ctx context.Context, query string) (contractx.EntityOutput, error)
	ClearCache(ctx context.Context) error
}

type researchRequest struct {
	Query      string `json:"query" binding:"required"`
	ClearCache bool   `json:"clear_cache"`
}

func newRouter(svc researcher) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.POST("/research", func(c *gin.Context) {
		var req researchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
			return
		}
		if req.ClearCache {
			if err := svc.ClearCache(c.Request.Context()); err != nil {
				log.Error().Err(err).Msg("server: clear cache failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cache"})
				return
			}
		}

		out, err := svc.ProcessQuery(c.Request.Context(), req.Query)
		if err != nil {
			if errors.Is(err, contractx.ErrInvalidQuery) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			log.Error().Err(err).Str("query", req.Query).Msg("server: research failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "research failed"})
			return
		}
		c.JSON(http.StatusOK, out)
	})

	v1.DELETE("/cache", func(c *gin.Context) {
		if err := svc.ClearCache(c.Request.Context()); err != nil {
			log.Error().Err(err).Msg("server: clear cache failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cache"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "purged"})
	})

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("server: request")
	}
}
