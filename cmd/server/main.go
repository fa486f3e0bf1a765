// Command server runs the HTTP front end over the timelock and
// lightning analyzers.
package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"cltvscan/internal/serverconfig"
	"cltvscan/pkg/ingest"
	"cltvscan/pkg/lightning"
	"cltvscan/pkg/report"
	"cltvscan/pkg/timelock"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := serverconfig.Load()
	if err != nil {
		zerolog.New(os.Stderr).With().Timestamp().Logger().Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	r.POST("/api/analyze", handleAnalyze())
	r.POST("/api/lightning", handleLightning())

	logger.Info().Str("port", cfg.Port).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

// requestLogger attaches a per-request ID and logs method/path/status/
// latency at info level once the request completes.
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-Id", requestID)

		start := time.Now()
		c.Next()

		logger.Info().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func handleAnalyze() gin.HandlerFunc {
	return func(c *gin.Context) {
		fixture, ok := readFixture(c)
		if !ok {
			return
		}

		tx, err := ingest.FromFixture(fixture)
		if err != nil {
			c.JSON(400, errorBody("PARSE_ERROR", err.Error()))
			return
		}

		analysis := timelock.Analyze(tx)
		lc := lightning.Classify(tx)
		flags := report.Flags(tx, analysis, lc)

		c.JSON(200, gin.H{"ok": true, "analysis": analysis, "flags": flags})
	}
}

func handleLightning() gin.HandlerFunc {
	return func(c *gin.Context) {
		fixture, ok := readFixture(c)
		if !ok {
			return
		}

		tx, err := ingest.FromFixture(fixture)
		if err != nil {
			c.JSON(400, errorBody("PARSE_ERROR", err.Error()))
			return
		}

		lc := lightning.Classify(tx)
		c.JSON(200, gin.H{"ok": true, "classification": lc})
	}
}

func readFixture(c *gin.Context) (ingest.Fixture, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(400, errorBody("INVALID_REQUEST", "failed to read request body"))
		return ingest.Fixture{}, false
	}

	var fixture ingest.Fixture
	if err := json.Unmarshal(body, &fixture); err != nil {
		c.JSON(400, errorBody("INVALID_JSON", err.Error()))
		return ingest.Fixture{}, false
	}
	return fixture, true
}

func errorBody(code, message string) gin.H {
	return gin.H{"ok": false, "error": gin.H{"code": code, "message": message}}
}
