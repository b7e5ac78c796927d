package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/clearterms/clearterms-backend/internal/handlers"
)

// Submitted pages are capped well below this, but the JSON body also carries
// URL and preference fields plus encoding overhead.
const maxBodyBytes = 10 << 20

type RouterConfig struct {
	ScanHandler   *handlers.ScanHandler
	JobsHandler   *handlers.JobsHandler
	ReportHandler *handlers.ReportHandler
	HealthHandler *handlers.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// The extension calls from arbitrary page origins.
	router.Use(cors.Default())
	router.Use(limitBody(maxBodyBytes))

	router.POST("/scan", cfg.ScanHandler.Scan)
	router.GET("/jobs/:id", cfg.JobsHandler.GetJob)
	router.GET("/report", cfg.ReportHandler.GetReport)
	router.GET("/health", cfg.HealthHandler.Check)

	return router
}

func limitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
