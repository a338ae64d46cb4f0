// Package server exposes data loading, charts, dashboards and reports over
// a JSON HTTP API.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"chartdeck/internal/chart"
	"chartdeck/internal/config"
	"chartdeck/internal/dashboard"
	"chartdeck/internal/dataset"
	"chartdeck/internal/logger"
	"chartdeck/internal/report"
	"chartdeck/internal/session"
)

// previewRows is the number of rows returned with a dataset preview.
const previewRows = 10

// Server represents the main application server
type Server struct {
	Config     *config.Config
	Sessions   *session.Store
	Dashboards *dashboard.Manager
	Builder    *chart.Builder
	Generator  *report.Generator
	Fetcher    *dataset.Fetcher

	log *logger.Logger
}

// NewServer wires the server components together.
func NewServer(cfg *config.Config, dashboards *dashboard.Manager, builder *chart.Builder, generator *report.Generator) *Server {
	return &Server{
		Config:     cfg,
		Sessions:   session.NewStore(dashboards.NewDefault),
		Dashboards: dashboards,
		Builder:    builder,
		Generator:  generator,
		Fetcher:    dataset.NewFetcher(cfg.FetchTimeout),
		log:        logger.WithComponent("server"),
	}
}

// Router configures the HTTP routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.MaxMultipartMemory = s.Config.MaxUploadMB << 20

	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.Config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", s.HandleHealth)

	api := router.Group("/api")
	api.GET("/chart-types", s.HandleChartTypes)
	api.POST("/sessions", s.HandleCreateSession)

	sess := api.Group("/sessions/:id", s.withSession())
	{
		sess.DELETE("", s.HandleDeleteSession)

		sess.POST("/data", s.HandleUpload)
		sess.POST("/data/url", s.HandleLoadURL)
		sess.GET("/data", s.HandlePreview)
		sess.POST("/data/filters", s.HandleFilter)
		sess.POST("/data/clean", s.HandleClean)
		sess.POST("/data/derive", s.HandleDerive)
		sess.POST("/data/convert", s.HandleConvert)
		sess.POST("/data/select", s.HandleSelect)
		sess.POST("/data/reset", s.HandleReset)
		sess.GET("/data/export", s.HandleExportData)

		sess.POST("/charts", s.HandleAddChart)
		sess.DELETE("/charts/:chartID", s.HandleRemoveChart)
		sess.GET("/charts/:chartID/html", s.HandleChartHTML)

		sess.GET("/dashboard", s.HandleCurrentDashboard)
		sess.GET("/dashboard/html", s.HandleDashboardHTML)
		sess.POST("/dashboard/new", s.HandleNewDashboard)
		sess.POST("/dashboard/save", s.HandleSaveDashboard)
		sess.POST("/dashboard/load", s.HandleLoadDashboard)

		sess.POST("/report", s.HandleGenerateReport)
		sess.GET("/report/html", s.HandleReportHTML)
		sess.GET("/report/charts/:index/png", s.HandleReportChartPNG)
	}

	boards := api.Group("/dashboards")
	{
		boards.GET("", s.HandleListDashboards)
		boards.POST("/import", s.HandleImportDashboard)
		boards.GET("/:name", s.HandleDashboardInfo)
		boards.DELETE("/:name", s.HandleDeleteDashboard)
		boards.POST("/:name/duplicate", s.HandleDuplicateDashboard)
		boards.GET("/:name/export", s.HandleExportDashboard)
		boards.PATCH("/:name/metadata", s.HandleUpdateMetadata)
	}

	return router
}

// requestLogger logs one line per request through the structured logger.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.log.Warn("Request failed", fields)
			return
		}
		s.log.Debug("Request served", fields)
	}
}
