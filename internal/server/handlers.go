package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chartdeck/internal/chart"
	"chartdeck/internal/config"
	"chartdeck/internal/session"
)

const sessionKey = "session"

// HandleHealth provides health check endpoint
func (s *Server) HandleHealth(c *gin.Context) {
	narrative := "disabled"
	if s.Generator.NarrativeEnabled() {
		narrative = "enabled"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   config.GetVersion(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": gin.H{
			"storage":   s.Config.StorageBackend,
			"narrative": narrative,
		},
	})
}

type chartTypeInfo struct {
	Type     chart.Type `json:"type"`
	Required []string   `json:"required"`
	Optional []string   `json:"optional"`
}

// HandleChartTypes lists the chart types with their fields and palettes.
func (s *Server) HandleChartTypes(c *gin.Context) {
	types := make([]chartTypeInfo, 0, len(chart.Types()))
	for _, t := range chart.Types() {
		req, _ := chart.Requirements(t)
		types = append(types, chartTypeInfo{Type: t, Required: req.Required, Optional: req.Optional})
	}
	c.JSON(http.StatusOK, gin.H{
		"chart_types":   types,
		"color_schemes": chart.PaletteNames(),
	})
}

// HandleCreateSession starts a session with an empty dashboard.
func (s *Server) HandleCreateSession(c *gin.Context) {
	sess := s.Sessions.Create()
	s.log.Info("Session created", map[string]interface{}{"session": sess.ID})
	c.JSON(http.StatusCreated, gin.H{
		"id":         sess.ID,
		"created_at": sess.CreatedAt,
	})
}

// HandleDeleteSession discards a session.
func (s *Server) HandleDeleteSession(c *gin.Context) {
	s.Sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// withSession resolves :id into the session for the handlers below it.
func (s *Server) withSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := s.Sessions.Get(c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// bindJSON decodes the request body into v, reporting bad input as 400.
func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return badRequest(err)
	}
	return nil
}
