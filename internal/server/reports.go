package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chartdeck/internal/report"
	"chartdeck/internal/session"
)

// HandleGenerateReport generates a report for the working dataset and keeps
// it on the session. An empty body uses the default configuration.
func (s *Server) HandleGenerateReport(c *gin.Context) {
	var cfg report.Config
	if err := c.ShouldBindJSON(&cfg); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(c, badRequest(err))
		return
	}
	var r *report.Report
	err := currentSession(c).Update(func(st *session.Session) error {
		ds, err := st.Data()
		if err != nil {
			return err
		}
		r = s.Generator.Generate(c.Request.Context(), ds, cfg)
		st.Report = r
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func lastReport(c *gin.Context) (*report.Report, error) {
	var r *report.Report
	err := currentSession(c).View(func(st *session.Session) error {
		if st.Report == nil {
			return session.ErrNoReport
		}
		r = st.Report
		return nil
	})
	return r, err
}

// HandleReportHTML renders the last report as a self-contained document.
func (s *Server) HandleReportHTML(c *gin.Context) {
	r, err := lastReport(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := report.RenderHTML(&buf, r); err != nil {
		s.respondError(c, err)
		return
	}
	if c.Query("download") != "" {
		c.Header("Content-Disposition", `attachment; filename="report.html"`)
	}
	c.Data(http.StatusOK, htmlContentType, buf.Bytes())
}

// HandleReportChartPNG draws the index-th report chart as a PNG.
func (s *Server) HandleReportChartPNG(c *gin.Context) {
	r, err := lastReport(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	charts := r.Charts()
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 || i >= len(charts) {
		s.respondError(c, newAPIError(http.StatusNotFound, "not_found",
			fmt.Errorf("report has no chart %q", c.Param("index"))))
		return
	}
	var buf bytes.Buffer
	if err := report.RenderChartPNG(charts[i], &buf); err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
