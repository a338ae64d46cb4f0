package server

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"chartdeck/internal/chart"
	"chartdeck/internal/dashboard"
	"chartdeck/internal/session"
)

const htmlContentType = "text/html; charset=utf-8"

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

type chartResponse struct {
	Chart dashboard.ChartEntry `json:"chart"`
	Title string               `json:"title"`
}

type dashboardResponse struct {
	Name      string               `json:"name,omitempty"`
	Dashboard *dashboard.Dashboard `json:"dashboard"`
	Errors    []string             `json:"errors,omitempty"`
}

// HandleAddChart builds a chart from the posted configuration against the
// working dataset and appends it to the session dashboard.
func (s *Server) HandleAddChart(c *gin.Context) {
	var cfg chart.Config
	if err := bindJSON(c, &cfg); err != nil {
		s.respondError(c, err)
		return
	}
	var resp chartResponse
	err := currentSession(c).Update(func(st *session.Session) error {
		ds, err := st.Data()
		if err != nil {
			return err
		}
		fig, err := s.Builder.Build(ds, cfg)
		if err != nil {
			return err
		}
		resp = chartResponse{Chart: st.Dashboard.AddChart(cfg, fig), Title: fig.Title}
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// HandleRemoveChart drops a chart from the session dashboard.
func (s *Server) HandleRemoveChart(c *gin.Context) {
	id := c.Param("chartID")
	err := currentSession(c).Update(func(st *session.Session) error {
		if !st.Dashboard.RemoveChart(id) {
			return newAPIError(http.StatusNotFound, "not_found", fmt.Errorf("chart %q not found", id))
		}
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleChartHTML renders one dashboard chart as a standalone page, or as
// an embeddable fragment with ?fragment=1.
func (s *Server) HandleChartHTML(c *gin.Context) {
	id := c.Param("chartID")
	fragment := c.Query("fragment") != ""
	var page string
	err := currentSession(c).Update(func(st *session.Session) error {
		entry, ok := st.Dashboard.Chart(id)
		if !ok {
			return newAPIError(http.StatusNotFound, "not_found", fmt.Errorf("chart %q not found", id))
		}
		if entry.Figure == nil {
			ds, err := st.Data()
			if err != nil {
				return err
			}
			if entry.Figure, err = s.Builder.Build(ds, entry.Config); err != nil {
				return err
			}
		}
		if fragment {
			snippet, err := entry.Figure.Snippet()
			if err != nil {
				return err
			}
			page = snippet.HTML()
			return nil
		}
		var err error
		page, err = entry.Figure.HTML()
		return err
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(page))
}

// HandleCurrentDashboard returns the session dashboard document.
func (s *Server) HandleCurrentDashboard(c *gin.Context) {
	var resp dashboardResponse
	_ = currentSession(c).View(func(st *session.Session) error {
		resp = dashboardResponse{Name: st.DashboardName, Dashboard: st.Dashboard}
		return nil
	})
	c.JSON(http.StatusOK, resp)
}

// HandleDashboardHTML renders the session dashboard as one page. Charts that
// no longer build are left out and listed in X-Chart-Errors.
func (s *Server) HandleDashboardHTML(c *gin.Context) {
	var (
		buf       bytes.Buffer
		renderErr error
	)
	err := currentSession(c).Update(func(st *session.Session) error {
		ds, err := st.Data()
		if err != nil {
			return err
		}
		renderErr = st.Dashboard.HTML(&buf, ds, s.Builder)
		if renderErr != nil && buf.Len() == 0 {
			return renderErr
		}
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if renderErr != nil {
		c.Header("X-Chart-Errors", fmt.Sprint(len(unjoin(renderErr))))
	}
	c.Data(http.StatusOK, htmlContentType, buf.Bytes())
}

// HandleNewDashboard replaces the session dashboard with an empty one.
func (s *Server) HandleNewDashboard(c *gin.Context) {
	var resp dashboardResponse
	_ = currentSession(c).Update(func(st *session.Session) error {
		st.Dashboard = s.Dashboards.NewDefault()
		st.DashboardName = ""
		resp = dashboardResponse{Dashboard: st.Dashboard}
		return nil
	})
	c.JSON(http.StatusOK, resp)
}

// HandleSaveDashboard persists the session dashboard under a name.
func (s *Server) HandleSaveDashboard(c *gin.Context) {
	var req nameRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	var resp dashboardResponse
	err := currentSession(c).Update(func(st *session.Session) error {
		if err := s.Dashboards.Save(c.Request.Context(), req.Name, st.Dashboard); err != nil {
			return err
		}
		st.DashboardName = req.Name
		resp = dashboardResponse{Name: req.Name, Dashboard: st.Dashboard}
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleLoadDashboard makes a saved dashboard the session dashboard and
// rebuilds its charts when data is loaded.
func (s *Server) HandleLoadDashboard(c *gin.Context) {
	var req nameRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	d, err := s.Dashboards.Load(c.Request.Context(), req.Name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	resp := dashboardResponse{Name: req.Name, Dashboard: d}
	_ = currentSession(c).Update(func(st *session.Session) error {
		st.Dashboard = d
		st.DashboardName = req.Name
		if ds, err := st.Data(); err == nil {
			for _, e := range unjoin(d.Render(ds, s.Builder)) {
				resp.Errors = append(resp.Errors, e.Error())
			}
		}
		return nil
	})
	c.JSON(http.StatusOK, resp)
}

// unjoin splits an errors.Join result back into its parts.
func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
