package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"chartdeck/internal/dashboard"
)

type duplicateRequest struct {
	Target string `json:"target" binding:"required"`
}

// HandleListDashboards lists the saved dashboards.
func (s *Server) HandleListDashboards(c *gin.Context) {
	names, err := s.Dashboards.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dashboards": names,
		"count":      len(names),
	})
}

// HandleDashboardInfo summarises a saved dashboard.
func (s *Server) HandleDashboardInfo(c *gin.Context) {
	info, err := s.Dashboards.Info(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// HandleDeleteDashboard removes a saved dashboard.
func (s *Server) HandleDeleteDashboard(c *gin.Context) {
	name := c.Param("name")
	ok, err := s.Dashboards.Delete(c.Request.Context(), name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !ok {
		s.respondError(c, fmt.Errorf("%w: %s", dashboard.ErrNotFound, name))
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleDuplicateDashboard copies a saved dashboard under a new name.
func (s *Server) HandleDuplicateDashboard(c *gin.Context) {
	var req duplicateRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	source := c.Param("name")
	ok, err := s.Dashboards.Duplicate(c.Request.Context(), source, req.Target)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !ok {
		s.respondError(c, fmt.Errorf("%w: %s", dashboard.ErrNotFound, source))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": req.Target})
}

// HandleExportDashboard downloads a saved dashboard document.
func (s *Server) HandleExportDashboard(c *gin.Context) {
	name := c.Param("name")
	data, err := s.Dashboards.Export(c.Request.Context(), name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

// HandleUpdateMetadata patches the description of a saved dashboard.
func (s *Server) HandleUpdateMetadata(c *gin.Context) {
	var patch dashboard.MetadataPatch
	if err := bindJSON(c, &patch); err != nil {
		s.respondError(c, err)
		return
	}
	d, err := s.Dashboards.UpdateMetadata(c.Request.Context(), c.Param("name"), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d.Metadata)
}

// HandleImportDashboard saves a dashboard document posted either as the raw
// body or as the multipart "file" field, under ?name=.
func (s *Server) HandleImportDashboard(c *gin.Context) {
	name := c.Query("name")
	if err := dashboard.ValidateName(name); err != nil {
		s.respondError(c, err)
		return
	}

	var body io.Reader = c.Request.Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			s.respondError(c, err)
			return
		}
		defer f.Close()
		body = f
	} else if !errors.Is(err, http.ErrNotMultipart) && !errors.Is(err, http.ErrMissingFile) {
		s.respondError(c, badRequest(err))
		return
	}

	d, err := s.Dashboards.Import(c.Request.Context(), body, name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"name":        name,
		"chart_count": len(d.Charts),
	})
}
