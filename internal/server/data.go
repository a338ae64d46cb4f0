package server

import (
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chartdeck/internal/dataset"
	"chartdeck/internal/session"
	"chartdeck/internal/storage"
)

type urlRequest struct {
	URL string `json:"url" binding:"required"`
}

type filterRequest struct {
	Filters map[string]dataset.Filter `json:"filters" binding:"required"`
}

type cleanRequest struct {
	Operations []string `json:"operations" binding:"required"`
}

type deriveRequest struct {
	Derivations []dataset.Derivation `json:"derivations" binding:"required"`
}

type convertRequest struct {
	Column string `json:"column" binding:"required"`
	Kind   string `json:"kind" binding:"required"`
}

type selectRequest struct {
	Columns []string `json:"columns" binding:"required"`
}

type dataResponse struct {
	Name    string          `json:"name"`
	Preview dataset.Preview `json:"preview"`
}

func previewOf(sess *session.Session, ds *dataset.Dataset, rows int) dataResponse {
	return dataResponse{Name: sess.DataName, Preview: dataset.NewPreview(ds, rows)}
}

// HandleUpload loads the multipart "file" field as the session dataset.
func (s *Server) HandleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.Config.MaxUploadMB<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(c, err)
			return
		}
		s.respondError(c, badRequest(errors.New("multipart field \"file\" is required")))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer f.Close()

	ds, err := dataset.Load(fh.Filename, f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.installData(c, path.Base(fh.Filename), ds)
}

// HandleLoadURL downloads a CSV or Excel file as the session dataset.
func (s *Server) HandleLoadURL(c *gin.Context) {
	var req urlRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	ds, name, err := s.Fetcher.Fetch(c.Request.Context(), req.URL)
	if err != nil {
		if !errors.Is(err, dataset.ErrUnsupportedFormat) && !errors.Is(err, dataset.ErrParse) {
			err = newAPIError(http.StatusBadGateway, "fetch_failed", err)
		}
		s.respondError(c, err)
		return
	}
	s.installData(c, name, ds)
}

func (s *Server) installData(c *gin.Context, name string, ds *dataset.Dataset) {
	sess := currentSession(c)
	var resp dataResponse
	_ = sess.Update(func(st *session.Session) error {
		st.SetData(name, ds)
		resp = previewOf(st, ds, previewRows)
		return nil
	})
	s.log.Info("Dataset loaded", map[string]interface{}{
		"session": sess.ID,
		"name":    name,
		"rows":    ds.Rows(),
		"cols":    ds.Cols(),
	})
	c.JSON(http.StatusOK, resp)
}

// HandlePreview returns the shape, column info and first rows (?rows=N).
func (s *Server) HandlePreview(c *gin.Context) {
	rows := previewRows
	if v := c.Query("rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(c, badRequest(errors.New("rows must be a non-negative integer")))
			return
		}
		rows = n
	}
	var resp dataResponse
	err := currentSession(c).View(func(st *session.Session) error {
		ds, err := st.Data()
		if err != nil {
			return err
		}
		resp = previewOf(st, ds, rows)
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// transform binds the request body into req and replaces the working
// dataset with fn's result.
func (s *Server) transform(c *gin.Context, req any, fn func(*session.Session, *dataset.Dataset) (*dataset.Dataset, error)) {
	if req != nil {
		if err := bindJSON(c, req); err != nil {
			s.respondError(c, err)
			return
		}
	}
	var resp dataResponse
	err := currentSession(c).Update(func(st *session.Session) error {
		ds, err := st.Transform(func(ds *dataset.Dataset) (*dataset.Dataset, error) {
			return fn(st, ds)
		})
		if err != nil {
			return err
		}
		resp = previewOf(st, ds, previewRows)
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleFilter filters the working dataset and records the filters on the
// session dashboard.
func (s *Server) HandleFilter(c *gin.Context) {
	var req filterRequest
	s.transform(c, &req, func(st *session.Session, ds *dataset.Dataset) (*dataset.Dataset, error) {
		out, err := dataset.ApplyFilters(ds, req.Filters)
		if err != nil {
			return nil, err
		}
		if st.Dashboard.Filters == nil {
			st.Dashboard.Filters = map[string]dataset.Filter{}
		}
		for col, f := range req.Filters {
			st.Dashboard.Filters[col] = f
		}
		return out, nil
	})
}

// HandleClean applies cleaning operations in order.
func (s *Server) HandleClean(c *gin.Context) {
	var req cleanRequest
	s.transform(c, &req, func(_ *session.Session, ds *dataset.Dataset) (*dataset.Dataset, error) {
		return dataset.Clean(ds, req.Operations)
	})
}

// HandleDerive adds computed columns.
func (s *Server) HandleDerive(c *gin.Context) {
	var req deriveRequest
	s.transform(c, &req, func(_ *session.Session, ds *dataset.Dataset) (*dataset.Dataset, error) {
		return dataset.Derive(ds, req.Derivations)
	})
}

// HandleConvert changes the kind of one column.
func (s *Server) HandleConvert(c *gin.Context) {
	var req convertRequest
	s.transform(c, &req, func(_ *session.Session, ds *dataset.Dataset) (*dataset.Dataset, error) {
		kind, err := dataset.ParseKind(req.Kind)
		if err != nil {
			return nil, err
		}
		return dataset.Convert(ds, req.Column, kind)
	})
}

// HandleSelect keeps only the named columns.
func (s *Server) HandleSelect(c *gin.Context) {
	var req selectRequest
	s.transform(c, &req, func(_ *session.Session, ds *dataset.Dataset) (*dataset.Dataset, error) {
		return dataset.Select(ds, req.Columns)
	})
}

// HandleReset restores the dataset as loaded and clears the dashboard filters.
func (s *Server) HandleReset(c *gin.Context) {
	var resp dataResponse
	err := currentSession(c).Update(func(st *session.Session) error {
		ds, err := st.Reset()
		if err != nil {
			return err
		}
		st.Dashboard.Filters = map[string]dataset.Filter{}
		resp = previewOf(st, ds, previewRows)
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleExportData downloads the working dataset (?format=csv|excel).
func (s *Server) HandleExportData(c *gin.Context) {
	format := c.DefaultQuery("format", dataset.ExportCSV)
	var (
		data []byte
		base string
	)
	err := currentSession(c).View(func(st *session.Session) error {
		ds, err := st.Data()
		if err != nil {
			return err
		}
		base = strings.TrimSuffix(st.DataName, path.Ext(st.DataName))
		data, err = dataset.Export(ds, format)
		return err
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if base == "" {
		base = "data"
	}
	filename := dataset.ExportFilename(base, format)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, storage.GetContentType(filename), data)
}
