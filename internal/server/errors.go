package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"chartdeck/internal/chart"
	"chartdeck/internal/dashboard"
	"chartdeck/internal/dataset"
	"chartdeck/internal/report"
	"chartdeck/internal/session"
	"chartdeck/internal/storage"
)

// apiError carries the HTTP status and machine-readable code for an error.
type apiError struct {
	Status int
	Code   string
	Err    error
}

func (e *apiError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *apiError) Unwrap() error { return e.Err }

func newAPIError(status int, code string, err error) *apiError {
	return &apiError{Status: status, Code: code, Err: err}
}

func badRequest(err error) *apiError {
	return newAPIError(http.StatusBadRequest, "bad_request", err)
}

// APIError is the body of an error response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError as {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

var errorCodes = []struct {
	target error
	status int
	code   string
}{
	{session.ErrNotFound, http.StatusNotFound, "session_not_found"},
	{dashboard.ErrNotFound, http.StatusNotFound, "not_found"},
	{storage.ErrNotExist, http.StatusNotFound, "not_found"},
	{session.ErrNoData, http.StatusConflict, "no_data"},
	{session.ErrNoReport, http.StatusConflict, "no_report"},
	{chart.ErrUnsupportedType, http.StatusBadRequest, "unsupported_type"},
	{dataset.ErrUnsupportedFormat, http.StatusBadRequest, "unsupported_format"},
	{chart.ErrMissingField, http.StatusBadRequest, "missing_field"},
	{dataset.ErrUnknownColumn, http.StatusBadRequest, "unknown_column"},
	{dataset.ErrNotNumeric, http.StatusBadRequest, "not_numeric"},
	{chart.ErrUnknownPalette, http.StatusBadRequest, "invalid_config"},
	{chart.ErrInvalidOption, http.StatusBadRequest, "invalid_config"},
	{dashboard.ErrInvalidConfig, http.StatusBadRequest, "invalid_config"},
	{dashboard.ErrInvalidName, http.StatusBadRequest, "invalid_name"},
	{dataset.ErrInvalidOperation, http.StatusBadRequest, "invalid_operation"},
	{report.ErrNothingToDraw, http.StatusBadRequest, "nothing_to_draw"},
	{dashboard.ErrParse, http.StatusUnprocessableEntity, "parse_failure"},
	{dataset.ErrParse, http.StatusUnprocessableEntity, "parse_failure"},
	{dataset.ErrShape, http.StatusUnprocessableEntity, "parse_failure"},
	{dashboard.ErrIO, http.StatusInternalServerError, "io_failure"},
}

// classify maps an error onto a status and code.
func classify(err error) (int, string) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Code
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "too_large"
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.target) {
			return ec.status, ec.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// respondError writes err in the error envelope.
func (s *Server) respondError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", err, map[string]interface{}{
			"path": c.FullPath(),
			"code": code,
		})
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{Message: err.Error(), Code: code},
	})
}
