package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/formatter"
	"github.com/desertthunder/todox/internal/services"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/desertthunder/todox/internal/tasks"
	"github.com/gin-gonic/gin"
)

type listEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": shared.Version})
}

func (s *Server) lists(c *gin.Context) {
	token := param(c, "token")
	if token == "" {
		s.fail(c, shared.ErrMissingToken)
		return
	}

	fetcher := tasks.NewTaskFetcher(s.factory(token), tasks.NopReporter{}, s.fetch, s.requestLogger(c))
	lists, err := fetcher.FetchLists(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	entries := make([]listEntry, 0, len(lists))
	for _, l := range lists {
		entries = append(entries, listEntry{ID: l.ID, Name: l.DisplayName})
	}
	c.JSON(http.StatusOK, gin.H{"lists": entries})
}

func (s *Server) export(c *gin.Context) {
	token := param(c, "token")
	if token == "" {
		s.fail(c, shared.ErrMissingToken)
		return
	}

	format := strings.ToLower(param(c, "format"))
	if format == "" {
		format = shared.FormatCSV
	}
	exporter, err := formatter.NewExporter(format)
	if err != nil {
		s.fail(c, err)
		return
	}

	logger := s.requestLogger(c)
	fetcher := tasks.NewTaskFetcher(s.factory(token), tasks.NopReporter{}, s.fetch, logger)
	engine := tasks.NewEngine(fetcher, s.recorder, logger)

	result, err := engine.Export(c.Request.Context(), exporter, tasks.SourceAPI)
	if err != nil {
		s.fail(c, err)
		return
	}

	files := result.Files
	singleFile := truthy(param(c, "single_file"))
	if len(files) == 1 || (singleFile && len(files) > 0) {
		if len(files) > 1 {
			logger.Warn("single file requested, returning the first file only", "files", len(files), "returned", files[0].Filename)
		}
		f := files[0]
		attach(c, f.Filename, formatter.ContentTypeFor(f.Filename), f.Content)
		return
	}

	bundle, err := formatter.Bundle(files)
	if err != nil {
		s.fail(c, err)
		return
	}
	attach(c, formatter.ArchiveName, "application/zip", bundle)
}

// fail writes {error: message} with the status matching err.
func (s *Server) fail(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.requestLogger(c).Error("request failed", "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func statusFor(err error) (int, string) {
	var authErr *services.AuthenticationError
	var rateErr *services.RateLimitError

	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, authErr.Error()
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests, rateErr.Error()
	case errors.Is(err, shared.ErrMissingToken):
		return http.StatusBadRequest, "Token required"
	case errors.Is(err, shared.ErrInvalidFormat):
		return http.StatusBadRequest, "Invalid format"
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func (s *Server) requestLogger(c *gin.Context) *log.Logger {
	return shared.WithLogger(s.logger, "request_id", c.GetString(requestIDKey))
}

func attach(c *gin.Context, filename, contentType string, content []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, content)
}

// param reads key from the form body, then the query string. The token may also arrive
// as an Authorization header.
func param(c *gin.Context, key string) string {
	if v, ok := c.GetPostForm(key); ok && v != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := c.GetQuery(key); ok && v != "" {
		return strings.TrimSpace(v)
	}
	if key == "token" {
		return strings.TrimSpace(c.GetHeader("Authorization"))
	}
	return ""
}

func truthy(v string) bool {
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	switch strings.ToLower(v) {
	case "yes", "on":
		return true
	}
	return false
}
