// package formatter renders fetched task groups as Todoist CSV or JSON files and
// packages them for delivery (ZIP bundle or files on disk).
package formatter

import (
	"fmt"
	"strings"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// Exporter converts task groups into file records.
type Exporter interface {
	Export(groups []models.TaskGroup) ([]models.FileRecord, error)
	Format() string
	ContentType() string
}

// NewExporter returns the exporter for format ("csv" or "json", case-insensitive).
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case shared.FormatCSV:
		return NewTodoistCSV(), nil
	case shared.FormatJSON:
		return NewJSONExporter(), nil
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidFormat, format)
	}
}

// ContentTypeFor returns the MIME type of a single exported file by extension.
func ContentTypeFor(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".csv"):
		return "text/csv"
	case strings.HasSuffix(filename, ".json"):
		return "application/json"
	case strings.HasSuffix(filename, ".zip"):
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
