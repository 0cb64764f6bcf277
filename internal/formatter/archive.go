package formatter

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"

	"github.com/desertthunder/todox/internal/models"
)

// ArchiveName is the filename of a bundled multi-file export.
const ArchiveName = "ms-todo-export.zip"

// Bundle packs files into a ZIP archive, one deflated entry per record named by its filename.
func Bundle(files []models.FileRecord) ([]byte, error) {
	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	modified := time.Now()

	for _, file := range files {
		w, err := archive.CreateHeader(&zip.FileHeader{
			Name:     file.Filename,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", file.Filename, err)
		}
		if _, err := w.Write(file.Content); err != nil {
			return nil, fmt.Errorf("failed to write %s to archive: %w", file.Filename, err)
		}
	}

	if err := archive.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
