package formatter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/todox/internal/models"
)

// ManifestName is the filename of the manifest written next to a disk export.
const ManifestName = "export_manifest.json"

// Manifest describes the files of one export.
type Manifest struct {
	ExportedAt string         `json:"exported_at"`
	Format     string         `json:"format"`
	ListCount  int            `json:"list_count"`
	TaskCount  int            `json:"task_count"`
	Files      []ManifestFile `json:"files"`
}

// ManifestFile is one file entry of a [Manifest].
type ManifestFile struct {
	Filename   string `json:"filename"`
	Bytes      int    `json:"bytes"`
	Part       int    `json:"part,omitempty"`
	TotalParts int    `json:"total_parts,omitempty"`
}

// NewManifest summarizes an export. TaskCount counts parent tasks only.
func NewManifest(format string, groups []models.TaskGroup, files []models.FileRecord, at time.Time) Manifest {
	m := Manifest{
		ExportedAt: at.Format(time.RFC3339),
		Format:     format,
		ListCount:  len(groups),
		Files:      make([]ManifestFile, 0, len(files)),
	}
	for _, g := range groups {
		m.TaskCount += len(g.Tasks)
	}
	for _, f := range files {
		m.Files = append(m.Files, ManifestFile{
			Filename:   f.Filename,
			Bytes:      len(f.Content),
			Part:       f.Part,
			TotalParts: f.TotalParts,
		})
	}
	return m
}

// WriteFiles writes each record into dir, creating it if needed, and returns the written paths.
func WriteFiles(dir string, files []models.FileRecord) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	paths := make([]string, 0, len(files))
	for _, file := range files {
		path := filepath.Join(dir, file.Filename)
		if err := os.WriteFile(path, file.Content, 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", file.Filename, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteArchive bundles files into dir/[ArchiveName] and returns its path.
func WriteArchive(dir string, files []models.FileRecord) (string, error) {
	data, err := Bundle(files)
	if err != nil {
		return "", err
	}

	paths, err := WriteFiles(dir, []models.FileRecord{{Filename: ArchiveName, Content: data}})
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

// WriteManifest writes m as dir/[ManifestName].
func WriteManifest(dir string, m Manifest) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}

	paths, err := WriteFiles(dir, []models.FileRecord{{Filename: ManifestName, Content: data}})
	if err != nil {
		return "", err
	}
	return paths[0], nil
}
