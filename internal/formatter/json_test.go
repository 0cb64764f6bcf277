package formatter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/todox/internal/models"
)

func TestJSONExporter(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 9, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	exporter := &JSONExporter{now: func() time.Time { return fixed }}

	groups := []models.TaskGroup{{
		List: models.TaskList{ID: "l1", DisplayName: "Work: Q3"},
		Tasks: []models.Task{
			{
				ID:             "t1",
				Title:          "Ship it",
				Importance:     models.ImportanceHigh,
				Status:         "notStarted",
				DueDate:        "2025-06-02T00:00:00.0000000",
				DueTimezone:    "UTC",
				Recurrence:     &models.Recurrence{Pattern: models.RecurrencePattern{Type: "weekly", Interval: 1}},
				ChecklistItems: []models.ChecklistItem{{ID: "c1", DisplayName: "tests"}},
				ListName:       "Work: Q3",
				ListID:         "l1",
			},
			{ID: "t2", Title: "Plain"},
			{ID: "t3", Title: "Empty notes", HasBody: true},
		},
	}}

	files, err := exporter.Export(groups)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].Filename != "Work-Q3.json" {
		t.Errorf("unexpected filename %q", files[0].Filename)
	}
	if !strings.Contains(string(files[0].Content), "\n  \"list\"") {
		t.Error("expected pretty-printed output")
	}

	var doc map[string]any
	if err := json.Unmarshal(files[0].Content, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	list := doc["list"].(map[string]any)
	if list["id"] != "l1" || list["displayName"] != "Work: Q3" {
		t.Errorf("unexpected list header %v", list)
	}
	if doc["task_count"] != float64(3) {
		t.Errorf("expected task_count 3, got %v", doc["task_count"])
	}
	if doc["exported_at"] != "2025-06-01T09:30:00+02:00" {
		t.Errorf("unexpected exported_at %v", doc["exported_at"])
	}

	tasks := doc["tasks"].([]any)
	first := tasks[0].(map[string]any)
	for _, key := range []string{
		"id", "title", "body", "importance", "status", "due_date", "due_timezone", "recurrence",
		"checklist_items", "list_name", "list_id", "created_at", "updated_at", "todoist_priority", "subtask_count",
	} {
		if _, ok := first[key]; !ok {
			t.Errorf("task is missing key %q", key)
		}
	}
	if first["todoist_priority"] != float64(1) || first["subtask_count"] != float64(1) {
		t.Errorf("unexpected derived fields %v / %v", first["todoist_priority"], first["subtask_count"])
	}

	second := tasks[1].(map[string]any)
	if second["body"] != nil || second["due_date"] != nil {
		t.Errorf("expected nulls for absent fields, got %v", second)
	}
	if items, ok := second["checklist_items"].([]any); !ok || len(items) != 0 {
		t.Errorf("expected empty checklist array, got %v", second["checklist_items"])
	}

	third := tasks[2].(map[string]any)
	if b, ok := third["body"].(string); !ok || b != "" {
		t.Errorf("expected empty string body for a sent empty body, got %#v", third["body"])
	}
}

func TestJSONExporterNeverChunks(t *testing.T) {
	groups := []models.TaskGroup{{List: models.TaskList{DisplayName: "Huge"}, Tasks: minimalTasks(1000)}}

	files, err := NewJSONExporter().Export(groups)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Chunked() {
		t.Errorf("expected one unchunked file, got %d", len(files))
	}
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format      string
		contentType string
		wantErr     bool
	}{
		{"csv", "text/csv", false},
		{"JSON", "application/json", false},
		{"xml", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		exporter, err := NewExporter(tt.format)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.format)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.format, err)
		}
		if exporter.ContentType() != tt.contentType {
			t.Errorf("%q: expected %s, got %s", tt.format, tt.contentType, exporter.ContentType())
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"a.csv":  "text/csv",
		"a.json": "application/json",
		"a.zip":  "application/zip",
		"a.bin":  "application/octet-stream",
	}
	for name, want := range cases {
		if got := ContentTypeFor(name); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}
