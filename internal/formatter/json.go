package formatter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// JSONExporter writes one pretty-printed JSON document per list. JSON output is never chunked.
type JSONExporter struct {
	now func() time.Time
}

func NewJSONExporter() *JSONExporter {
	return &JSONExporter{now: time.Now}
}

func (e *JSONExporter) Format() string      { return shared.FormatJSON }
func (e *JSONExporter) ContentType() string { return "application/json" }

type listDocument struct {
	List       listHeader     `json:"list"`
	Tasks      []taskDocument `json:"tasks"`
	TaskCount  int            `json:"task_count"`
	ExportedAt string         `json:"exported_at"`
}

type listHeader struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type taskDocument struct {
	ID              string                 `json:"id"`
	Title           string                 `json:"title"`
	Body            *string                `json:"body"`
	Importance      *string                `json:"importance"`
	Status          string                 `json:"status"`
	DueDate         *string                `json:"due_date"`
	DueTimezone     *string                `json:"due_timezone"`
	Recurrence      *models.Recurrence     `json:"recurrence"`
	ChecklistItems  []models.ChecklistItem `json:"checklist_items"`
	ListName        string                 `json:"list_name"`
	ListID          string                 `json:"list_id"`
	CreatedAt       *string                `json:"created_at"`
	UpdatedAt       *string                `json:"updated_at"`
	TodoistPriority int                    `json:"todoist_priority"`
	SubtaskCount    int                    `json:"subtask_count"`
}

// Export renders each group as "{list}.json".
func (e *JSONExporter) Export(groups []models.TaskGroup) ([]models.FileRecord, error) {
	now := e.now
	if now == nil {
		now = time.Now
	}
	exportedAt := now().Format(time.RFC3339)

	files := make([]models.FileRecord, 0, len(groups))
	for _, group := range groups {
		doc := listDocument{
			List:       listHeader{ID: group.List.ID, DisplayName: group.List.DisplayName},
			Tasks:      make([]taskDocument, 0, len(group.Tasks)),
			TaskCount:  len(group.Tasks),
			ExportedAt: exportedAt,
		}
		for _, task := range group.Tasks {
			doc.Tasks = append(doc.Tasks, toTaskDocument(task))
		}

		content, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode list %q: %w", group.List.DisplayName, err)
		}

		files = append(files, models.FileRecord{
			Filename: shared.SanitizeFilename(group.List.DisplayName, "json"),
			Content:  content,
		})
	}

	return files, nil
}

func toTaskDocument(t models.Task) taskDocument {
	items := t.ChecklistItems
	if items == nil {
		items = []models.ChecklistItem{}
	}

	return taskDocument{
		ID:              t.ID,
		Title:           t.Title,
		Body:            taskBody(t),
		Importance:      nullable(string(t.Importance)),
		Status:          t.Status,
		DueDate:         nullable(t.DueDate),
		DueTimezone:     nullable(t.DueTimezone),
		Recurrence:      t.Recurrence,
		ChecklistItems:  items,
		ListName:        t.ListName,
		ListID:          t.ListID,
		CreatedAt:       nullable(t.CreatedAt),
		UpdatedAt:       nullable(t.UpdatedAt),
		TodoistPriority: t.TodoistPriority(),
		SubtaskCount:    t.SubtaskCount(),
	}
}

// taskBody keeps an empty body that was sent as "" and maps a missing one to null.
func taskBody(t models.Task) *string {
	if t.HasBody {
		content := t.Body
		return &content
	}
	return nullable(t.Body)
}

// nullable maps "" to a JSON null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
