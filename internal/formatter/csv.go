package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// MaxTasksPerFile is the Todoist import limit, counting subtasks.
const MaxTasksPerFile = 300

// TodoistHeaders is the header row of a Todoist CSV import file.
var TodoistHeaders = []string{
	"TYPE", "CONTENT", "DESCRIPTION", "PRIORITY", "INDENT",
	"AUTHOR", "RESPONSIBLE", "DATE", "DATE_LANG", "TIMEZONE",
}

const (
	rowType    = "task"
	dateLang   = "en"
	indentTask = 1
	indentSub  = 2
)

// TodoistCSV exports task groups as Todoist CSV files, one per list, split into numbered
// parts when a list weighs more than Limit.
type TodoistCSV struct {
	Limit int
}

// NewTodoistCSV creates a TodoistCSV with the Todoist per-file limit.
func NewTodoistCSV() *TodoistCSV {
	return &TodoistCSV{Limit: MaxTasksPerFile}
}

func (e *TodoistCSV) Format() string      { return shared.FormatCSV }
func (e *TodoistCSV) ContentType() string { return "text/csv" }

// Export renders every group. Lists within the limit produce "{list}.csv", heavier lists
// produce "{list}-1.csv" ... "{list}-N.csv" with Part and TotalParts set.
func (e *TodoistCSV) Export(groups []models.TaskGroup) ([]models.FileRecord, error) {
	limit := e.Limit
	if limit <= 0 {
		limit = MaxTasksPerFile
	}

	var files []models.FileRecord
	for _, group := range groups {
		stem := shared.SanitizeStem(group.List.DisplayName)

		if group.Weight() <= limit {
			content, err := GenerateCSV(group.Tasks)
			if err != nil {
				return nil, fmt.Errorf("list %q: %w", group.List.DisplayName, err)
			}
			files = append(files, models.FileRecord{Filename: stem + ".csv", Content: content})
			continue
		}

		chunks := ChunkTasks(group.Tasks, limit)
		for i, chunk := range chunks {
			content, err := GenerateCSV(chunk)
			if err != nil {
				return nil, fmt.Errorf("list %q part %d: %w", group.List.DisplayName, i+1, err)
			}
			files = append(files, models.FileRecord{
				Filename:   fmt.Sprintf("%s-%d.csv", stem, i+1),
				Content:    content,
				Part:       i + 1,
				TotalParts: len(chunks),
			})
		}
	}

	return files, nil
}

// GenerateCSV renders tasks as a Todoist CSV document: a parent row per task followed by
// one indented row per checklist item.
func GenerateCSV(tasks []models.Task) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(TodoistHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, task := range tasks {
		for _, record := range taskRows(task) {
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func taskRows(task models.Task) [][]string {
	priority := strconv.Itoa(task.TodoistPriority())

	rows := make([][]string, 0, task.TotalTaskCount())
	rows = append(rows, []string{
		rowType,
		task.Title,
		task.Body,
		priority,
		strconv.Itoa(indentTask),
		"",
		"",
		taskDate(task),
		dateLang,
		task.DueTimezone,
	})

	for _, item := range task.ChecklistItems {
		rows = append(rows, []string{
			rowType,
			item.DisplayName,
			"",
			priority,
			strconv.Itoa(indentSub),
			"",
			"",
			"",
			dateLang,
			"",
		})
	}
	return rows
}

// taskDate prefers the recurrence phrase over a one-time due date.
func taskDate(task models.Task) string {
	if task.Recurrence != nil {
		return TranslateRecurrence(task.Recurrence.Pattern)
	}
	return strings.TrimSpace(task.DueDate)
}
