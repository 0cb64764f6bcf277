// package models defines the data model for the task export pipeline
package models

import "time"

// Importance is the remote priority marker on a task.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

// Todoist priorities: 1 is the most urgent, 4 is the default.
const (
	PriorityUrgent  = 1
	PriorityDefault = 4
)

// TodoistPriority maps an importance onto Todoist's 1-4 scale.
//
// Anything other than high (including an empty or unknown value) maps to [PriorityDefault].
func (i Importance) TodoistPriority() int {
	switch i {
	case ImportanceHigh:
		return PriorityUrgent
	case ImportanceLow, ImportanceNormal:
		return PriorityDefault
	default:
		return PriorityDefault
	}
}

// ChecklistItem is a subtask attached to a task.
type ChecklistItem struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName"`
	IsChecked   bool   `json:"isChecked"`
}

// TaskList describes one remote list.
type TaskList struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	WellknownListName string `json:"wellknownListName,omitempty"`
}

// Exportable reports whether the list is a user list (wellknownListName none or defaultList).
//
// System lists such as flaggedEmails are excluded from exports.
func (l TaskList) Exportable() bool {
	return l.WellknownListName == "none" || l.WellknownListName == "defaultList"
}

// Task is one remote task, normalized at the fetch boundary and never mutated afterwards.
type Task struct {
	ID             string
	Title          string
	Body           string // empty when the task has no body
	HasBody        bool   // a body was sent, possibly with empty content
	Importance     Importance
	Status         string
	DueDate        string // ISO-8601 datetime, empty when unset
	DueTimezone    string
	Recurrence     *Recurrence
	ChecklistItems []ChecklistItem
	ListName       string
	ListID         string
	CreatedAt      string
	UpdatedAt      string
}

// TodoistPriority returns the task's importance mapped to Todoist's priority scale.
func (t Task) TodoistPriority() int {
	return t.Importance.TodoistPriority()
}

// SubtaskCount returns the number of checklist items.
func (t Task) SubtaskCount() int {
	return len(t.ChecklistItems)
}

// TotalTaskCount is the indivisible weight of the task and its subtasks, always >= 1.
func (t Task) TotalTaskCount() int {
	return 1 + t.SubtaskCount()
}

// Completed reports whether the remote status marks the task as done.
func (t Task) Completed() bool {
	return t.Status == "completed"
}

// TaskGroup pairs a list with its tasks in remote order.
type TaskGroup struct {
	List  TaskList
	Tasks []Task
}

// Weight sums [Task.TotalTaskCount] over the group.
func (g TaskGroup) Weight() int {
	total := 0
	for _, t := range g.Tasks {
		total += t.TotalTaskCount()
	}
	return total
}

// FileRecord is one exported file. Part and TotalParts are zero unless the list was chunked.
type FileRecord struct {
	Filename   string
	Content    []byte
	Part       int
	TotalParts int
}

// Chunked reports whether the record is one part of a multi-file list export.
func (f FileRecord) Chunked() bool {
	return f.TotalParts > 0
}

// ExportRun is the metadata of one export, stored when history is enabled.
//
// Only counts and file names are kept; task content is never persisted.
type ExportRun struct {
	ID           string
	Sequence     int
	Source       string // cli or api
	Format       string
	Status       string // succeeded or failed
	ListCount    int
	TaskCount    int
	FailedCount  int
	SkippedCount int
	Files        []string
	ErrorMessage string
	StartedAt    time.Time
	CompletedAt  time.Time
}

const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Duration returns how long the run took.
func (r ExportRun) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
