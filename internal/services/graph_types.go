package services

import (
	"encoding/json"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// GraphCollection is the paged envelope returned by Graph collection endpoints.
type GraphCollection[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink,omitempty"`
}

// GraphList is a todoTaskList resource.
type GraphList struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	WellknownListName string `json:"wellknownListName"`
}

// GraphDateTime is a dateTimeTimeZone resource.
type GraphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// ItemBody is the rich text body of a task.
//
// Graph sends {content, contentType}; older payloads may carry the content as a bare string.
// Present is set when the payload carried a non-null body, even an empty one.
type ItemBody struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
	Present     bool   `json:"-"`
}

func (b *ItemBody) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = ItemBody{}
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*b = ItemBody{Content: text, ContentType: "text", Present: true}
		return nil
	}

	type alias ItemBody
	var body alias
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	*b = ItemBody(body)
	b.Present = true
	return nil
}

// Text returns the body as plain text, converting HTML content to markdown.
//
// If conversion fails the raw content is returned.
func (b ItemBody) Text() string {
	if !strings.EqualFold(b.ContentType, "html") || strings.TrimSpace(b.Content) == "" {
		return b.Content
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(b.Content)
	if err != nil {
		return b.Content
	}
	return strings.TrimSpace(markdown)
}

// GraphTask is a todoTask resource.
type GraphTask struct {
	ID                   string             `json:"id"`
	Title                string             `json:"title"`
	Body                 ItemBody           `json:"body"`
	Importance           string             `json:"importance"`
	Status               string             `json:"status"`
	DueDateTime          *GraphDateTime     `json:"dueDateTime,omitempty"`
	Recurrence           *models.Recurrence `json:"recurrence,omitempty"`
	CreatedDateTime      string             `json:"createdDateTime"`
	LastModifiedDateTime string             `json:"lastModifiedDateTime"`
}

// GraphChecklistItem is a checklistItem resource.
type GraphChecklistItem struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	IsChecked   bool   `json:"isChecked"`
}

// DecodeCollection parses one page of a Graph collection.
func DecodeCollection[T any](resp *APIResponse) (*GraphCollection[T], error) {
	var page GraphCollection[T]
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDecodeResponse, err)
	}
	return &page, nil
}

// ToModel converts a GraphList into a [models.TaskList].
func (l GraphList) ToModel() models.TaskList {
	return models.TaskList{
		ID:                l.ID,
		DisplayName:       l.DisplayName,
		WellknownListName: l.WellknownListName,
	}
}

// ToModel converts a GraphChecklistItem into a [models.ChecklistItem].
func (i GraphChecklistItem) ToModel() models.ChecklistItem {
	return models.ChecklistItem{ID: i.ID, DisplayName: i.DisplayName, IsChecked: i.IsChecked}
}

// ToModel merges a GraphTask with its checklist and owning list into a [models.Task].
func (t GraphTask) ToModel(list models.TaskList, checklist []GraphChecklistItem) models.Task {
	items := make([]models.ChecklistItem, 0, len(checklist))
	for _, item := range checklist {
		items = append(items, item.ToModel())
	}

	task := models.Task{
		ID:             t.ID,
		Title:          t.Title,
		Body:           t.Body.Text(),
		HasBody:        t.Body.Present,
		Importance:     models.Importance(t.Importance),
		Status:         t.Status,
		Recurrence:     t.Recurrence,
		ChecklistItems: items,
		ListName:       list.DisplayName,
		ListID:         list.ID,
		CreatedAt:      t.CreatedDateTime,
		UpdatedAt:      t.LastModifiedDateTime,
	}

	if t.DueDateTime != nil {
		task.DueDate = t.DueDateTime.DateTime
		task.DueTimezone = t.DueDateTime.TimeZone
	}
	return task
}
