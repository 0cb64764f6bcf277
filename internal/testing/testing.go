// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/todox/internal/services"
)

// FakeResponse is one canned reply of a [FakeGraph].
type FakeResponse struct {
	Body string
	Err  error
}

// FakeGraph is a test double for the Graph client, keyed by request path.
//
// Each path serves its responses in order; the last one repeats. Unknown paths fail with a 404.
type FakeGraph struct {
	mu        sync.Mutex
	responses map[string][]FakeResponse
	calls     []string
}

func NewFakeGraph() *FakeGraph {
	return &FakeGraph{responses: map[string][]FakeResponse{}}
}

// On queues a JSON body for path.
func (f *FakeGraph) On(path, body string) *FakeGraph {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = append(f.responses[path], FakeResponse{Body: body})
	return f
}

// Fail queues an error for path.
func (f *FakeGraph) Fail(path string, err error) *FakeGraph {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = append(f.responses[path], FakeResponse{Err: err})
	return f
}

func (f *FakeGraph) Get(ctx context.Context, path string) (*services.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, path)

	queue, ok := f.responses[path]
	if !ok || len(queue) == 0 {
		return nil, &services.UnexpectedStatusError{StatusCode: http.StatusNotFound, Message: "no fake for " + path}
	}

	next := queue[0]
	if len(queue) > 1 {
		f.responses[path] = queue[1:]
	}

	if next.Err != nil {
		return nil, next.Err
	}
	return &services.APIResponse{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(next.Body),
	}, nil
}

// Calls returns the requested paths in order.
func (f *FakeGraph) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Page renders a Graph collection page with the given items and optional next link.
func Page(t *testing.T, next string, items ...any) string {
	t.Helper()

	envelope := map[string]any{"value": items}
	if items == nil {
		envelope["value"] = []any{}
	}
	if next != "" {
		envelope["@odata.nextLink"] = next
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("failed to marshal page: %v", err)
	}
	return string(data)
}

// TaskJSON returns a minimal Graph task payload.
func TaskJSON(id, title string) map[string]any {
	return map[string]any{
		"id":         id,
		"title":      title,
		"importance": "normal",
		"status":     "notStarted",
	}
}

// ListJSON returns a Graph list payload.
func ListJSON(id, name, wellknown string) map[string]any {
	return map[string]any{"id": id, "displayName": name, "wellknownListName": wellknown}
}

// ItemJSON returns a Graph checklist item payload.
func ItemJSON(id, name string) map[string]any {
	return map[string]any{"id": id, "displayName": name, "isChecked": false}
}

// TasksPath, ListsPath and ChecklistPath mirror the fetcher's first-page paths for lists
// with URL-safe IDs.
func ListsPath(top int) string {
	return fmt.Sprintf("/me/todo/lists?$top=%d", top)
}

func TasksPath(listID string, top int, filtered bool) string {
	path := fmt.Sprintf("/me/todo/lists/%s/tasks?$top=%d", listID, top)
	if filtered {
		path += "&$filter=status%20ne%20'completed'"
	}
	return path
}

func ChecklistPath(listID, taskID string) string {
	return fmt.Sprintf("/me/todo/lists/%s/tasks/%s/checklistItems", listID, taskID)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
