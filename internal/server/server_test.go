package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/services"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/desertthunder/todox/internal/tasks"
	tu "github.com/desertthunder/todox/internal/testing"
	"github.com/gin-gonic/gin"
)

const pageSize = 100

type fakeRecorder struct {
	runs []*models.ExportRun
}

func (f *fakeRecorder) RecordRun(run *models.ExportRun) error {
	f.runs = append(f.runs, run)
	return nil
}

// newTestServer returns a server whose clients all share graph. The token passed to the
// factory is captured in tokens.
func newTestServer(t *testing.T, graph *tu.FakeGraph, recorder tasks.RunRecorder) (*Server, *[]string) {
	t.Helper()

	tokens := &[]string{}
	srv, err := New(Options{
		Logger: log.New(io.Discard),
		Factory: func(token string) tasks.APIClient {
			*tokens = append(*tokens, token)
			return graph
		},
		Recorder: recorder,
		Fetch:    tasks.FetchOpts{PageSize: pageSize},
		Mode:     gin.TestMode,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, tokens
}

func twoListGraph(t *testing.T) *tu.FakeGraph {
	t.Helper()

	return tu.NewFakeGraph().
		On(tu.ListsPath(pageSize), tu.Page(t, "",
			tu.ListJSON("l1", "Work", "defaultList"),
			tu.ListJSON("l2", "Home", "none"),
			tu.ListJSON("l3", "Flagged Emails", "flaggedEmails"),
		)).
		On(tu.TasksPath("l1", pageSize, true), tu.Page(t, "", tu.TaskJSON("t1", "Write report"))).
		On(tu.TasksPath("l2", pageSize, true), tu.Page(t, "", tu.TaskJSON("t2", "Water plants"))).
		On(tu.ChecklistPath("l1", "t1"), tu.Page(t, "")).
		On(tu.ChecklistPath("l2", "t2"), tu.Page(t, ""))
}

func oneListGraph(t *testing.T) *tu.FakeGraph {
	t.Helper()

	return tu.NewFakeGraph().
		On(tu.ListsPath(pageSize), tu.Page(t, "", tu.ListJSON("l1", "Work", "defaultList"))).
		On(tu.TasksPath("l1", pageSize, true), tu.Page(t, "", tu.TaskJSON("t1", "Write report"))).
		On(tu.ChecklistPath("l1", "t1"), tu.Page(t, "", tu.ItemJSON("c1", "Outline")))
}

func postForm(srv *Server, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func get(srv *Server, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestNew(t *testing.T) {
	if _, err := New(Options{Mode: gin.TestMode}); err == nil {
		t.Error("expected error without a client factory")
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, tu.NewFakeGraph(), nil)
	rec := get(srv, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "ok" || body["version"] != shared.Version {
		t.Errorf("unexpected body %v", body)
	}
}

func TestRequestID(t *testing.T) {
	srv, _ := newTestServer(t, tu.NewFakeGraph(), nil)

	t.Run("generated", func(t *testing.T) {
		rec := get(srv, "/health")
		if rec.Header().Get(RequestIDHeader) == "" {
			t.Error("expected a generated request ID")
		}
	})

	t.Run("echoed", func(t *testing.T) {
		id := "0b7c9a52-6a3b-4c61-9a4f-4f0f3f1e2d11"
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, id)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if got := rec.Header().Get(RequestIDHeader); got != id {
			t.Errorf("expected %q, got %q", id, got)
		}
	})

	t.Run("invalid replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "not-a-uuid")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if got := rec.Header().Get(RequestIDHeader); got == "not-a-uuid" || got == "" {
			t.Errorf("expected a fresh ID, got %q", got)
		}
	})
}

func TestLists(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		srv, _ := newTestServer(t, tu.NewFakeGraph(), nil)
		rec := get(srv, "/lists")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if msg := decodeError(t, rec); msg != "Token required" {
			t.Errorf("unexpected error %q", msg)
		}
	})

	t.Run("returns exportable lists", func(t *testing.T) {
		srv, tokens := newTestServer(t, twoListGraph(t), nil)
		rec := get(srv, "/lists?token=abc")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			Lists []listEntry `json:"lists"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		want := []listEntry{{ID: "l1", Name: "Work"}, {ID: "l2", Name: "Home"}}
		if len(body.Lists) != len(want) {
			t.Fatalf("expected %d lists, got %v", len(want), body.Lists)
		}
		for i := range want {
			if body.Lists[i] != want[i] {
				t.Errorf("lists[%d] = %v, want %v", i, body.Lists[i], want[i])
			}
		}
		if len(*tokens) != 1 || (*tokens)[0] != "abc" {
			t.Errorf("expected factory to receive token abc, got %v", *tokens)
		}
	})

	t.Run("token from authorization header", func(t *testing.T) {
		srv, tokens := newTestServer(t, twoListGraph(t), nil)
		req := httptest.NewRequest(http.MethodGet, "/lists", nil)
		req.Header.Set("Authorization", "Bearer abc")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if (*tokens)[0] != "Bearer abc" {
			t.Errorf("expected header token, got %v", *tokens)
		}
	})
}

func TestExportErrors(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		graph   func(t *testing.T) *tu.FakeGraph
		status  int
		message string
	}{
		{
			name:    "missing token",
			form:    url.Values{"format": {"csv"}},
			status:  http.StatusBadRequest,
			message: "Token required",
		},
		{
			name:    "invalid format",
			form:    url.Values{"token": {"abc"}, "format": {"xml"}},
			status:  http.StatusBadRequest,
			message: "Invalid format",
		},
		{
			name: "authentication error",
			form: url.Values{"token": {"expired"}},
			graph: func(t *testing.T) *tu.FakeGraph {
				return tu.NewFakeGraph().Fail(tu.ListsPath(pageSize), &services.AuthenticationError{})
			},
			status:  http.StatusUnauthorized,
			message: "Invalid or expired token",
		},
		{
			name: "rate limit error",
			form: url.Values{"token": {"abc"}},
			graph: func(t *testing.T) *tu.FakeGraph {
				return tu.NewFakeGraph().Fail(tu.ListsPath(pageSize), &services.RateLimitError{RetryAfter: 30})
			},
			status:  http.StatusTooManyRequests,
			message: "Rate limit exceeded. Retry after 30 seconds",
		},
		{
			name: "server error",
			form: url.Values{"token": {"abc"}},
			graph: func(t *testing.T) *tu.FakeGraph {
				return tu.NewFakeGraph().Fail(tu.ListsPath(pageSize), &services.ServerError{StatusCode: 503})
			},
			status:  http.StatusInternalServerError,
			message: "failed to fetch lists: Server error: 503",
		},
		{
			name: "rate limit mid fetch",
			form: url.Values{"token": {"abc"}},
			graph: func(t *testing.T) *tu.FakeGraph {
				return tu.NewFakeGraph().
					On(tu.ListsPath(pageSize), tu.Page(t, "", tu.ListJSON("l1", "Work", "defaultList"))).
					On(tu.TasksPath("l1", pageSize, true), tu.Page(t, "", tu.TaskJSON("t1", "Write report"))).
					Fail(tu.ChecklistPath("l1", "t1"), &services.RateLimitError{RetryAfter: 60})
			},
			status:  http.StatusTooManyRequests,
			message: "Rate limit exceeded. Retry after 60 seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graph := tu.NewFakeGraph()
			if tt.graph != nil {
				graph = tt.graph(t)
			}
			srv, _ := newTestServer(t, graph, nil)
			rec := postForm(srv, tt.form)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if msg := decodeError(t, rec); msg != tt.message {
				t.Errorf("expected error %q, got %q", tt.message, msg)
			}
		})
	}
}

func TestExport(t *testing.T) {
	t.Run("single file returned directly", func(t *testing.T) {
		srv, _ := newTestServer(t, oneListGraph(t), nil)
		rec := postForm(srv, url.Values{"token": {"abc"}})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
			t.Errorf("expected text/csv, got %q", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="Work.csv"` {
			t.Errorf("unexpected Content-Disposition %q", cd)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "Write report") || !strings.Contains(body, "Outline") {
			t.Errorf("expected task and subtask rows, got %q", body)
		}
	})

	t.Run("json format", func(t *testing.T) {
		srv, _ := newTestServer(t, oneListGraph(t), nil)
		rec := postForm(srv, url.Values{"token": {"abc"}, "format": {"JSON"}})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="Work.json"` {
			t.Errorf("unexpected Content-Disposition %q", cd)
		}
	})

	t.Run("multiple files zipped", func(t *testing.T) {
		srv, _ := newTestServer(t, twoListGraph(t), nil)
		rec := postForm(srv, url.Values{"token": {"abc"}})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
			t.Errorf("expected application/zip, got %q", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="ms-todo-export.zip"` {
			t.Errorf("unexpected Content-Disposition %q", cd)
		}

		zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
		if err != nil {
			t.Fatalf("failed to open zip: %v", err)
		}
		var names []string
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		if fmt.Sprint(names) != "[Work.csv Home.csv]" {
			t.Errorf("unexpected entries %v", names)
		}
	})

	t.Run("single_file returns first file", func(t *testing.T) {
		srv, _ := newTestServer(t, twoListGraph(t), nil)
		rec := postForm(srv, url.Values{"token": {"abc"}, "single_file": {"true"}})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
			t.Errorf("expected text/csv, got %q", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="Work.csv"` {
			t.Errorf("unexpected Content-Disposition %q", cd)
		}
	})

	t.Run("query parameters", func(t *testing.T) {
		srv, tokens := newTestServer(t, oneListGraph(t), nil)
		req := httptest.NewRequest(http.MethodPost, "/export?token=q&format=json", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if (*tokens)[0] != "q" {
			t.Errorf("expected query token, got %v", *tokens)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
	})

	t.Run("records run", func(t *testing.T) {
		recorder := &fakeRecorder{}
		srv, _ := newTestServer(t, twoListGraph(t), recorder)
		rec := postForm(srv, url.Values{"token": {"abc"}})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(recorder.runs) != 1 {
			t.Fatalf("expected one recorded run, got %d", len(recorder.runs))
		}
		run := recorder.runs[0]
		if run.Source != tasks.SourceAPI || run.Status != models.RunSucceeded || run.ListCount != 2 {
			t.Errorf("unexpected run %+v", run)
		}
	})

	t.Run("records failed run", func(t *testing.T) {
		recorder := &fakeRecorder{}
		graph := tu.NewFakeGraph().Fail(tu.ListsPath(pageSize), &services.AuthenticationError{})
		srv, _ := newTestServer(t, graph, recorder)
		postForm(srv, url.Values{"token": {"abc"}})

		if len(recorder.runs) != 1 || recorder.runs[0].Status != models.RunFailed {
			t.Errorf("expected one failed run, got %+v", recorder.runs)
		}
	})
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"true", true},
		{"1", true},
		{"TRUE", true},
		{"yes", true},
		{"on", true},
		{"false", false},
		{"", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		if got := truthy(tt.in); got != tt.want {
			t.Errorf("truthy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
