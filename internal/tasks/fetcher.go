package tasks

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/services"
)

const (
	listsPath        = "/me/todo/lists"
	incompleteFilter = "$filter=status%20ne%20'completed'"
)

// APIClient defines the interface for making requests to Microsoft Graph.
// [services.GraphClient] implements it; tests use a fake.
type APIClient interface {
	Get(ctx context.Context, path string) (*services.APIResponse, error)
}

// FetchOpts controls what [TaskFetcher] requests.
type FetchOpts struct {
	PageSize         int  // sent as $top on the first page of lists and tasks; 0 omits it
	IncludeCompleted bool // when false, completed tasks are filtered server-side and skipped client-side
}

// FetchStats counts tasks that did not make it into the result unchanged.
type FetchStats struct {
	Skipped int // completed tasks dropped
	Failed  int // tasks whose checklist could not be fetched
}

// TaskFetcher retrieves lists, their tasks and every task's checklist items.
//
// A fetcher is not safe for concurrent use; build one per export.
type TaskFetcher struct {
	api      APIClient
	reporter Reporter
	opts     FetchOpts
	logger   *log.Logger
	stats    FetchStats
}

// NewTaskFetcher creates a fetcher. A nil reporter is replaced with [NopReporter].
func NewTaskFetcher(api APIClient, reporter Reporter, opts FetchOpts, logger *log.Logger) *TaskFetcher {
	if reporter == nil {
		reporter = NopReporter{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TaskFetcher{api: api, reporter: reporter, opts: opts, logger: logger}
}

// Stats returns the counters of the last fetch.
func (f *TaskFetcher) Stats() FetchStats {
	return f.stats
}

// FetchLists returns the user's lists, following pagination and dropping system lists.
func (f *TaskFetcher) FetchLists(ctx context.Context) ([]models.TaskList, error) {
	raw, err := fetchCollection[services.GraphList](ctx, f.api, withQuery(listsPath, f.pageQuery()...))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lists: %w", err)
	}

	lists := make([]models.TaskList, 0, len(raw))
	for _, l := range raw {
		if list := l.ToModel(); list.Exportable() {
			lists = append(lists, list)
		}
	}
	return lists, nil
}

// FetchAllTasks returns one group per exportable list, in list order, each with its tasks
// in remote order and their checklist items merged in.
//
// Authentication and rate-limit errors abort immediately. A checklist that returns 404 is
// reported through [Reporter.FailedTask] and replaced with an empty checklist.
func (f *TaskFetcher) FetchAllTasks(ctx context.Context) ([]models.TaskGroup, error) {
	f.stats = FetchStats{}

	lists, err := f.FetchLists(ctx)
	if err != nil {
		return nil, err
	}

	f.reporter.StartFetching(len(lists))

	groups := make([]models.TaskGroup, 0, len(lists))
	for i, list := range lists {
		f.reporter.FetchingList(list.DisplayName, i+1, len(lists))

		tasks, err := f.fetchTasks(ctx, list)
		if err != nil {
			return nil, err
		}
		groups = append(groups, models.TaskGroup{List: list, Tasks: tasks})
	}
	return groups, nil
}

func (f *TaskFetcher) fetchTasks(ctx context.Context, list models.TaskList) ([]models.Task, error) {
	query := f.pageQuery()
	if !f.opts.IncludeCompleted {
		query = append(query, incompleteFilter)
	}

	path := withQuery(listsPath+"/"+url.PathEscape(list.ID)+"/tasks", query...)
	raw, err := fetchCollection[services.GraphTask](ctx, f.api, path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks for list %q: %w", list.DisplayName, err)
	}

	tasks := make([]models.Task, 0, len(raw))
	for _, gt := range raw {
		// Completed tasks the server still returns are dropped before their checklist is requested.
		if done := gt.ToModel(list, nil); !f.opts.IncludeCompleted && done.Completed() {
			f.reporter.FetchedTask(done)
			f.stats.Skipped++
			f.reporter.SkippedCompletedTask(done)
			continue
		}

		checklist, err := f.fetchChecklist(ctx, list.ID, gt.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch checklist for task %s: %w", gt.ID, err)
		}

		task := gt.ToModel(list, checklist)
		f.reporter.FetchedTask(task)
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (f *TaskFetcher) fetchChecklist(ctx context.Context, listID, taskID string) ([]services.GraphChecklistItem, error) {
	path := fmt.Sprintf("%s/%s/tasks/%s/checklistItems", listsPath, url.PathEscape(listID), url.PathEscape(taskID))

	items, err := fetchCollection[services.GraphChecklistItem](ctx, f.api, path)
	switch {
	case err == nil:
		return items, nil
	case services.IsFatal(err):
		return nil, err
	case services.IsNotFound(err):
		f.stats.Failed++
		f.logger.Warn("task not found when fetching checklist, skipping checklist", "task", taskID)
		f.reporter.FailedTask(taskID, err)
		return nil, nil
	default:
		return nil, err
	}
}

func (f *TaskFetcher) pageQuery() []string {
	if f.opts.PageSize <= 0 {
		return nil
	}
	return []string{fmt.Sprintf("$top=%d", f.opts.PageSize)}
}

// fetchCollection follows "@odata.nextLink" until it is absent, concatenating pages in order.
func fetchCollection[T any](ctx context.Context, api APIClient, path string) ([]T, error) {
	var items []T
	for next := path; next != ""; {
		resp, err := api.Get(ctx, next)
		if err != nil {
			return nil, err
		}

		page, err := services.DecodeCollection[T](resp)
		if err != nil {
			return nil, err
		}

		items = append(items, page.Value...)
		next = page.NextLink
	}
	return items, nil
}

func withQuery(path string, params ...string) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + strings.Join(params, "&")
}
