// Package tasks retrieves Microsoft To Do data and drives exports with progress reporting.
//
// # Fetching
//
// [TaskFetcher] walks Graph in a fixed order: lists (system lists dropped), then each list's
// tasks, then each task's checklist items. Every collection is paged by following
// "@odata.nextLink" to exhaustion. The result is one [models.TaskGroup] per list, keeping
// remote order.
//
// Failure policy:
//   - authentication and rate-limit errors abort the whole fetch
//   - a 404 on a checklist is reported as a failed task and the task keeps an empty checklist
//   - anything else aborts
//
// # Progress Reporting
//
// Fetch events go to a [Reporter]. [ProgressReporter] keeps counters and prints a summary
// for the CLI. [NopReporter] is used for HTTP requests.
//
// # Export Runs
//
// [Engine] ties a fetcher to a [formatter.Exporter]. The optional [RunRecorder] stores run
// metadata (repositories.ExportRunRepository); recording errors are logged and ignored.
package tasks
