// Package models defines the in-memory entities that flow through a todox export.
//
// The package contains two categories of types:
//
// 1. Export pipeline values, built once by the fetcher and never mutated:
//   - [Task] : one remote task with derived Todoist priority and subtask weight
//   - [TaskList] / [TaskGroup] : a remote list and its tasks in remote order
//   - [Recurrence] / [RecurrencePattern] : repeating schedule, dispatched through [PatternKind]
//   - [FileRecord] : one exported file, optionally a numbered part of a chunked list
//
// 2. Persistent entities:
//   - [ExportRun] : metadata for one export, stored by the history repository
package models
