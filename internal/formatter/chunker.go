package formatter

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/models"
)

// ChunkTasks splits tasks into consecutive chunks whose weight ([models.Task.TotalTaskCount])
// stays within limit. A task is never separated from its subtasks.
//
// Task order is preserved. A task heavier than limit is placed alone in its own chunk.
func ChunkTasks(tasks []models.Task, limit int) [][]models.Task {
	var (
		chunks  [][]models.Task
		current []models.Task
		weight  int
	)

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, current)
		}
		current = nil
		weight = 0
	}

	for _, task := range tasks {
		size := task.TotalTaskCount()

		if size > limit {
			log.Warn("task exceeds per-file limit, exporting it alone",
				"title", task.Title, "subtasks", task.SubtaskCount(), "limit", limit)
			flush()
			chunks = append(chunks, []models.Task{task})
			continue
		}

		if weight+size > limit && len(current) > 0 {
			flush()
		}

		current = append(current, task)
		weight += size
	}
	flush()

	return chunks
}

// chunkWeight sums TotalTaskCount over a chunk.
func chunkWeight(tasks []models.Task) int {
	return models.TaskGroup{Tasks: tasks}.Weight()
}
