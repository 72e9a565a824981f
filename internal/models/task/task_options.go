package task

import (
	"time"
)

// TaskOption меняет изменяемые поля задачи, nil-опции пропускаются
type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	return func(task *Task) {
		task.Title = title
	}
}

func WithDescription(description string) TaskOption {
	return func(task *Task) {
		task.Description = description
	}
}

func WithStatus(status Status) TaskOption {
	if !status.Valid() {
		return nil
	}
	return func(task *Task) {
		task.Status = status
	}
}

func WithPriority(priority Priority) TaskOption {
	if !priority.Valid() {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithDueDate(dueDate time.Time) TaskOption {
	if dueDate.IsZero() {
		return nil
	}
	return func(task *Task) {
		task.DueDate = dueDate.UTC()
	}
}

func Apply(t *Task, options ...TaskOption) {
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
}
