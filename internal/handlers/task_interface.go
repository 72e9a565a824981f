package handlers

import (
	"context"

	"taskManager/internal/access"
	"taskManager/internal/models/task"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(context.Context) error
	ListTasks(context.Context, access.Caller, task.ListQuery) ([]*task.Task, error)
	GetTaskByID(context.Context, access.Caller, uuid.UUID) (*task.Task, error)
	CreateTask(context.Context, access.Caller, ...task.TaskOption) (*task.Task, error)
	UpdateTask(context.Context, access.Caller, uuid.UUID, ...task.TaskOption) (*task.Task, error)
	DeleteTask(context.Context, access.Caller, uuid.UUID) error
	SearchTasks(ctx context.Context, caller access.Caller, title, status, priority string) ([]*task.Task, error)
	GetTasksByStatus(context.Context, access.Caller, string) ([]*task.Task, error)
	GetTasksDueToday(context.Context, access.Caller) ([]*task.Task, error)
	GetUserTaskCounts(context.Context, access.Caller) ([]task.OwnerCount, error)
}
