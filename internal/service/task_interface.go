package service

import (
	"context"
	"time"

	"taskManager/internal/models/task"

	"github.com/google/uuid"
)

// TaskRepository - всё, что сервису нужно от хранилища задач.
// GetByID возвращает repository.ErrNotFound, если задачи нет.
type TaskRepository interface {
	HealthCheck(context.Context) error
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	GetAll(context.Context) ([]*task.Task, error)
	Create(context.Context, *task.Task) error
	Update(context.Context, *task.Task) error
	Delete(context.Context, uuid.UUID) error
	Search(context.Context, task.SearchFilter) ([]*task.Task, error)
	GetByStatus(ctx context.Context, status task.Status, userID string, isAdmin bool) ([]*task.Task, error)
	GetDueBetween(ctx context.Context, from, to time.Time, ownerID string) ([]*task.Task, error)
	CountByOwner(context.Context) ([]task.OwnerCount, error)
}
