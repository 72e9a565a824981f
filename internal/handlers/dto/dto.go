package dto

import (
	"time"

	"taskManager/internal/models/task"

	"github.com/google/uuid"
)

// CreateTaskRequest: статус и приоритет можно не передавать, тогда Pending и Medium
type CreateTaskRequest struct {
	Title       string    `json:"title" validate:"required,max=100"`
	Description string    `json:"description" validate:"required,max=500"`
	Status      string    `json:"status" validate:"omitempty,task_status"`
	Priority    string    `json:"priority" validate:"omitempty,task_priority"`
	DueDate     time.Time `json:"due_date" validate:"required,future"`
}

// UpdateTaskRequest полностью заменяет изменяемые поля задачи
type UpdateTaskRequest struct {
	Title       string    `json:"title" validate:"required,max=100"`
	Description string    `json:"description" validate:"required,max=500"`
	Status      string    `json:"status" validate:"required,task_status"`
	Priority    string    `json:"priority" validate:"required,task_priority"`
	DueDate     time.Time `json:"due_date" validate:"required,future"`
}

type TaskResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	DueDate     time.Time `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	OwnerID     string    `json:"owner_id"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status.String(),
		Priority:    t.Priority.String(),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		OwnerID:     t.OwnerID,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

type OwnerCountResponse struct {
	UserID    string `json:"user_id"`
	TaskCount int    `json:"task_count"`
}

func FromOwnerCounts(counts []task.OwnerCount) []OwnerCountResponse {
	result := make([]OwnerCountResponse, len(counts))
	for i, c := range counts {
		result[i] = OwnerCountResponse{UserID: c.OwnerID, TaskCount: c.TaskCount}
	}
	return result
}
