package service

import (
	"fmt"
	"strconv"
	"time"

	"taskManager/internal/access"
	"taskManager/internal/models/task"

	"github.com/google/uuid"
)

const (
	allTasksKey       = "GetAllTasks"
	userTaskCountsKey = "GetUserTaskCounts"
)

func taskByIDKey(id uuid.UUID) string {
	return "GetTaskById_" + id.String()
}

// searchKey: невалидный статус уже превращён в nil, поэтому ключ совпадает с поиском без фильтра
func searchKey(filter task.SearchFilter, scope access.Scope) string {
	status, priority := "", ""
	if filter.Status != nil {
		status = filter.Status.String()
	}
	if filter.Priority != nil {
		priority = filter.Priority.String()
	}
	return fmt.Sprintf("SearchTasks_%s_%s_%s_%s", filter.Title, status, priority, scope.Key())
}

func tasksByStatusKey(status task.Status, caller access.Caller) string {
	return fmt.Sprintf("GetTasksByStatus_%s_%s_%s", status, caller.ID, strconv.FormatBool(caller.IsAdmin))
}

func dueTodayKey(day time.Time, scope access.Scope) string {
	return fmt.Sprintf("GetTasksDueToday_%s_%s", day.Format(time.DateOnly), scope.Key())
}
