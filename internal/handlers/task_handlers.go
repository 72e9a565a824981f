package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"taskManager/internal/access"
	"taskManager/internal/auth"
	"taskManager/internal/handlers/dto"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxBodyBytes    = 1 << 20
)

type TaskHandler struct {
	TaskService TaskService
}

func NewTaskHandler(taskService TaskService) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
	}
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Хранилище недоступно", err)
		responseWithJSON(w, http.StatusServiceUnavailable, toPayload("status", "unavailable"))
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("status", "ok"))
}

func (s *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	page, ok := intQueryParam(w, r, "page", defaultPage)
	if !ok {
		return
	}
	pageSize, ok := intQueryParam(w, r, "pageSize", defaultPageSize)
	if !ok {
		return
	}

	tasks, err := s.TaskService.ListTasks(r.Context(), caller, task.ListQuery{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  task.ParseOrderBy(r.URL.Query().Get("orderBy")),
	})
	if err != nil {
		handleServiceError(w, r, err, "list_tasks")
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	t, err := s.TaskService.GetTaskByID(r.Context(), caller, id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}

	logger.Info("HTTP_OUT: Задача получена",
		zap.String("task_id", t.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromTask(t))
}

func (s *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if !decodeAndValidate(w, r, &request) {
		return
	}

	options := []task.TaskOption{
		task.WithTitle(request.Title),
		task.WithDescription(request.Description),
		task.WithDueDate(request.DueDate),
	}
	if status, ok := task.ParseStatus(request.Status); ok {
		options = append(options, task.WithStatus(status))
	}
	if priority, ok := task.ParsePriority(request.Priority); ok {
		options = append(options, task.WithPriority(priority))
	}

	created, err := s.TaskService.CreateTask(r.Context(), caller, options...)
	if err != nil {
		handleServiceError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	w.Header().Set("Location", "/api/tasks/"+created.ID.String())
	writeJSON(w, http.StatusCreated, dto.FromTask(created))
}

func (s *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	var request dto.UpdateTaskRequest
	if !decodeAndValidate(w, r, &request) {
		return
	}

	status, _ := task.ParseStatus(request.Status)
	priority, _ := task.ParsePriority(request.Priority)

	_, err := s.TaskService.UpdateTask(r.Context(), caller, id,
		task.WithTitle(request.Title),
		task.WithDescription(request.Description),
		task.WithStatus(status),
		task.WithPriority(priority),
		task.WithDueDate(request.DueDate),
	)
	if err != nil {
		handleServiceError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

func (s *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	if err := s.TaskService.DeleteTask(r.Context(), caller, id); err != nil {
		handleServiceError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

func (s *TaskHandler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	tasks, err := s.TaskService.SearchTasks(r.Context(), caller,
		query.Get("title"), query.Get("status"), query.Get("priority"))
	if err != nil {
		handleServiceError(w, r, err, "search_tasks")
		return
	}

	logger.Info("HTTP_OUT: Поиск выполнен",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (s *TaskHandler) GetTasksByStatus(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	tasks, err := s.TaskService.GetTasksByStatus(r.Context(), caller, chi.URLParam(r, "status"))
	if err != nil {
		handleServiceError(w, r, err, "tasks_by_status")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (s *TaskHandler) GetTasksDueToday(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	tasks, err := s.TaskService.GetTasksDueToday(r.Context(), caller)
	if err != nil {
		handleServiceError(w, r, err, "tasks_due_today")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (s *TaskHandler) GetUserTaskCounts(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	counts, err := s.TaskService.GetUserTaskCounts(r.Context(), caller)
	if err != nil {
		handleServiceError(w, r, err, "user_task_counts")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromOwnerCounts(counts))
}

func callerOrUnauthorized(w http.ResponseWriter, r *http.Request) (access.Caller, bool) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		logger.Warn("HTTP: Запрос без пользователя",
			zap.String("path", r.URL.Path),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnauthorized, "требуется аутентификация")
		return access.Caller{}, false
	}
	return caller, true
}

func taskIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "не удалось получить id: "+err.Error())
		return uuid.Nil, false
	}

	if id == uuid.Nil {
		logger.Warn("HTTP: Неверное значение id",
			zap.String("error", "nil id"),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "id не может быть пустым")
		return uuid.Nil, false
	}
	return id, true
}

func intQueryParam(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("HTTP: Ошибка получения параметра",
			zap.String("query", name),
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверное значение "+name)
		return 0, false
	}
	return value, true
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, request any) bool {
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		logger.Warn("HTTP: Ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return false
	}

	if err := validate.Struct(request); err != nil {
		details := validationDetails(err)
		logger.Warn("HTTP: Ошибка валидации",
			zap.Any("fields", details),
			zap.String("client_ip", r.RemoteAddr))
		responseWithJSON(w, http.StatusBadRequest,
			toPayload("error", "VALIDATION_ERROR"),
			toPayload("message", "неверные поля запроса"),
			toPayload("details", details),
		)
		return false
	}
	return true
}
