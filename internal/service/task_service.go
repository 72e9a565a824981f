package service

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"taskManager/internal/access"
	"taskManager/internal/cache"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	rep "taskManager/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// здесь происходит проверка доступа и работа с кэшем, хранилище ничего не знает о пользователях

const (
	taskResource = "задача"

	defaultLoadTimeout = 30 * time.Second
)

type TaskService struct {
	repo  TaskRepository
	cache cache.Cache
	ttl   time.Duration
	group singleflight.Group
	now   func() time.Time

	// loadTimeout ограничивает общую загрузку при промахе, она не зависит от отмены отдельных запросов
	loadTimeout time.Duration
}

// NewTaskService: ttl - скользящее окно для всех записей кэша, c может быть nil
func NewTaskService(repo TaskRepository, c cache.Cache, ttl time.Duration, opts ...Option) *TaskService {
	s := &TaskService{
		repo:  repo,
		cache: cache.Guarded(c),
		ttl:   ttl,
		now:   time.Now,

		loadTimeout: defaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

func (s *TaskService) ListTasks(ctx context.Context, caller access.Caller, query task.ListQuery) ([]*task.Task, error) {
	if query.Page < 1 {
		return nil, NewValidationError("page", "должно быть не меньше 1")
	}
	if query.PageSize < 1 {
		return nil, NewValidationError("pageSize", "должно быть не меньше 1")
	}

	all, err := s.allTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	visible := access.ScopeForRead(caller).Filter(all)
	sortTasks(visible, query.OrderBy)

	return paginate(visible, query.Page, query.PageSize), nil
}

func (s *TaskService) GetTaskByID(ctx context.Context, caller access.Caller, id uuid.UUID) (*task.Task, error) {
	t, err := s.taskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.AuthorizeMutation(t, caller) {
		s.logDenied("get", id, caller)
		return nil, NewNotFound(taskResource, id.String())
	}
	return t, nil
}

func (s *TaskService) CreateTask(ctx context.Context, caller access.Caller, options ...task.TaskOption) (*task.Task, error) {
	if caller.ID == "" {
		return nil, NewValidationError("owner_id", "пустой идентификатор пользователя")
	}

	now := s.timestamp()
	t := &task.Task{
		ID:        uuid.New(),
		Status:    task.StatusPending,
		Priority:  task.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
		OwnerID:   caller.ID,
	}
	task.Apply(t, options...)

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}
	s.cache.Invalidate(allTasksKey)

	logger.Info("Service: Задача создана",
		zap.String("task_id", t.ID.String()),
		zap.String("owner_id", t.OwnerID))

	created := *t
	return &created, nil
}

// UpdateTask заменяет изменяемые поля, владелец и дата создания не меняются
func (s *TaskService) UpdateTask(ctx context.Context, caller access.Caller, id uuid.UUID, options ...task.TaskOption) (*task.Task, error) {
	t, err := s.GetTaskByID(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	ownerID, createdAt := t.OwnerID, t.CreatedAt
	task.Apply(t, options...)
	t.ID, t.OwnerID, t.CreatedAt = id, ownerID, createdAt

	t.UpdatedAt = s.timestamp()
	if t.UpdatedAt.Before(t.CreatedAt) {
		t.UpdatedAt = t.CreatedAt
	}

	if err := s.repo.Update(ctx, t); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			s.cache.Invalidate(taskByIDKey(id))
			return nil, NewNotFound(taskResource, id.String())
		}
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}
	s.invalidateTask(id)

	return t, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, caller access.Caller, id uuid.UUID) error {
	if _, err := s.GetTaskByID(ctx, caller, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			s.cache.Invalidate(taskByIDKey(id))
			return NewNotFound(taskResource, id.String())
		}
		return fmt.Errorf("удаление задачи: %w", err)
	}
	s.invalidateTask(id)

	logger.Info("Service: Задача удалена", zap.String("task_id", id.String()))
	return nil
}

// SearchTasks: нераспознанные статус и приоритет означают "без фильтра", это не ошибка
func (s *TaskService) SearchTasks(ctx context.Context, caller access.Caller, title, status, priority string) ([]*task.Task, error) {
	scope := access.ScopeForRead(caller)
	filter := task.SearchFilter{
		Title:   title,
		OwnerID: scope.Owner(),
	}
	if st, ok := task.ParseStatus(status); ok {
		filter.Status = &st
	}
	if pr, ok := task.ParsePriority(priority); ok {
		filter.Priority = &pr
	}

	tasks, err := s.cachedList(ctx, searchKey(filter, scope), func(ctx context.Context) ([]*task.Task, error) {
		return s.repo.Search(ctx, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("поиск задач: %w", err)
	}
	return scope.Filter(tasks), nil
}

func (s *TaskService) GetTasksByStatus(ctx context.Context, caller access.Caller, rawStatus string) ([]*task.Task, error) {
	status, ok := task.ParseStatus(rawStatus)
	if !ok {
		return nil, NewValidationError("status", fmt.Sprintf("неизвестный статус %q", rawStatus))
	}

	tasks, err := s.cachedList(ctx, tasksByStatusKey(status, caller), func(ctx context.Context) ([]*task.Task, error) {
		return s.repo.GetByStatus(ctx, status, caller.ID, caller.IsAdmin)
	})
	if err != nil {
		return nil, fmt.Errorf("получение задач по статусу: %w", err)
	}
	return access.ScopeForRead(caller).Filter(tasks), nil
}

// GetTasksDueToday возвращает задачи со сроком в текущих сутках по UTC
func (s *TaskService) GetTasksDueToday(ctx context.Context, caller access.Caller) ([]*task.Task, error) {
	now := s.now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	scope := access.ScopeForRead(caller)

	tasks, err := s.cachedList(ctx, dueTodayKey(from, scope), func(ctx context.Context) ([]*task.Task, error) {
		return s.repo.GetDueBetween(ctx, from, to, scope.Owner())
	})
	if err != nil {
		return nil, fmt.Errorf("получение задач на сегодня: %w", err)
	}
	return scope.Filter(tasks), nil
}

func (s *TaskService) GetUserTaskCounts(ctx context.Context, caller access.Caller) ([]task.OwnerCount, error) {
	if !caller.IsAdmin {
		logger.Warn("Service: Попытка получить статистику без прав администратора",
			zap.String("caller_id", caller.ID))
		return nil, NewForbidden("GetUserTaskCounts")
	}

	counts, err := remember(ctx, s, userTaskCountsKey, func(ctx context.Context) ([]task.OwnerCount, error) {
		return s.repo.CountByOwner(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("подсчёт задач пользователей: %w", err)
	}
	return slices.Clone(counts), nil
}

func (s *TaskService) allTasks(ctx context.Context) ([]*task.Task, error) {
	return s.cachedList(ctx, allTasksKey, s.repo.GetAll)
}

// taskByID кэширует только найденные задачи
func (s *TaskService) taskByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	snapshot, err := remember(ctx, s, taskByIDKey(id), func(ctx context.Context) (task.Task, error) {
		t, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return task.Task{}, err
		}
		return *t, nil
	})
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
			return nil, NewNotFound(taskResource, id.String())
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return &snapshot, nil
}

func (s *TaskService) cachedList(ctx context.Context, key string, load func(context.Context) ([]*task.Task, error)) ([]*task.Task, error) {
	snapshot, err := remember(ctx, s, key, func(ctx context.Context) ([]task.Task, error) {
		tasks, err := load(ctx)
		if err != nil {
			return nil, err
		}
		res := make([]task.Task, 0, len(tasks))
		for _, t := range tasks {
			if t != nil {
				res = append(res, *t)
			}
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	tasks := make([]*task.Task, len(snapshot))
	for i := range snapshot {
		t := snapshot[i]
		tasks[i] = &t
	}
	return tasks, nil
}

// remember читает ключ из кэша, а при промахе загружает значение один раз на все параллельные запросы.
// В кэш кладутся только значения, поэтому изменение результата не портит запись.
// Загрузка идёт с контекстом без отмены: отменённый запрос перестаёт ждать,
// но остальные запросы с тем же ключом получают результат.
func remember[T any](ctx context.Context, s *TaskService, key string, load func(context.Context) (T, error)) (T, error) {
	if cached, ok := s.cache.Get(key); ok {
		if value, ok := cached.(T); ok {
			return value, nil
		}
		s.cache.Invalidate(key)
	}

	results := s.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()

		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, value, s.ttl)
		return value, nil
	})

	var zero T
	select {
	case res := <-results:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		logger.Debug("Service: Запрос отменён во время загрузки", zap.String("key", key))
		return zero, ctx.Err()
	}
}

func (s *TaskService) invalidateTask(id uuid.UUID) {
	s.cache.Invalidate(allTasksKey)
	s.cache.Invalidate(taskByIDKey(id))
}

// timestamp обрезан до микросекунд, это точность timestamptz
func (s *TaskService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *TaskService) logDenied(op string, id uuid.UUID, caller access.Caller) {
	logger.Warn("Service: Доступ к чужой задаче",
		zap.String("operation", op),
		zap.String("target_id", id.String()),
		zap.String("caller_id", caller.ID))
}

func sortTasks(tasks []*task.Task, orderBy task.OrderBy) {
	slices.SortStableFunc(tasks, func(a, b *task.Task) int {
		var c int
		switch orderBy {
		case task.OrderByPriority:
			c = cmp.Compare(a.Priority, b.Priority)
		case task.OrderByDueDate:
			c = a.DueDate.Compare(b.DueDate)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
}

// paginate возвращает пустой срез, если страница за пределами результата
func paginate(tasks []*task.Task, page, pageSize int) []*task.Task {
	// (page-1)*pageSize может переполнить int
	if page-1 > len(tasks)/pageSize {
		return []*task.Task{}
	}
	start := (page - 1) * pageSize
	if start >= len(tasks) {
		return []*task.Task{}
	}
	end := start + min(pageSize, len(tasks)-start)
	return tasks[start:end]
}
