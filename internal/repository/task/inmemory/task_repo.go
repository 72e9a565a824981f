package inmemory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
)

// TaskStorage хранит копии задач, наружу тоже отдаются копии
type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	mtx     *sync.RWMutex
	ids     []uuid.UUID
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[taskToCreate.ID]; ok {
		return repo.ErrAlreadyExists
	}

	s.storage[taskToCreate.ID] = clone(taskToCreate)
	s.ids = append(s.ids, taskToCreate.ID)
	return nil
}

func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[taskToUpdate.ID]
	if !ok {
		return repo.ErrNotFound
	}

	updated := clone(taskToUpdate)
	updated.OwnerID = existed.OwnerID
	updated.CreatedAt = existed.CreatedAt
	s.storage[taskToUpdate.ID] = updated

	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return clone(taskToGet), nil
}

func (s *TaskStorage) Delete(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}

	delete(s.storage, id)
	s.ids = slices.DeleteFunc(s.ids, func(val uuid.UUID) bool {
		return val == id
	})
	return nil
}

// GetAll отдаёт задачи в порядке добавления
func (s *TaskStorage) GetAll(ctx context.Context) ([]*task.Task, error) {
	return s.collect(func(*task.Task) bool { return true }), nil
}

// Search повторяет usp_search_tasks: подстрока названия без учёта регистра, пустые фильтры игнорируются
func (s *TaskStorage) Search(ctx context.Context, filter task.SearchFilter) ([]*task.Task, error) {
	title := strings.ToLower(filter.Title)

	res := s.collect(func(t *task.Task) bool {
		if title != "" && !strings.Contains(strings.ToLower(t.Title), title) {
			return false
		}
		if filter.Status != nil && t.Status != *filter.Status {
			return false
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			return false
		}
		return filter.OwnerID == "" || t.OwnerID == filter.OwnerID
	})
	sortByCreated(res)
	return res, nil
}

// получение задач с определённым статусом, не админ видит только свои
func (s *TaskStorage) GetByStatus(ctx context.Context, status task.Status, userID string, isAdmin bool) ([]*task.Task, error) {
	res := s.collect(func(t *task.Task) bool {
		return t.Status == status && (isAdmin || t.OwnerID == userID)
	})
	sortByCreated(res)
	return res, nil
}

// GetDueBetween: срок в полуинтервале [from, to), пустой ownerID - без фильтра по владельцу
func (s *TaskStorage) GetDueBetween(ctx context.Context, from, to time.Time, ownerID string) ([]*task.Task, error) {
	res := s.collect(func(t *task.Task) bool {
		if t.DueDate.Before(from) || !t.DueDate.Before(to) {
			return false
		}
		return ownerID == "" || t.OwnerID == ownerID
	})
	slices.SortStableFunc(res, func(a, b *task.Task) int {
		return a.DueDate.Compare(b.DueDate)
	})
	return res, nil
}

func (s *TaskStorage) CountByOwner(ctx context.Context) ([]task.OwnerCount, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	counts := make(map[string]int)
	for _, t := range s.storage {
		counts[t.OwnerID]++
	}

	res := make([]task.OwnerCount, 0, len(counts))
	for owner, count := range counts {
		res = append(res, task.OwnerCount{OwnerID: owner, TaskCount: count})
	}
	slices.SortFunc(res, func(a, b task.OwnerCount) int {
		return cmp.Compare(a.OwnerID, b.OwnerID)
	})
	return res, nil
}

func (s *TaskStorage) collect(match func(*task.Task) bool) []*task.Task {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		t := s.storage[id]
		if match(t) {
			res = append(res, clone(t))
		}
	}
	return res
}

func sortByCreated(tasks []*task.Task) {
	slices.SortStableFunc(tasks, func(a, b *task.Task) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

func clone(t *task.Task) *task.Task {
	c := *t
	return &c
}
