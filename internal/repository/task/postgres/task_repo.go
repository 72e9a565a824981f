package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	taskColumns = `id, title, description, status, priority, due_date, created_at, updated_at, owner_id`

	slowQuery = time.Millisecond * 100

	uniqueViolation = "23505"
)

type Storage struct {
	pool *pgxpool.Pool
}

// PoolConfig: нулевые поля заменяются значениями по умолчанию
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

func New(ctx context.Context, connString string, poolCfg PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if poolCfg.MaxConns > 0 {
		config.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		config.MinConns = poolCfg.MinConns
	}
	if poolCfg.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = poolCfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL",
		zap.Int32("max_conns", config.MaxConns),
		zap.Int32("min_conns", config.MinConns))
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	query := `INSERT INTO tasks
				(id, title, description, status, priority, due_date, created_at, updated_at, owner_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		taskToCreate.ID,
		taskToCreate.Title,
		taskToCreate.Description,
		int16(taskToCreate.Status),
		int16(taskToCreate.Priority),
		taskToCreate.DueDate,
		taskToCreate.CreatedAt,
		taskToCreate.UpdatedAt,
		taskToCreate.OwnerID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repo.ErrAlreadyExists
		}
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}

	warnIfSlow(start)
	return nil
}

// Update не трогает owner_id и created_at
func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				status = $3,
				priority = $4,
				due_date = $5,
				updated_at = GREATEST($6, created_at)
			WHERE id = $7`

	tag, err := s.pool.Exec(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		int16(taskToUpdate.Status),
		int16(taskToUpdate.Priority),
		taskToUpdate.DueDate,
		taskToUpdate.UpdatedAt,
		taskToUpdate.ID,
	)
	if err != nil {
		logger.Error("Repository: Не удалось обновить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("обновление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	warnIfSlow(start)
	return nil
}

func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("удаление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	warnIfSlow(start)
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	warnIfSlow(start)
	return t, nil
}

func (s *Storage) GetAll(ctx context.Context) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at, id`
	return s.queryTasks(ctx, query)
}

func (s *Storage) Search(ctx context.Context, filter task.SearchFilter) ([]*task.Task, error) {
	var status, priority *int16
	if filter.Status != nil {
		v := int16(*filter.Status)
		status = &v
	}
	if filter.Priority != nil {
		v := int16(*filter.Priority)
		priority = &v
	}

	query := `SELECT ` + taskColumns + `
				FROM usp_search_tasks($1::text, $2::smallint, $3::smallint, $4::text)`
	return s.queryTasks(ctx, query, filter.Title, status, priority, filter.OwnerID)
}

func (s *Storage) GetByStatus(ctx context.Context, status task.Status, userID string, isAdmin bool) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + `
				FROM usp_get_tasks_by_status($1::smallint, $2::text, $3::boolean)`
	return s.queryTasks(ctx, query, int16(status), userID, isAdmin)
}

func (s *Storage) GetDueBetween(ctx context.Context, from, to time.Time, ownerID string) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + `
				FROM usp_get_tasks_due_today($1::timestamptz, $2::timestamptz, $3::text)`
	return s.queryTasks(ctx, query, from, to, ownerID)
}

func (s *Storage) CountByOwner(ctx context.Context) ([]task.OwnerCount, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx, `SELECT owner_id, task_count FROM usp_get_user_task_counts()`)
	if err != nil {
		logger.Error("Repository: Не удалось посчитать задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("подсчёт задач: %w", err)
	}
	defer rows.Close()

	counts := []task.OwnerCount{}
	for rows.Next() {
		var (
			owner string
			count int64
		)
		if err := rows.Scan(&owner, &count); err != nil {
			logger.Error("Repository: Ошибка сканирования строки", err)
			return nil, fmt.Errorf("сканирование строки: %w", err)
		}
		counts = append(counts, task.OwnerCount{OwnerID: owner, TaskCount: int(count)})
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnIfSlow(start)
	return counts, nil
}

func (s *Storage) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования задачи", err)
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	if time.Since(start) > slowQuery+time.Millisecond*time.Duration(len(tasks)) {
		logger.Warn("Repository: Медленный запрос",
			zap.Duration("ms", time.Since(start)),
			zap.Int("rows", len(tasks)))
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t        task.Task
		status   int16
		priority int16
	)
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&status,
		&priority,
		&t.DueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.OwnerID,
	)
	if err != nil {
		return nil, err
	}

	t.Status = task.Status(status)
	t.Priority = task.Priority(priority)
	t.DueDate = t.DueDate.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func warnIfSlow(start time.Time) {
	if time.Since(start) > slowQuery {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
}
