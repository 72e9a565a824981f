package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"taskManager/internal/models/task"
	"taskManager/internal/repository"
	"taskManager/internal/repository/task/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestSuite для интеграционных тестов с PostgreSQL
type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *postgres.Storage
	connString string
	ctx        context.Context
}

var base = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

// SetupSuite запускается один раз перед всеми тестами
func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		// postgres перезапускается после инициализации, сообщение появляется дважды
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	err = postgres.Migrate(s.ctx, s.connString, "up")
	require.NoError(s.T(), err)

	s.storage, err = postgres.New(s.ctx, s.connString, postgres.PoolConfig{MaxConns: 4, MinConns: 1})
	require.NoError(s.T(), err)
}

// TearDownSuite очищает после всех тестов
func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

// SetupTest очищает таблицу перед каждым тестом
func (s *PostgresTestSuite) SetupTest() {
	conn, err := pgx.Connect(s.ctx, s.connString)
	require.NoError(s.T(), err)
	defer conn.Close(s.ctx)

	_, err = conn.Exec(s.ctx, "DELETE FROM tasks")
	require.NoError(s.T(), err)
}

func (s *PostgresTestSuite) newTask(title, owner string, created time.Time) *task.Task {
	return &task.Task{
		ID:          uuid.New(),
		Title:       title,
		Description: "description of " + title,
		Status:      task.StatusPending,
		Priority:    task.PriorityMedium,
		DueDate:     created.Add(24 * time.Hour),
		CreatedAt:   created,
		UpdatedAt:   created,
		OwnerID:     owner,
	}
}

func (s *PostgresTestSuite) seed(tasks ...*task.Task) {
	for _, t := range tasks {
		require.NoError(s.T(), s.storage.Create(s.ctx, t))
	}
}

func titles(tasks []*task.Task) []string {
	res := make([]string, 0, len(tasks))
	for _, t := range tasks {
		res = append(res, t.Title)
	}
	return res
}

func (s *PostgresTestSuite) TestHealthCheck() {
	assert.NoError(s.T(), s.storage.HealthCheck(s.ctx))
}

func (s *PostgresTestSuite) TestCreateAndGetByID() {
	created := s.newTask("Test Task", "user-a", base)
	created.Status = task.StatusInProgress
	created.Priority = task.PriorityHigh
	s.seed(created)

	got, err := s.storage.GetByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), *created, *got)

	err = s.storage.Create(s.ctx, created)
	assert.ErrorIs(s.T(), err, repository.ErrAlreadyExists)
}

func (s *PostgresTestSuite) TestGetByID_NotFound() {
	got, err := s.storage.GetByID(s.ctx, uuid.New())
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
	assert.Nil(s.T(), got)
}

func (s *PostgresTestSuite) TestUpdate() {
	original := s.newTask("before", "user-a", base)
	s.seed(original)

	changed := *original
	changed.Title = "after"
	changed.Status = task.StatusCompleted
	changed.Priority = task.PriorityLow
	changed.OwnerID = "user-b"
	changed.UpdatedAt = base.Add(time.Hour)
	require.NoError(s.T(), s.storage.Update(s.ctx, &changed))

	got, err := s.storage.GetByID(s.ctx, original.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "after", got.Title)
	assert.Equal(s.T(), task.StatusCompleted, got.Status)
	assert.Equal(s.T(), task.PriorityLow, got.Priority)
	assert.Equal(s.T(), base.Add(time.Hour), got.UpdatedAt)
	assert.Equal(s.T(), "user-a", got.OwnerID)
	assert.Equal(s.T(), base, got.CreatedAt)
}

// TestUpdate_ClockBehind: updated_at не может быть раньше created_at
func (s *PostgresTestSuite) TestUpdate_ClockBehind() {
	original := s.newTask("task", "user-a", base)
	s.seed(original)

	changed := *original
	changed.UpdatedAt = base.Add(-time.Hour)
	require.NoError(s.T(), s.storage.Update(s.ctx, &changed))

	got, err := s.storage.GetByID(s.ctx, original.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), base, got.UpdatedAt)
}

func (s *PostgresTestSuite) TestUpdate_NotFound() {
	err := s.storage.Update(s.ctx, s.newTask("ghost", "user-a", base))
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

func (s *PostgresTestSuite) TestDelete() {
	doomed := s.newTask("doomed", "user-a", base)
	s.seed(doomed)

	require.NoError(s.T(), s.storage.Delete(s.ctx, doomed.ID))

	_, err := s.storage.GetByID(s.ctx, doomed.ID)
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)

	err = s.storage.Delete(s.ctx, doomed.ID)
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

func (s *PostgresTestSuite) TestGetAll() {
	all, err := s.storage.GetAll(s.ctx)
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), all)
	assert.Empty(s.T(), all)

	s.seed(
		s.newTask("second", "user-b", base.Add(time.Minute)),
		s.newTask("first", "user-a", base),
	)

	all, err = s.storage.GetAll(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"first", "second"}, titles(all))
}

func (s *PostgresTestSuite) TestSearch() {
	report := s.newTask("Write Report", "user-a", base.Add(2*time.Minute))
	report.Priority = task.PriorityHigh
	review := s.newTask("review report", "user-b", base.Add(time.Minute))
	review.Status = task.StatusInProgress
	groceries := s.newTask("Groceries", "user-a", base)
	s.seed(report, review, groceries)

	inProgress := task.StatusInProgress
	high := task.PriorityHigh

	tests := []struct {
		name     string
		filter   task.SearchFilter
		expected []string
	}{
		{name: "empty filter", filter: task.SearchFilter{}, expected: []string{"Groceries", "review report", "Write Report"}},
		{name: "title ilike", filter: task.SearchFilter{Title: "REPORT"}, expected: []string{"review report", "Write Report"}},
		{name: "status", filter: task.SearchFilter{Status: &inProgress}, expected: []string{"review report"}},
		{name: "priority", filter: task.SearchFilter{Priority: &high}, expected: []string{"Write Report"}},
		{name: "owner", filter: task.SearchFilter{Title: "report", OwnerID: "user-a"}, expected: []string{"Write Report"}},
		{name: "no match", filter: task.SearchFilter{Title: "vacation"}, expected: []string{}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			res, err := s.storage.Search(s.ctx, tt.filter)
			require.NoError(s.T(), err)
			assert.Equal(s.T(), tt.expected, titles(res))
		})
	}
}

func (s *PostgresTestSuite) TestGetByStatus() {
	mine := s.newTask("mine", "user-a", base)
	mine.Status = task.StatusCompleted
	theirs := s.newTask("theirs", "user-b", base.Add(time.Minute))
	theirs.Status = task.StatusCompleted
	s.seed(mine, theirs, s.newTask("pending", "user-a", base))

	res, err := s.storage.GetByStatus(s.ctx, task.StatusCompleted, "user-a", false)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"mine"}, titles(res))

	res, err = s.storage.GetByStatus(s.ctx, task.StatusCompleted, "root", true)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"mine", "theirs"}, titles(res))
}

func (s *PostgresTestSuite) TestGetDueBetween() {
	from := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	atStart := s.newTask("at start", "user-a", base)
	atStart.DueDate = from
	evening := s.newTask("evening", "user-a", base)
	evening.DueDate = from.Add(20 * time.Hour)
	atEnd := s.newTask("at end", "user-a", base)
	atEnd.DueDate = to
	foreign := s.newTask("foreign", "user-b", base)
	foreign.DueDate = from.Add(time.Hour)
	s.seed(evening, atEnd, atStart, foreign)

	res, err := s.storage.GetDueBetween(s.ctx, from, to, "user-a")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"at start", "evening"}, titles(res))

	res, err = s.storage.GetDueBetween(s.ctx, from, to, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"at start", "foreign", "evening"}, titles(res))
}

func (s *PostgresTestSuite) TestCountByOwner() {
	counts, err := s.storage.CountByOwner(s.ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), counts)

	s.seed(
		s.newTask("1", "user-b", base),
		s.newTask("2", "user-a", base),
		s.newTask("3", "user-b", base),
	)

	counts, err = s.storage.CountByOwner(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []task.OwnerCount{
		{OwnerID: "user-a", TaskCount: 1},
		{OwnerID: "user-b", TaskCount: 2},
	}, counts)
}

// TestMigrate_Status проверяет, что повторный запуск миграций безопасен
func (s *PostgresTestSuite) TestMigrate_Status() {
	assert.NoError(s.T(), postgres.Migrate(s.ctx, s.connString, "up"))
	assert.NoError(s.T(), postgres.Migrate(s.ctx, s.connString, "status"))
	assert.Error(s.T(), postgres.Migrate(s.ctx, s.connString, "sideways"))
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропуск интеграционных тестов в режиме short")
	}
	suite.Run(t, new(PostgresTestSuite))
}
