package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"taskManager/internal/auth"
	"taskManager/internal/cache"
	"taskManager/internal/config"
	"taskManager/internal/handlers"
	"taskManager/internal/logger"
	"taskManager/internal/repository/task/inmemory"
	"taskManager/internal/repository/task/postgres"
	"taskManager/internal/service"
	"taskManager/internal/worker"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type App struct {
	config     *config.Config
	server     *http.Server
	router     chi.Router
	repository service.TaskRepository
	service    *service.TaskService
	cache      *cache.TTLCache
	janitor    *worker.CacheJanitor
	directory  auth.Directory
	shutdowns  []func() // функции для graceful shutdown, выполняются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initRepository(ctx); err != nil {
		return err
	}

	a.cache = cache.NewTTLCache(a.config.SlidingExpiration())
	a.service = service.NewTaskService(a.repository, a.cache, a.config.SlidingExpiration())
	a.janitor = worker.NewCacheJanitor(a.cache, &a.config.Cache.JanitorInterval)

	directory, err := auth.NewJWTDirectory(a.config.Auth.JWTSecret,
		auth.WithIssuer(a.config.Auth.Issuer),
		auth.WithAudience(a.config.Auth.Audience))
	if err != nil {
		return fmt.Errorf("инициализация аутентификации: %w", err)
	}
	a.directory = directory

	a.router = NewRouter(RouterConfig{
		Handler:        handlers.NewTaskHandler(a.service),
		Directory:      a.directory,
		RequestTimeout: a.config.Server.RequestTimeout,
		RateLimitRPM:   a.config.Server.RateLimitRPM,
		CORSOrigins:    a.config.Server.CORSOrigins,
	})

	a.server = &http.Server{
		Addr:    a.config.GetServerAddr(),
		Handler: a.router,
	}

	logger.Info("App: Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.Duration("sliding_expiration", a.config.SlidingExpiration()))
	return nil
}

func (a *App) initRepository(ctx context.Context) error {
	switch a.config.Repository.Type {
	case config.RepositoryPostgres:
		storage, err := postgres.New(ctx, a.config.Database.URL, postgres.PoolConfig{
			MaxConns:        a.config.Database.MaxConnections,
			MinConns:        a.config.Database.MinConnections,
			MaxConnIdleTime: a.config.Database.IdleTimeout,
		})
		if err != nil {
			return fmt.Errorf("подключение к postgres: %w", err)
		}
		a.repository = storage
		a.shutdowns = append(a.shutdowns, storage.Close)
	default:
		a.repository = inmemory.NewTaskStorage()
	}
	return nil
}

// Run блокируется до отмены ctx или падения сервера
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.janitor.Start(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP: Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("App: Получен сигнал остановки")
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("http сервер: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer stop()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP: Ошибка остановки сервера", err)
	}

	cancel()
	wg.Wait()
	a.Shutdown()

	return runErr
}

func (a *App) Shutdown() {
	for _, fn := range slices.Backward(a.shutdowns) {
		fn()
	}
	a.shutdowns = nil
}

func (a *App) Handler() http.Handler {
	return a.router
}
