package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"taskManager/internal/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	logger.Info("Migrations: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (gooseLogger) Fatalf(format string, v ...any) {
	logger.Error("Migrations: "+strings.TrimSpace(fmt.Sprintf(format, v...)), nil)
}

// Migrate выполняет команду goose: up, down или status
func Migrate(ctx context.Context, connString, command string) error {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		logger.Error("Repository: Не удалось открыть соединение для миграций", err)
		return fmt.Errorf("открытие соединения: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("диалект goose: %w", err)
	}

	switch command {
	case "up":
		err = goose.UpContext(ctx, db, migrationsDir)
	case "down":
		err = goose.DownContext(ctx, db, migrationsDir)
	case "status":
		err = goose.StatusContext(ctx, db, migrationsDir)
	default:
		return fmt.Errorf("неизвестная команда миграций %q", command)
	}
	if err != nil {
		logger.Error("Repository: Ошибка миграций", err, zap.String("command", command))
		return fmt.Errorf("миграции %s: %w", command, err)
	}

	logger.Info("Repository: Миграции выполнены", zap.String("command", command))
	return nil
}
