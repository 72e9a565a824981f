package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskManager/internal/app"
	"taskManager/internal/auth"
	"taskManager/internal/config"
	"taskManager/internal/logger"
	"taskManager/internal/repository/task/postgres"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "tasks",
		Short:         "Многопользовательский трекер задач",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "путь к файлу конфигурации")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(tokenCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запуск HTTP сервера",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application := app.New(cfg)
			if err := application.Init(ctx); err != nil {
				application.Shutdown()
				return err
			}
			return application.Run(ctx)
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Миграции базы данных",
	}

	for _, command := range []string{"up", "down", "status"} {
		cmd.AddCommand(&cobra.Command{
			Use:   command,
			Short: "goose " + command,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(*configPath)
				if err != nil {
					return err
				}
				if cfg.Database.URL == "" {
					return fmt.Errorf("database.url не задан")
				}
				if err := logger.Init(cfg.Logging.Development); err != nil {
					return err
				}
				defer logger.Sync()

				return postgres.Migrate(cmd.Context(), cfg.Database.URL, command)
			},
		})
	}

	return cmd
}

// tokenCmd выпускает токен для локальной отладки API
func tokenCmd(configPath *string) *cobra.Command {
	var (
		roles string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Выпустить JWT для пользователя",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			directory, err := auth.NewJWTDirectory(cfg.Auth.JWTSecret,
				auth.WithIssuer(cfg.Auth.Issuer),
				auth.WithAudience(cfg.Auth.Audience))
			if err != nil {
				return err
			}

			var roleList []string
			if roles != "" {
				roleList = strings.Split(roles, ",")
			}

			token, err := directory.Issue(args[0], roleList, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&roles, "roles", "", "роли через запятую, например Admin")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "время жизни токена")

	return cmd
}
