package service

import "time"

// Option настраивает TaskService при создании
type Option func(*TaskService)

// WithClock подменяет источник текущего времени, нужен в тестах для UpdatedAt и "задач на сегодня"
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLoadTimeout ограничивает загрузку из хранилища при промахе кэша
func WithLoadTimeout(timeout time.Duration) Option {
	return func(s *TaskService) {
		if timeout > 0 {
			s.loadTimeout = timeout
		}
	}
}
