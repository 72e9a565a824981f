package worker

import (
	"context"
	"time"

	"taskManager/internal/logger"

	"go.uber.org/zap"
)

// ExpiringCache - кэш, из которого можно вычистить просроченные записи
type ExpiringCache interface {
	DeleteExpired()
	Len() int
}

// CacheJanitor периодически удаляет записи, к которым не обращались дольше скользящего окна.
// Данные задач он не трогает.
type CacheJanitor struct {
	cache    ExpiringCache
	interval time.Duration
}

func NewCacheJanitor(cache ExpiringCache, interval *time.Duration) *CacheJanitor {
	var intervalToSet time.Duration
	if interval == nil || *interval <= 0 {
		intervalToSet = time.Minute
	} else {
		intervalToSet = *interval
	}

	return &CacheJanitor{
		cache:    cache,
		interval: intervalToSet,
	}
}

// Start блокируется до отмены ctx
func (w *CacheJanitor) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Очистка кэша запущена", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ticker.C:
			w.Sweep()
		case <-ctx.Done():
			logger.Info("Worker: Очистка кэша останавливается")
			return
		}
	}
}

func (w *CacheJanitor) Sweep() {
	start := time.Now()
	before := w.cache.Len()

	w.cache.DeleteExpired()

	logger.Debug("Worker: Завершение очистки кэша",
		zap.Duration("ms", time.Since(start)),
		zap.Int("before", before),
		zap.Int("removed", before-w.cache.Len()))
}
