package cache

import (
	"fmt"
	"time"

	"taskManager/internal/logger"

	"go.uber.org/zap"
)

type guarded struct {
	next Cache
}

// Guarded превращает падения кэша в промахи, запрос при этом уходит в хранилище
func Guarded(next Cache) Cache {
	if next == nil {
		return Nop{}
	}
	return &guarded{next: next}
}

func (g *guarded) Get(key string) (value any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logCacheFailure("get", key, r)
			value, ok = nil, false
		}
	}()
	return g.next.Get(key)
}

func (g *guarded) Set(key string, value any, ttl time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			logCacheFailure("set", key, r)
		}
	}()
	g.next.Set(key, value, ttl)
}

func (g *guarded) Invalidate(key string) {
	defer func() {
		if r := recover(); r != nil {
			logCacheFailure("invalidate", key, r)
		}
	}()
	g.next.Invalidate(key)
}

func logCacheFailure(op, key string, r any) {
	logger.Warn("Cache: Кэш недоступен, обращаемся к хранилищу",
		zap.String("operation", op),
		zap.String("key", key),
		zap.String("panic", fmt.Sprint(r)))
}
