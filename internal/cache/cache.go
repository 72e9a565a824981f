// Package cache - кэш в памяти процесса перед хранилищем задач.
//
// Срок жизни скользящий: каждое попадание продлевает запись на её TTL.
// Хранить можно только снимки (значения или свежие копии срезов), а не указатели, которые потом меняются.
package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type Cache interface {
	Get(key string) (any, bool)
	// Set с ttl <= 0 использует окно кэша по умолчанию
	Set(key string, value any, ttl time.Duration)
	// Invalidate для отсутствующего ключа ничего не делает
	Invalidate(key string)
}

type TTLCache struct {
	items *ttlcache.Cache[string, any]
}

var _ Cache = (*TTLCache)(nil)

func NewTTLCache(slidingExpiration time.Duration) *TTLCache {
	return &TTLCache{
		items: ttlcache.New[string, any](
			ttlcache.WithTTL[string, any](slidingExpiration),
		),
	}
}

func (c *TTLCache) Get(key string) (any, bool) {
	item := c.items.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	c.items.Set(key, value, ttl)
}

func (c *TTLCache) Invalidate(key string) {
	c.items.Delete(key)
}

// DeleteExpired удаляет записи, к которым не обращались в течение окна
func (c *TTLCache) DeleteExpired() {
	c.items.DeleteExpired()
}

func (c *TTLCache) Len() int {
	return c.items.Len()
}

// Nop никогда ничего не хранит, используется когда кэш выключен
type Nop struct{}

var _ Cache = Nop{}

func (Nop) Get(string) (any, bool)         { return nil, false }
func (Nop) Set(string, any, time.Duration) {}
func (Nop) Invalidate(string)              {}
