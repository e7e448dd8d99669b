// Package tools implements the deterministic shortcut handlers that answer
// utterances without a model round trip: clock, weather lookup, and a safe
// arithmetic calculator, fronted by a per-tool TTL cache.
package tools

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Default cache TTLs per tool. Time answers go stale quickly; weather
// observations are good for a few minutes.
const (
	DefaultClockTTL   = 30 * time.Second
	DefaultWeatherTTL = 5 * time.Minute

	cacheSize = 256
)

// Cache memoizes tool results keyed by tool name and normalized arguments.
// Each tool gets its own expiring LRU so TTLs can differ per tool. The zero
// value is not usable; construct with NewCache.
type Cache struct {
	lrus map[string]*expirable.LRU[string, string]
}

// NewCache builds a cache with one expiring LRU per tool. Tools absent from
// ttls are simply not cached.
func NewCache(ttls map[string]time.Duration) *Cache {
	c := &Cache{lrus: make(map[string]*expirable.LRU[string, string], len(ttls))}
	for tool, ttl := range ttls {
		if ttl <= 0 {
			continue
		}
		c.lrus[tool] = expirable.NewLRU[string, string](cacheSize, nil, ttl)
	}
	return c
}

// DefaultTTLs returns the standard per-tool TTL table.
func DefaultTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		ToolClock:   DefaultClockTTL,
		ToolWeather: DefaultWeatherTTL,
	}
}

// Get returns the cached result for a tool invocation, if still fresh.
func (c *Cache) Get(tool, args string) (string, bool) {
	if c == nil {
		return "", false
	}
	lru, ok := c.lrus[tool]
	if !ok {
		return "", false
	}
	return lru.Get(cacheKey(args))
}

// Put stores a tool result under its normalized argument key.
func (c *Cache) Put(tool, args, result string) {
	if c == nil {
		return
	}
	if lru, ok := c.lrus[tool]; ok {
		lru.Add(cacheKey(args), result)
	}
}

func cacheKey(args string) string {
	return strings.ToLower(strings.Join(strings.Fields(args), " "))
}
