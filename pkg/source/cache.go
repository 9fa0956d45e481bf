package source

import (
	"context"
	"strings"
	"time"

	"github.com/bluele/gcache"
)

// cached remembers successful fetches for a while, so a name whose slot was
// recycled can be re-allocated without another round trip. Failures are
// never cached.
type cached struct {
	src   Source
	cache gcache.Cache
}

// Cached wraps src with an in-memory LRU of at most size entries, each
// expiring after ttl. A size of zero disables caching and returns src.
func Cached(src Source, size int, ttl time.Duration) Source {
	if size <= 0 {
		return src
	}

	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &cached{
		src:   src,
		cache: b.Build(),
	}
}

func (c *cached) Fetch(ctx context.Context, labels []string) (string, error) {
	key := strings.Join(labels, ".")

	if v, err := c.cache.Get(key); err == nil {
		return v.(string), nil
	}

	text, err := c.src.Fetch(ctx, labels)
	if err != nil {
		return "", err
	}

	_ = c.cache.Set(key, text)
	return text, nil
}
