package products

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/pkg/logger"
	pkgredis "github.com/krestenlaust/micro-stregsystemet/pkg/redis"
)

// missMarker caches "no such alias" so typos do not reach the database on
// every submit.
const missMarker = "0"

type aliasSource interface {
	LookupNames(ctx context.Context, names []string) (map[string]int64, error)
}

// CachedAliasLookup fronts alias lookups with a redis read-through cache.
// Cache failures degrade to the database.
type CachedAliasLookup struct {
	source aliasSource
	cache  pkgredis.AliasCache
	ttl    time.Duration
	logg   *logger.Logger
}

func NewCachedAliasLookup(source aliasSource, cache pkgredis.AliasCache, ttl time.Duration, logg *logger.Logger) (*CachedAliasLookup, error) {
	if source == nil {
		return nil, errors.New("alias source required")
	}
	if cache == nil {
		return nil, errors.New("alias cache required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &CachedAliasLookup{source: source, cache: cache, ttl: ttl, logg: logg}, nil
}

func (c *CachedAliasLookup) LookupNames(ctx context.Context, names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	if len(names) == 0 {
		return out, nil
	}

	cached, err := c.cache.GetAliases(ctx, names)
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "alias cache read failed")
		cached = nil
	}

	var missing []string
	for _, name := range names {
		raw, ok := cached[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			out[name] = id
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	found, err := c.source.LookupNames(ctx, missing)
	if err != nil {
		return nil, err
	}

	fill := make(map[string]string, len(missing))
	for _, name := range missing {
		if id, ok := found[name]; ok {
			out[name] = id
			fill[name] = strconv.FormatInt(id, 10)
			continue
		}
		fill[name] = missMarker
	}
	if err := c.cache.SetAliases(ctx, fill, c.ttl); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "alias cache write failed")
	}
	return out, nil
}
