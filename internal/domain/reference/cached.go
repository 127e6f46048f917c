package reference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lmsynth/lmsynth/internal/platform/cache"
)

const keyPrefix = "ref:v1:"

// notFoundMarker is cached for lookups that returned ErrNotFound.
var notFoundMarker = []byte("!notfound")

// CachedProvider is a read-through cache in front of a Provider. Cache
// failures are logged and the inner provider is used directly.
type CachedProvider struct {
	inner  Provider
	store  cache.Store
	ttl    time.Duration
	logger zerolog.Logger
}

var _ ProfileProvider = (*CachedProvider)(nil)

func NewCachedProvider(inner Provider, store cache.Store, ttl time.Duration, logger zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "reference_cache").Logger(),
	}
}

// FlushCache drops every cached reference lookup, including negative
// entries. Call it after the reference tables are replaced.
func FlushCache(ctx context.Context, store cache.Store) (int, error) {
	n, err := store.DeletePrefix(ctx, keyPrefix)
	if err != nil {
		return n, fmt.Errorf("flush reference cache: %w", err)
	}
	return n, nil
}

func readThrough[T any](ctx context.Context, p *CachedProvider, key string, load func() (T, error)) (T, error) {
	var zero T
	key = keyPrefix + key

	data, err := p.store.Get(ctx, key)
	switch {
	case err == nil:
		if string(data) == string(notFoundMarker) {
			return zero, ErrNotFound
		}
		var v T
		if jerr := json.Unmarshal(data, &v); jerr == nil {
			return v, nil
		}
		p.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	case !errors.Is(err, cache.ErrMiss):
		p.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	v, err := load()
	if errors.Is(err, ErrNotFound) {
		p.put(ctx, key, notFoundMarker)
		return zero, err
	}
	if err != nil {
		return zero, err
	}
	if data, jerr := json.Marshal(v); jerr == nil {
		p.put(ctx, key, data)
	}
	return v, nil
}

func (p *CachedProvider) put(ctx context.Context, key string, data []byte) {
	if err := p.store.Set(ctx, key, data, p.ttl); err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (p *CachedProvider) Site(ctx context.Context, siteID int) (*Site, error) {
	return readThrough(ctx, p, fmt.Sprintf("site:%d", siteID), func() (*Site, error) {
		return p.inner.Site(ctx, siteID)
	})
}

func (p *CachedProvider) Baseline(ctx context.Context, siteID, programID, year int) (*ClinicalBaseline, error) {
	return readThrough(ctx, p, fmt.Sprintf("baseline:%d:%d:%d", siteID, programID, year), func() (*ClinicalBaseline, error) {
		return p.inner.Baseline(ctx, siteID, programID, year)
	})
}

func (p *CachedProvider) BaselineAdmissions(ctx context.Context, siteID, programID, year int) (int, error) {
	return readThrough(ctx, p, fmt.Sprintf("admissions:%d:%d:%d", siteID, programID, year), func() (int, error) {
		return p.inner.BaselineAdmissions(ctx, siteID, programID, year)
	})
}

func (p *CachedProvider) StaffedBeds(ctx context.Context, siteID, programID int, scheduleCode string) (int, error) {
	return readThrough(ctx, p, fmt.Sprintf("beds:%d:%d:%s", siteID, programID, scheduleCode), func() (int, error) {
		return p.inner.StaffedBeds(ctx, siteID, programID, scheduleCode)
	})
}

func (p *CachedProvider) SeasonalityMultiplier(ctx context.Context, siteID, programID, month int) (float64, error) {
	profile, err := p.SeasonalityProfile(ctx, siteID, programID)
	if err != nil {
		return 0, err
	}
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("month %d out of range", month)
	}
	return profile[month-1], nil
}

func (p *CachedProvider) SeasonalityProfile(ctx context.Context, siteID, programID int) ([12]float64, error) {
	return readThrough(ctx, p, fmt.Sprintf("season:%d:%d", siteID, programID), func() ([12]float64, error) {
		return Profile(ctx, p.inner, siteID, programID)
	})
}

func (p *CachedProvider) StaffingFactor(ctx context.Context, programID int, subprogramID *int) (*StaffingFactor, error) {
	sub := "-"
	if subprogramID != nil {
		sub = fmt.Sprint(*subprogramID)
	}
	// A nil factor round-trips through JSON as null.
	return readThrough(ctx, p, fmt.Sprintf("staffing:%d:%s", programID, sub), func() (*StaffingFactor, error) {
		return p.inner.StaffingFactor(ctx, programID, subprogramID)
	})
}
