package seed

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmsynth/lmsynth/internal/domain/reference"
	"github.com/lmsynth/lmsynth/internal/platform/cache"
)

func TestLoader_InvalidateDropsStaleLookups(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "session:abc", []byte("keep"), 0))

	// Populate the cache from an empty dataset so a miss is cached.
	before := cachedFixture(&Dataset{}, store)
	_, err := before.Site(ctx, 1)
	require.ErrorIs(t, err, reference.ErrNotFound)

	// A reseed adds the site; stale negative entries must not hide it.
	d := NewGenerator(smallConfig()).Generate()
	(&Loader{store: store, logger: zerolog.Nop()}).invalidate(ctx)

	after := cachedFixture(d, store)
	site, err := after.Site(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, d.Sites[0].Code, site.Code)

	_, err = store.Get(ctx, "session:abc")
	assert.NoError(t, err, "keys outside the reference namespace survive")
}

func TestLoader_InvalidateWithoutStore(t *testing.T) {
	assert.NotPanics(t, func() {
		(&Loader{logger: zerolog.Nop()}).invalidate(context.Background())
	})
}

func cachedFixture(d *Dataset, store cache.Store) *reference.CachedProvider {
	return reference.NewCachedProvider(d.Fixture(), store, time.Hour, zerolog.Nop())
}
