package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tutora_back_end/internal/database/memory"
	"tutora_back_end/internal/models"
)

type countingCatalog struct {
	*memory.CourseCatalog
	reads int
}

func (c *countingCatalog) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	c.reads++
	return c.CourseCatalog.FindCourse(ctx, id)
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestCourseCatalogCache(t *testing.T) {
	rdb, mr := newRedis(t)
	source := &countingCatalog{CourseCatalog: memory.NewCourseCatalog(
		models.Course{ID: "course-1", Title: "Algèbre", Price: decimal.NewFromInt(100), Verified: true},
	)}
	catalog := NewCourseCatalog(source, rdb, time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		c, err := catalog.FindCourse(ctx, "course-1")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "Algèbre", c.Title)
		assert.True(t, c.Price.Equal(decimal.NewFromInt(100)))
	}
	assert.Equal(t, 1, source.reads)

	catalog.InvalidateCourse(ctx, "course-1")
	assert.False(t, mr.Exists("course:course-1"))

	missing, err := catalog.FindCourse(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.False(t, mr.Exists("course:absent"))
}

func TestIdempotencyReplay(t *testing.T) {
	rdb, mr := newRedis(t)
	store := NewIdempotencyStore(rdb, time.Hour)
	ctx := context.Background()

	first, err := store.Begin(ctx, "checkout", "user-1", "abc")
	require.NoError(t, err)
	assert.False(t, first.Found)

	// requête identique pendant le traitement
	again, err := store.Begin(ctx, "checkout", "user-1", "abc")
	require.NoError(t, err)
	assert.True(t, again.Found)
	assert.True(t, again.Pending)

	// un autre utilisateur peut réutiliser la même clé
	other, err := store.Begin(ctx, "checkout", "user-2", "abc")
	require.NoError(t, err)
	assert.False(t, other.Found)

	require.NoError(t, store.Complete(ctx, "checkout", "user-1", "abc", []byte(`{"ok":true}`)))
	replay, err := store.Begin(ctx, "checkout", "user-1", "abc")
	require.NoError(t, err)
	assert.True(t, replay.Found)
	assert.False(t, replay.Pending)
	assert.JSONEq(t, `{"ok":true}`, string(replay.Body))

	mr.FastForward(2 * time.Hour)
	expired, err := store.Begin(ctx, "checkout", "user-1", "abc")
	require.NoError(t, err)
	assert.False(t, expired.Found)
}

func TestIdempotencyAbortReleasesKey(t *testing.T) {
	rdb, _ := newRedis(t)
	store := NewIdempotencyStore(rdb, 0)
	ctx := context.Background()

	_, err := store.Begin(ctx, "checkout", "user-1", "k")
	require.NoError(t, err)
	require.NoError(t, store.Abort(ctx, "checkout", "user-1", "k"))

	r, err := store.Begin(ctx, "checkout", "user-1", "k")
	require.NoError(t, err)
	assert.False(t, r.Found)
}
