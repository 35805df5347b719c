package drafts

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/wizard"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func draft(id, name, source string, step wizard.Step) wizard.State {
	job := jobspec.New(jobspec.DefaultDefaults())
	job.ID = name
	job.SourceIndex = source
	return wizard.State{
		ID:           id,
		CurrentStep:  step,
		Validity:     map[wizard.Step]wizard.Validity{wizard.StepCollections: wizard.ValidityValid},
		Job:          job,
		FieldsStatus: wizard.FieldsIdle,
		Phase:        wizard.PhaseEditing,
	}
}

func TestRedisStore_SaveLoad(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	in := draft("s1", "nightly_rollup", "sales-*", wizard.StepAggregations)
	require.NoError(t, store.Save(ctx, in))

	out, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "nightly_rollup", out.Job.ID)
	assert.Equal(t, "sales-*", out.Job.SourceIndex)
	assert.Equal(t, wizard.StepAggregations, out.CurrentStep)
	assert.Equal(t, wizard.ValidityValid, out.Validity[wizard.StepCollections])
	assert.Equal(t, 1000, out.Job.PageSize)
}

func TestRedisStore_LoadMissing(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewRedisStore(client, time.Hour)

	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Expiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStore(client, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, draft("s1", "a", "logs-*", wizard.StepCollections)))
	assert.True(t, mr.Exists("rollup:draft:s1"))

	mr.FastForward(11 * time.Minute)

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// the expired id is pruned from the index
	members, err := mr.ZMembers("rollup:drafts")
	if err == nil {
		assert.Empty(t, members)
	}
}

func TestRedisStore_ListNewestFirst(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewRedisStore(client, time.Hour)
	base := time.UnixMilli(1709258400000)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, draft("old", "a", "logs-*", wizard.StepCollections)))
	require.NoError(t, store.Save(ctx, draft("new", "b", "sales-*", wizard.StepSchedule)))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "b", list[0].JobID)
	assert.Equal(t, wizard.StepSchedule, list[0].Step)
	assert.Equal(t, "old", list[1].ID)
	assert.True(t, list[0].UpdatedAt.After(list[1].UpdatedAt))
}

func TestRedisStore_Delete(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, draft("s1", "a", "logs-*", wizard.StepCollections)))
	require.NoError(t, store.Delete(ctx, "s1"))

	assert.False(t, mr.Exists("rollup:draft:s1"))
	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0", stats["drafts"])
}

func TestRedisStore_RedisDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStore(client, time.Hour)
	mr.Close()

	err := store.Save(context.Background(), draft("s1", "a", "logs-*", wizard.StepCollections))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0", 4)
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, 4, client.Options().PoolSize)

	_, err = Connect(context.Background(), "http://bad", 0)
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.UnixMilli(1709258400000)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	in := draft("s1", "a", "logs-*", wizard.StepCollections)
	require.NoError(t, store.Save(ctx, in))

	// stored copies are isolated from the caller
	in.Job.ID = "mutated"
	out, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a", out.Job.ID)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "logs-*", list[0].SourceIndex)

	now = now.Add(2 * time.Minute)
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, store.Save(ctx, in))
	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}
