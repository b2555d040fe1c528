package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	deleted []string
	getErr  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, exp time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	f.deleted = append(f.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Close() error { return nil }

type roster struct {
	Emails []string `json:"emails"`
}

func TestRedisCache_ReadThrough(t *testing.T) {
	fake := newFakeRedis()
	c := &RedisCache{client: fake, ttl: time.Minute}
	ctx := context.Background()

	var got roster
	assert.ErrorIs(t, c.GetJSON(ctx, RosterKey(3), &got), ErrMiss)

	gen, err := c.Version(ctx, RosterKey(3))
	require.NoError(t, err)
	assert.Zero(t, gen)
	require.NoError(t, c.Fill(ctx, RosterKey(3), gen, roster{Emails: []string{"a@b.io"}}))
	assert.Equal(t, time.Minute, fake.ttls["launchpad:roster:3"])

	require.NoError(t, c.GetJSON(ctx, RosterKey(3), &got))
	assert.Equal(t, []string{"a@b.io"}, got.Emails)

	require.NoError(t, c.Invalidate(ctx, RosterKey(3), OrganizationKey(3)))
	assert.ErrorIs(t, c.GetJSON(ctx, RosterKey(3), &got), ErrMiss)
	assert.Equal(t, []string{"launchpad:roster:3", "launchpad:org:3"}, fake.deleted)

	gen, err = c.Version(ctx, RosterKey(3))
	require.NoError(t, err)
	assert.EqualValues(t, 1, gen)
}

func TestRedisCache_FillAfterInvalidateIsDropped(t *testing.T) {
	fake := newFakeRedis()
	c := &RedisCache{client: fake, ttl: time.Minute}
	ctx := context.Background()
	key := OrganizationKey(7)

	gen, err := c.Version(ctx, key)
	require.NoError(t, err)

	// a mutation commits and invalidates while the reader is still loading
	require.NoError(t, c.Invalidate(ctx, key))

	require.NoError(t, c.Fill(ctx, key, gen, roster{Emails: []string{"stale@b.io"}}))
	var got roster
	assert.ErrorIs(t, c.GetJSON(ctx, key, &got), ErrMiss)

	// the next reader sees the new generation and may fill
	gen, err = c.Version(ctx, key)
	require.NoError(t, err)
	require.NoError(t, c.Fill(ctx, key, gen, roster{Emails: []string{"fresh@b.io"}}))
	require.NoError(t, c.GetJSON(ctx, key, &got))
	assert.Equal(t, []string{"fresh@b.io"}, got.Emails)
}

func TestRedisCache_InvalidateNothing(t *testing.T) {
	fake := newFakeRedis()
	c := &RedisCache{client: fake}
	require.NoError(t, c.Invalidate(context.Background()))
	assert.Empty(t, fake.deleted)
}

func TestRedisCache_GetError(t *testing.T) {
	fake := newFakeRedis()
	fake.getErr = errors.New("conn refused")
	c := &RedisCache{client: fake}
	var v roster
	err := c.GetJSON(context.Background(), "k", &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	var v roster
	assert.ErrorIs(t, c.GetJSON(context.Background(), "k", &v), ErrMiss)
	assert.NoError(t, c.Fill(context.Background(), "k", 0, v))
	assert.NoError(t, c.Invalidate(context.Background(), "k"))
}
