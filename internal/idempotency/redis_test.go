package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

type fakeSetter struct {
	ok  bool
	err error
}

func (f fakeSetter) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	cmd.SetVal(f.ok)
	return cmd
}

func TestRedisStoreWinningCaller(t *testing.T) {
	s := NewRedisStore(fakeSetter{ok: true})
	ok, err := s.TryMarkProcessed(context.Background(), "file:abc", time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStoreLosingCaller(t *testing.T) {
	s := NewRedisStore(fakeSetter{ok: false})
	ok, err := s.TryMarkProcessed(context.Background(), "file:abc", time.Minute)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreErrorReturnsFalseNotTrue(t *testing.T) {
	s := NewRedisStore(fakeSetter{err: errors.New("connection refused")})
	ok, err := s.TryMarkProcessed(context.Background(), "file:abc", time.Minute)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Equal(t, model.KindIdempotency, model.KindOf(err))
}
