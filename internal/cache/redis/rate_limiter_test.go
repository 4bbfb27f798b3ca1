package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rl := NewRateLimiter(Wrap(db, testPrefix))
	sha := redis.NewScript(slidingWindowLua).Hash()

	// The script arguments carry the current time, so match loosely.
	mock.CustomMatch(func(expected, actual []interface{}) error {
		if len(actual) < 4 || actual[0] != "evalsha" || actual[1] != sha {
			return errors.New("unexpected command")
		}
		return nil
	}).ExpectEvalSha(sha, []string{"kalshidash:ratelimit:api:1.2.3.4"}).SetVal([]interface{}{int64(1), int64(3)})

	ok, err := rl.Allow(context.Background(), "1.2.3.4", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_Denied(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rl := NewRateLimiter(Wrap(db, testPrefix))
	sha := redis.NewScript(slidingWindowLua).Hash()

	mock.CustomMatch(func(expected, actual []interface{}) error { return nil }).
		ExpectEvalSha(sha, []string{"kalshidash:ratelimit:api:k"}).SetVal([]interface{}{int64(0), int64(10)})

	ok, err := rl.Allow(context.Background(), "k", 10, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiter_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rl := NewRateLimiter(Wrap(db, testPrefix))
	sha := redis.NewScript(slidingWindowLua).Hash()

	mock.CustomMatch(func(expected, actual []interface{}) error { return nil }).
		ExpectEvalSha(sha, []string{"kalshidash:ratelimit:api:k"}).SetErr(errors.New("i/o timeout"))

	ok, err := rl.Allow(context.Background(), "k", 10, time.Minute)
	assert.False(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: rate limit allow k")
}

func TestSlidingWindowScriptEmbedded(t *testing.T) {
	assert.Contains(t, slidingWindowLua, "ZREMRANGEBYSCORE")
}
