package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-portfolio-go/internal/constants"
	"ai-portfolio-go/internal/types"
)

// steppingClock 每次调用前进一秒
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisFromClient(client), mr
}

func messageLogs(t *testing.T) map[string]MessageLog {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r, _ := newTestRedis(t)
	return map[string]MessageLog{
		"memory": NewInMemoryMessageLog(WithClock(steppingClock(start)), WithMessageLogLogger(zerolog.Nop())),
		"redis":  NewRedisMessageLog(r, WithClock(steppingClock(start)), WithMessageLogLogger(zerolog.Nop())),
	}
}

func TestValidateContactMessage(t *testing.T) {
	cases := []struct {
		name, email, message string
		wantField            string
		wantMsg              string
	}{
		{"Jane", "jane@example.com", "hi", "", ""},
		{"", "jane@example.com", "hi", "", MsgFillAllFields},
		{"Jane", "  ", "hi", "", MsgFillAllFields},
		{"Jane", "jane@example.com", "\n", "", MsgFillAllFields},
		{"Jane", "not-an-email", "hi", "email", MsgInvalidEmail},
		{"Jane", "jane@example", "hi", "email", MsgInvalidEmail},
		{"Jane", "ja ne@example.com", "hi", "email", MsgInvalidEmail},
	}
	for _, tc := range cases {
		err := ValidateContactMessage(tc.name, tc.email, tc.message)
		if tc.wantMsg == "" {
			assert.NoError(t, err)
			continue
		}
		var vErr *types.ValidationError
		require.ErrorAs(t, err, &vErr, "email=%q", tc.email)
		assert.Equal(t, tc.wantMsg, vErr.Message)
		assert.Equal(t, tc.wantField, vErr.Field)
		assert.ErrorIs(t, err, types.ErrValidation)
	}
}

// 场景C：邮箱格式错误，日志不变
func TestMessageLog_InvalidEmailLeavesLogUnchanged(t *testing.T) {
	for name, log := range messageLogs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := log.Submit(ctx, "Bob", "bob@example.com", "first")
			require.NoError(t, err)

			_, err = log.Submit(ctx, "Jane", "not-an-email", "hi")
			var vErr *types.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "email", vErr.Field)

			all, err := log.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "Bob", all[0].Name)
		})
	}
}

// 场景F：按提交的逆序返回
func TestMessageLog_NewestFirst(t *testing.T) {
	for name, log := range messageLogs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, n := range []string{"one", "two", "three"} {
				_, err := log.Submit(ctx, n, n+"@example.com", "hello "+n)
				require.NoError(t, err)
			}

			all, err := log.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "three", all[0].Name)
			assert.Equal(t, "two", all[1].Name)
			assert.Equal(t, "one", all[2].Name)
			assert.Equal(t, "2024-05-01T10:00:03.000Z", all[0].Date)
			assert.Equal(t, "2024-05-01T10:00:01.000Z", all[2].Date)
		})
	}
}

func TestMessageLog_ClearAll(t *testing.T) {
	for name, log := range messageLogs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := log.Submit(ctx, "Jane", "jane@example.com", "hi")
			require.NoError(t, err)

			require.NoError(t, log.ClearAll(ctx))
			all, err := log.ListAll(ctx)
			require.NoError(t, err)
			assert.NotNil(t, all)
			assert.Empty(t, all)

			require.NoError(t, log.ClearAll(ctx), "重复清空不应报错")
		})
	}
}

func TestMessageLog_SubmitTrimsFields(t *testing.T) {
	for name, log := range messageLogs(t) {
		t.Run(name, func(t *testing.T) {
			msg, err := log.Submit(context.Background(), "  Jane ", " jane@example.com ", " hi ")
			require.NoError(t, err)
			assert.Equal(t, "Jane", msg.Name)
			assert.Equal(t, "jane@example.com", msg.Email)
			assert.Equal(t, "hi", msg.Message)
		})
	}
}

func TestRedisMessageLog_AbsentKey(t *testing.T) {
	r, _ := newTestRedis(t)
	log := NewRedisMessageLog(r, WithMessageLogLogger(zerolog.Nop()))

	all, err := log.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestRedisMessageLog_CorruptPayload(t *testing.T) {
	r, mr := newTestRedis(t)
	log := NewRedisMessageLog(r, WithMessageLogLogger(zerolog.Nop()))
	require.NoError(t, mr.Set(constants.KeyContactMessages, "{not json"))

	all, err := log.ListAll(context.Background())
	require.NoError(t, err, "损坏的数据不应返回错误")
	assert.Empty(t, all)

	// 损坏数据在下一次提交时被覆盖
	_, err = log.Submit(context.Background(), "Jane", "jane@example.com", "hi")
	require.NoError(t, err)
	all, err = log.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestRedisMessageLog_ConcurrentSubmit(t *testing.T) {
	r, _ := newTestRedis(t)
	log := NewRedisMessageLog(r, WithMessageLogLogger(zerolog.Nop()))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = log.Submit(context.Background(), "Jane", "jane@example.com", "hi")
		}()
	}
	wg.Wait()

	all, err := log.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, all)
	assert.LessOrEqual(t, len(all), 4)
}
