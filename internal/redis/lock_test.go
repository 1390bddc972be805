package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slotDate = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSlotLocker(client, 5*time.Second), mr
}

func TestWithSlotLockRunsCallback(t *testing.T) {
	locker, mr := newTestLocker(t)

	ran := false
	err := locker.WithSlotLock(context.Background(), slotDate, "12:30", func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:slot:2025-06-02:12:30"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// Lock released after the callback returns.
	assert.False(t, mr.Exists("lock:slot:2025-06-02:12:30"))
}

func TestWithSlotLockContention(t *testing.T) {
	locker, _ := newTestLocker(t)

	err := locker.WithSlotLock(context.Background(), slotDate, "12:30", func(ctx context.Context) error {
		inner := locker.WithSlotLock(ctx, slotDate, "12:30", func(context.Context) error {
			t.Fatal("second holder must not run")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)
}

func TestWithSlotLockReleasedOnError(t *testing.T) {
	locker, mr := newTestLocker(t)

	boom := assert.AnError
	err := locker.WithSlotLock(context.Background(), slotDate, "12:30", func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("lock:slot:2025-06-02:12:30"))

	// The slot can be taken again right away.
	err = locker.WithSlotLock(context.Background(), slotDate, "12:30", func(context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestDifferentSlotsDoNotContend(t *testing.T) {
	locker, _ := newTestLocker(t)

	err := locker.WithSlotLock(context.Background(), slotDate, "12:30", func(ctx context.Context) error {
		// Same day, different time.
		if err := locker.WithSlotLock(ctx, slotDate, "13:30", func(context.Context) error {
			return nil
		}); err != nil {
			return err
		}
		// Same time, different day.
		return locker.WithSlotLock(ctx, slotDate.AddDate(0, 0, 1), "12:30", func(context.Context) error {
			return nil
		})
	})
	assert.NoError(t, err)
}

func TestStaleTokenDoesNotReleaseNewHolder(t *testing.T) {
	locker, mr := newTestLocker(t)

	// Simulate lock expiry mid-callback: the key vanishes and another
	// holder takes it with a fresh token.
	err := locker.WithSlotLock(context.Background(), slotDate, "12:30", func(context.Context) error {
		mr.Del("lock:slot:2025-06-02:12:30")
		mr.Set("lock:slot:2025-06-02:12:30", "other-token")
		return nil
	})
	require.NoError(t, err)

	// The compare-and-delete unlock must leave the new holder's lock alone.
	val, err := mr.Get("lock:slot:2025-06-02:12:30")
	require.NoError(t, err)
	assert.Equal(t, "other-token", val)
}
