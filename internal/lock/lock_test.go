package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "demo|deploy@h:22", Key("demo", "deploy@h:22"))
}

func TestAcquireRelease(t *testing.T) {
	k := NewKeyed()

	l, err := k.Acquire(context.Background(), "a", 0, "deploy demo")
	require.NoError(t, err)
	assert.Equal(t, "a", l.Key)

	holder, ok := k.Holder("a")
	require.True(t, ok)
	assert.Equal(t, "deploy demo", holder.Command)

	_, err = k.Acquire(context.Background(), "a", 0, "other")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	var held *HeldError
	require.ErrorAs(t, err, &held)
	assert.Contains(t, held.Error(), "deploy demo")

	require.NoError(t, l.Release())
	require.NoError(t, l.Release(), "release is idempotent")

	_, ok = k.Holder("a")
	assert.False(t, ok)

	l2, err := k.Acquire(context.Background(), "a", 0, "again")
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestDifferentKeysDontBlock(t *testing.T) {
	k := NewKeyed()

	a, err := k.Acquire(context.Background(), "a", 0, "")
	require.NoError(t, err)
	b, err := k.Acquire(context.Background(), "b", 0, "")
	require.NoError(t, err)

	require.NoError(t, a.Release())
	require.NoError(t, b.Release())
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	k := NewKeyed()
	first, err := k.Acquire(context.Background(), "a", 0, "first")
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = first.Release()
	}()

	second, err := k.Acquire(context.Background(), "a", 5*time.Second, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", second.Info.Command)
	require.NoError(t, second.Release())
}

func TestAcquire_Timeout(t *testing.T) {
	k := NewKeyed()
	held, err := k.Acquire(context.Background(), "a", 0, "")
	require.NoError(t, err)
	defer held.Release()

	start := time.Now()
	_, err = k.Acquire(context.Background(), "a", 50*time.Millisecond, "")
	assert.ErrorIs(t, err, ErrLocked)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestAcquire_ContextCancel(t *testing.T) {
	k := NewKeyed()
	held, err := k.Acquire(context.Background(), "a", 0, "")
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = k.Acquire(ctx, "a", time.Minute, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSerializesSameKey(t *testing.T) {
	k := NewKeyed()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := k.Acquire(context.Background(), "demo", 10*time.Second, "")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			_ = l.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	k.mu.Lock()
	assert.Empty(t, k.entries, "idle keys are forgotten")
	k.mu.Unlock()
}

func TestLockInfo_String(t *testing.T) {
	info := &LockInfo{User: "alice", Hostname: "laptop", PID: 42, Command: "deploy demo"}
	assert.Equal(t, "alice@laptop (pid 42): deploy demo", info.String())

	info = NewLockInfo("")
	assert.NotEmpty(t, info.Hostname)
	assert.Less(t, info.Age(), time.Minute)
}
