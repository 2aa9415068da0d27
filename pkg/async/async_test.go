package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/checkoutkit/pkg/async"
)

func TestAsync(t *testing.T) {
	t.Parallel()

	t.Run("returns the function result", func(t *testing.T) {
		t.Parallel()

		f := async.Async(context.Background(), 21, func(_ context.Context, n int) (int, error) {
			return n * 2, nil
		})

		got, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.True(t, f.IsComplete())
	})

	t.Run("propagates the function error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		f := async.Async(context.Background(), "x", func(context.Context, string) (bool, error) {
			return false, boom
		})

		_, err := f.Await()
		assert.ErrorIs(t, err, boom)
	})

	t.Run("skips the function when the context is already canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		f := async.Async(ctx, 1, func(context.Context, int) (int, error) {
			called = true
			return 1, nil
		})

		_, err := f.Await()
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("passes its context to the function", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		started := make(chan struct{})
		f := async.Async(ctx, 0, func(ctx context.Context, _ int) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		})

		<-started
		assert.False(t, f.IsComplete())
		cancel()

		_, err := f.Await()
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFutureAwaitContext(t *testing.T) {
	t.Parallel()

	t.Run("returns when the caller gives up", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		defer close(release)

		f := async.Async(context.Background(), 0, func(context.Context, int) (int, error) {
			<-release
			return 7, nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := f.AwaitContext(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, f.IsComplete())
	})

	t.Run("returns the result when it is ready", func(t *testing.T) {
		t.Parallel()

		f := async.Async(context.Background(), "pro", func(_ context.Context, s string) (string, error) {
			return s + "!", nil
		})

		got, err := f.AwaitContext(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "pro!", got)
	})
}

func TestCompleted(t *testing.T) {
	t.Parallel()

	f := async.Completed("cached")
	assert.True(t, f.IsComplete())

	got, err := f.AwaitContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", got)
}
