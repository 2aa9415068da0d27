package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/checkoutkit/pkg/statemachine"
)

type state string

func (s state) Name() string { return string(s) }

type event string

func (e event) Name() string { return string(e) }

const (
	draft     state = "draft"
	review    state = "review"
	published state = "published"
	archived  state = "archived"

	submit  event = "submit"
	approve event = "approve"
	back    event = "back"
)

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New(nil)
	assert.ErrorIs(t, err, statemachine.ErrInvalidState)

	_, err = statemachine.New(draft, statemachine.WithTransition(draft, nil, submit))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	assert.Panics(t, func() {
		statemachine.MustNew(draft, statemachine.WithTransition(nil, review, submit))
	})
}

func TestFire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("follows registered transitions", func(t *testing.T) {
		t.Parallel()

		sm := statemachine.MustNew(draft,
			statemachine.WithTransition(draft, review, submit),
			statemachine.WithTransition(review, published, approve),
		)

		assert.True(t, sm.CanFire(ctx, submit, nil))
		require.NoError(t, sm.Fire(ctx, submit, nil))
		require.NoError(t, sm.Fire(ctx, approve, nil))
		assert.Equal(t, published, sm.Current())

		require.NoError(t, sm.Reset())
		assert.Equal(t, draft, sm.Current())
	})

	t.Run("unknown event", func(t *testing.T) {
		t.Parallel()

		sm := statemachine.MustNew(draft, statemachine.WithTransition(draft, review, submit))

		err := sm.Fire(ctx, approve, nil)
		assert.True(t, statemachine.IsNoTransitionAvailableError(err))
		assert.False(t, sm.CanFire(ctx, approve, nil))
		assert.ErrorIs(t, sm.Fire(ctx, nil, nil), statemachine.ErrInvalidEvent)
		assert.Equal(t, draft, sm.Current())
	})

	t.Run("first transition with passing guards wins", func(t *testing.T) {
		t.Parallel()

		isUrgent := func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
			urgent, _ := data.(bool)
			return urgent
		}
		sm := statemachine.MustNew(draft,
			statemachine.WithTransition(draft, published, submit, statemachine.WithGuards(isUrgent)),
			statemachine.WithTransition(draft, review, submit),
		)

		require.NoError(t, sm.Fire(ctx, submit, false))
		assert.Equal(t, review, sm.Current())

		require.NoError(t, sm.Restore(draft))
		require.NoError(t, sm.Fire(ctx, submit, true))
		assert.Equal(t, published, sm.Current())
	})

	t.Run("guards reject", func(t *testing.T) {
		t.Parallel()

		never := func(context.Context, statemachine.State, statemachine.Event, any) bool { return false }
		sm := statemachine.MustNew(draft,
			statemachine.WithTransition(draft, review, submit, statemachine.WithGuards(never)),
		)

		err := sm.Fire(ctx, submit, nil)
		assert.True(t, statemachine.IsTransitionRejectedError(err))
		assert.False(t, sm.CanFire(ctx, submit, nil))
		assert.Equal(t, draft, sm.Current())
	})

	t.Run("actions see data and can abort", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		var seen []string
		record := func(_ context.Context, from, to statemachine.State, _ statemachine.Event, data any) error {
			seen = append(seen, from.Name()+">"+to.Name())
			*data.(*int)++
			return nil
		}
		fail := func(context.Context, statemachine.State, statemachine.State, statemachine.Event, any) error {
			return boom
		}

		sm := statemachine.MustNew(draft,
			statemachine.WithTransition(draft, review, submit, statemachine.WithActions(record, nil)),
			statemachine.WithTransition(review, published, approve, statemachine.WithActions(fail)),
		)

		calls := 0
		require.NoError(t, sm.Fire(ctx, submit, &calls))
		assert.Equal(t, 1, calls)
		assert.Equal(t, []string{"draft>review"}, seen)

		err := sm.Fire(ctx, approve, nil)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, review, sm.Current())
	})
}

func TestRestore(t *testing.T) {
	t.Parallel()

	sm := statemachine.MustNew(draft,
		statemachine.WithTransition(draft, review, submit),
		statemachine.WithTransition(review, draft, back),
	)

	require.NoError(t, sm.Restore(review))
	assert.Equal(t, review, sm.Current())
	require.NoError(t, sm.Fire(context.Background(), back, nil))
	assert.Equal(t, draft, sm.Current())

	assert.ErrorIs(t, sm.Restore(archived), statemachine.ErrUnknownState)
	assert.ErrorIs(t, sm.Restore(nil), statemachine.ErrInvalidState)
	assert.Equal(t, draft, sm.Current())
}

func TestConcurrentFire(t *testing.T) {
	t.Parallel()

	sm := statemachine.MustNew(draft,
		statemachine.WithTransition(draft, review, submit),
		statemachine.WithTransition(review, draft, back),
	)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sm.Fire(context.Background(), submit, nil)
			_ = sm.Fire(context.Background(), back, nil)
			_ = sm.CanFire(context.Background(), submit, nil)
		}()
	}
	wg.Wait()

	assert.Contains(t, []statemachine.State{draft, review}, sm.Current())
}
