package authstate_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/checkoutkit/pkg/authstate"
)

type jar struct {
	mu      sync.Mutex
	cookies []*http.Cookie
}

func (j *jar) Cookies() []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cookies
}

func (j *jar) set(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies = []*http.Cookie{{Name: name, Value: value}}
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Me(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func TestNew_PanicsOnNil(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { authstate.New(authstate.Config{}, nil, &mockVerifier{}) })
	assert.Panics(t, func() { authstate.New(authstate.Config{}, &jar{}, nil) })
}

func TestChecker_Authenticated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j := &jar{}
	c := authstate.New(authstate.Config{CookieName: "sid"}, j, &mockVerifier{})

	assert.False(t, c.Authenticated(ctx))

	j.set("other", "x")
	assert.False(t, c.Authenticated(ctx))

	j.set("sid", "abc")
	assert.True(t, c.Authenticated(ctx))
}

func TestChecker_RevalidateRemembersRejection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j := &jar{}
	j.set("access_token", "old")
	v := &mockVerifier{}
	c := authstate.New(authstate.Config{}, j, v)

	v.On("Me", ctx).Return(false, nil).Once()
	ok, err := c.Revalidate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, c.Authenticated(ctx))

	j.set("access_token", "new")
	assert.True(t, c.Authenticated(ctx))

	v.On("Me", ctx).Return(true, nil).Once()
	ok, err = c.Revalidate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	v.AssertExpectations(t)
}

func TestChecker_RevalidateErrorKeepsState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j := &jar{}
	j.set("access_token", "t")
	v := &mockVerifier{}
	v.On("Me", ctx).Return(false, errors.New("dial tcp: timeout"))
	c := authstate.New(authstate.Config{}, j, v)

	ok, err := c.Revalidate(ctx)
	assert.Error(t, err)
	assert.True(t, ok)
	assert.True(t, c.Authenticated(ctx))
}
