package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "redditcollector/pkg/errors"
	"redditcollector/pkg/reddit"
)

func TestDiscoveryOrderAndDedup(t *testing.T) {
	env := newTestEnv(t)
	env.source.views[reddit.ViewTop] = candidates("alice", "bob", "Alice", "carol")
	env.source.views[reddit.ViewNew] = candidates("bob", "dave")

	d := NewDiscovery(env.source, env.store, nil, env.log)
	users, err := d.Run(context.Background(), "politics", 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, users)
	assert.Equal(t, users, env.usernamesInStore(t))
	assert.Equal(t, 4, env.log.CountMessage("User added"))
	assert.Equal(t, reddit.Views, env.source.viewCalls)
}

func TestDiscoveryLimitIsHardCap(t *testing.T) {
	env := newTestEnv(t)
	env.source.views[reddit.ViewTop] = candidates("a1", "a2", "a3", "a4")
	env.source.views[reddit.ViewControversial] = candidates("b1")

	d := NewDiscovery(env.source, env.store, nil, env.log)
	users, err := d.Run(context.Background(), "politics", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"a1", "a2"}, users)
	assert.Equal(t, []string{"a1", "a2"}, env.usernamesInStore(t))
	assert.Equal(t, []reddit.View{reddit.ViewTop}, env.source.viewCalls)
	assert.Equal(t, 2, env.source.yielded, "no candidate is read past the limit")
}

func TestDiscoveryLimitSpansViews(t *testing.T) {
	env := newTestEnv(t)
	env.source.views[reddit.ViewTop] = candidates("a", "b")
	env.source.views[reddit.ViewControversial] = candidates("b", "c", "d")

	d := NewDiscovery(env.source, env.store, nil, env.log)
	users, err := d.Run(context.Background(), "politics", 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, users)
	assert.Equal(t, []reddit.View{reddit.ViewTop, reddit.ViewControversial}, env.source.viewCalls)
}

func TestDiscoveryZeroLimit(t *testing.T) {
	env := newTestEnv(t)
	env.source.views[reddit.ViewTop] = candidates("a")

	d := NewDiscovery(env.source, env.store, nil, env.log)
	users, err := d.Run(context.Background(), "politics", 0)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Empty(t, env.source.viewCalls)
	assert.NoFileExists(t, env.store.UsersPath())
}

func TestDiscoveryExcludesAuthors(t *testing.T) {
	env := newTestEnv(t)
	env.source.views[reddit.ViewTop] = candidates("[deleted]", "", "AutoModerator", "automoderator", "eve")

	d := NewDiscovery(env.source, env.store, nil, env.log)
	users, err := d.Run(context.Background(), "politics", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"eve"}, users)
}

func TestDiscoveryViewErrorMovesOn(t *testing.T) {
	env := newTestEnv(t)
	env.source.views[reddit.ViewTop] = candidates("alice")
	env.source.viewErrs[reddit.ViewTop] = errs.New(errs.ErrorTypeServerError, 503, "listing failed")
	env.source.views[reddit.ViewHot] = candidates("bob")

	d := NewDiscovery(env.source, env.store, nil, env.log)
	users, err := d.Run(context.Background(), "politics", 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, users)
	assert.Equal(t, []string{"alice", "bob"}, env.usernamesInStore(t))
	assert.True(t, env.log.HasMessage("Failed to list view, moving on"))
}

func TestDiscoveryCancelled(t *testing.T) {
	env := newTestEnv(t)
	env.source.views[reddit.ViewTop] = candidates("alice")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDiscovery(env.source, env.store, nil, env.log)
	users, err := d.Run(ctx, "politics", 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, users)
	assert.Equal(t, []reddit.View{reddit.ViewTop}, env.source.viewCalls)
}
