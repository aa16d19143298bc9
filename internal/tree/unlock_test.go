package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanUnlock_NoIncomingEdges(t *testing.T) {
	s := newChain(t, 1)
	ok, err := s.CanUnlock(1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanUnlock_FollowsPredecessorState(t *testing.T) {
	s := newChain(t, 2)
	_, err := s.AddEdge(1, 2)
	require.NoError(t, err)

	ok, err := s.CanUnlock(2)
	require.NoError(t, err)
	assert.False(t, ok, "source is locked")

	_, err = s.Unlock(1)
	require.NoError(t, err)

	ok, err = s.CanUnlock(2)
	require.NoError(t, err)
	assert.True(t, ok, "source is unlocked")
}

func TestCanUnlock_SingleHopOnly(t *testing.T) {
	s := New()
	require.NoError(t, s.RestoreNode(Node{ID: 1}))
	require.NoError(t, s.RestoreNode(Node{ID: 2, Unlocked: true}))
	require.NoError(t, s.RestoreNode(Node{ID: 3}))
	_, _ = s.AddEdge(1, 2)
	_, _ = s.AddEdge(2, 3)

	ok, err := s.CanUnlock(3)
	require.NoError(t, err)
	assert.True(t, ok, "only immediate predecessors are checked")
}

func TestCanUnlock_NotFound(t *testing.T) {
	s := New()
	_, err := s.CanUnlock(1)
	assert.True(t, IsNotFound(err))
}

func TestUnlock_PrerequisitesNotMet(t *testing.T) {
	rec := &Recorder{}
	s := newChain(t, 3, WithListener(rec))
	_, _ = s.AddEdge(1, 3)
	_, _ = s.AddEdge(2, 3)
	_, _ = s.Unlock(1)
	rec.Reset()

	pulse, err := s.Unlock(3)

	require.Error(t, err)
	assert.False(t, pulse)
	assert.True(t, IsPrerequisitesNotMet(err))
	assert.ErrorIs(t, err, ErrPrerequisitesNotMet)
	assert.Contains(t, err.Error(), "2")
	n, _ := s.Node(3)
	assert.False(t, n.Unlocked)
	assert.Empty(t, rec.Batches)
}

func TestUnlock_EmitsPulseOnce(t *testing.T) {
	rec := &Recorder{}
	s := newChain(t, 1, WithListener(rec))
	rec.Reset()

	pulse, err := s.Unlock(1)
	require.NoError(t, err)
	assert.True(t, pulse)
	require.Len(t, rec.Batches, 1)
	c := rec.Last()[0]
	assert.Equal(t, UnlockChanged, c.Kind)
	assert.True(t, c.Unlocked)
	assert.True(t, c.Pulse)

	pulse, err = s.Unlock(1)
	require.NoError(t, err)
	assert.False(t, pulse)
	assert.Len(t, rec.Batches, 1, "second unlock must not re-signal")
}

func TestUnlock_AlreadyUnlockedIgnoresPrerequisites(t *testing.T) {
	s := newChain(t, 2)
	_, _ = s.AddEdge(1, 2)
	_, _ = s.Unlock(1)
	_, err := s.Unlock(2)
	require.NoError(t, err)
	require.NoError(t, s.Lock(1))

	pulse, err := s.Unlock(2)
	require.NoError(t, err)
	assert.False(t, pulse)
}

func TestLock_NoCascade(t *testing.T) {
	s := newChain(t, 2)
	_, _ = s.AddEdge(1, 2)
	_, _ = s.Unlock(1)
	_, _ = s.Unlock(2)

	require.NoError(t, s.Lock(1))

	n1, _ := s.Node(1)
	n2, _ := s.Node(2)
	assert.False(t, n1.Unlocked)
	assert.True(t, n2.Unlocked)
}

func TestLock_EmitsOnlyOnTransition(t *testing.T) {
	rec := &Recorder{}
	s := newChain(t, 1, WithListener(rec))
	rec.Reset()

	require.NoError(t, s.Lock(1))
	assert.Empty(t, rec.Batches)

	_, _ = s.Unlock(1)
	require.NoError(t, s.Lock(1))
	c := rec.Last()[0]
	assert.Equal(t, UnlockChanged, c.Kind)
	assert.False(t, c.Unlocked)
	assert.False(t, c.Pulse)

	assert.True(t, IsNotFound(s.Lock(99)))
}

func TestBlockers_DeduplicatesDuplicateEdges(t *testing.T) {
	s := newChain(t, 3)
	_, _ = s.AddEdge(1, 3)
	_, _ = s.AddEdge(1, 3)
	_, _ = s.AddEdge(2, 3)

	blockers, err := s.Blockers(3)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{1, 2}, blockers)
}

func TestUnlock_ChainRequiresOrder(t *testing.T) {
	s := newChain(t, 3)
	_, _ = s.AddEdge(1, 2)
	_, _ = s.AddEdge(2, 3)

	_, err := s.Unlock(3)
	assert.True(t, IsPrerequisitesNotMet(err))

	for _, id := range []NodeID{1, 2, 3} {
		_, err := s.Unlock(id)
		require.NoError(t, err, "node %d", id)
	}
}
