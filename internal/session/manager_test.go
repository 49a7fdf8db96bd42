package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinedd777/towerdef/internal/game"
	"github.com/sinedd777/towerdef/internal/script"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	balance, err := script.NewEngine(script.DefaultBalanceScript)
	require.NoError(t, err)
	return NewManager(20, balance)
}

func TestManager_CreateAndJoin(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Create("cooperative", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count())

	require.NoError(t, m.Join(id, "c1"))
	require.NoError(t, m.Join(id, "c2"))

	sess, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, []string{"c1", "c2"}, m.Members(id))

	// Joining created the players and gave them routes.
	state := sess.Processor().State()
	require.Contains(t, state.Players, "c1")
	assert.NotNil(t, state.Players["c1"].Path)
}

func TestManager_JoinFullSessionFails(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Create("cooperative", 2)
	require.NoError(t, err)
	require.NoError(t, m.Join(id, "c1"))
	require.NoError(t, m.Join(id, "c2"))

	assert.Error(t, m.Join(id, "c3"))
}

func TestManager_OneSessionPerConnection(t *testing.T) {
	m := newTestManager(t)

	a, err := m.Create("cooperative", 2)
	require.NoError(t, err)
	b, err := m.Create("cooperative", 2)
	require.NoError(t, err)

	require.NoError(t, m.Join(a, "c1"))
	assert.NoError(t, m.Join(a, "c1"), "re-joining the same session is a no-op")
	assert.Error(t, m.Join(b, "c1"))
}

func TestManager_FindOpenPrefersOldestWithRoom(t *testing.T) {
	m := newTestManager(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	first, err := m.Create("cooperative", 2)
	require.NoError(t, err)
	_, err = m.Create("cooperative", 2)
	require.NoError(t, err)

	got, ok := m.FindOpen("cooperative", 2)
	require.True(t, ok)
	assert.Equal(t, first, got)

	// A different mode or party size is not a candidate.
	_, ok = m.FindOpen("versus", 2)
	assert.False(t, ok)
	_, ok = m.FindOpen("cooperative", 4)
	assert.False(t, ok)
}

func TestManager_FindOpenSkipsFullAndStartedSessions(t *testing.T) {
	m := newTestManager(t)

	full, err := m.Create("cooperative", 1)
	require.NoError(t, err)
	require.NoError(t, m.Join(full, "c1"))

	_, ok := m.FindOpen("cooperative", 1)
	assert.False(t, ok, "a full session is not joinable")

	started, err := m.Create("cooperative", 2)
	require.NoError(t, err)
	require.NoError(t, m.Join(started, "c2"))
	sess, _ := m.Get(started)
	sess.Processor().State().Phase = game.PhaseDefense

	_, ok = m.FindOpen("cooperative", 2)
	assert.False(t, ok, "a session past the building phase is not joinable")
}

func TestManager_LeaveTearsDownEmptySession(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Create("cooperative", 2)
	require.NoError(t, err)
	require.NoError(t, m.Join(id, "c1"))
	require.NoError(t, m.Join(id, "c2"))

	assert.True(t, m.Leave("c1"))
	assert.Equal(t, 1, m.Count())

	sess, ok := m.Get(id)
	require.True(t, ok)
	assert.NotContains(t, sess.Processor().State().Players, "c1")

	assert.True(t, m.Leave("c2"))
	assert.Equal(t, 0, m.Count())

	assert.False(t, m.Leave("ghost"))
}
