package game

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtables/internal/randutil"
)

func TestBiMapPutReplacesBothSides(t *testing.T) {
	t.Parallel()

	m := NewBiMap[string, string]()
	m.Put("a", "1")
	m.Put("b", "2")
	m.Put("a", "2")

	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "2", v)
	_, ok = m.Get("b")
	assert.False(t, ok, "b lost its value to a")
	_, ok = m.Inverse("1")
	assert.False(t, ok, "1 no longer linked")
	assert.Equal(t, 1, m.Len())

	m.DeleteInverse("2")
	assert.Equal(t, 0, m.Len())
}

func TestRegistryChain(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RegisterPlayer("t1", "alice", "player-a")
	r.RegisterRoundPlayer("player-a", "rp-a")
	r.RegisterBettingRoundPlayer("rp-a", "brp-a1")

	brp, err := r.ResolveUser("t1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "brp-a1", brp)

	user, err := r.ResolveBettingRoundPlayer("brp-a1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user)

	// A new street replaces the old link.
	r.RegisterBettingRoundPlayer("rp-a", "brp-a2")
	brp, err = r.ResolveUser("t1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "brp-a2", brp)
	_, err = r.ResolveBettingRoundPlayer("brp-a1")
	require.ErrorIs(t, err, ErrEntityNotFound)
}

func TestRegistryPartitionsByTable(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RegisterPlayer("t1", "alice", "player-1")
	r.RegisterPlayer("t2", "alice", "player-2")

	p1, err := r.PlayerID("t1", "alice")
	require.NoError(t, err)
	p2, err := r.PlayerID("t2", "alice")
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)

	_, err = r.PlayerID("t3", "alice")
	require.ErrorIs(t, err, ErrEntityNotFound)
	var ge *GameError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "t3", ge.TableID)
	assert.False(t, IsValidation(err))
}

func TestRegistryUnregister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RegisterPlayer("t1", "alice", "player-a")
	r.RegisterRoundPlayer("player-a", "rp-a")
	r.RegisterBettingRoundPlayer("rp-a", "brp-a")

	r.UnregisterRoundPlayer("rp-a")
	_, err := r.RoundPlayerID("player-a")
	require.ErrorIs(t, err, ErrEntityNotFound)
	_, err = r.RoundPlayerIDForBettingRoundPlayer("brp-a")
	require.ErrorIs(t, err, ErrEntityNotFound)

	r.UnregisterPlayer("player-a")
	_, err = r.PlayerID("t1", "alice")
	require.ErrorIs(t, err, ErrEntityNotFound)
}

func TestRegistryRound(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 1000, 1000, 1000)
	r := NewRegistry()
	for _, p := range tbl.Players {
		r.RegisterPlayer(tbl.ID, p.UserID, p.ID)
	}
	start, err := tbl.StartRound(randutil.New(1))
	require.NoError(t, err)
	r.RegisterRound(start.Round)

	active := activeID(tbl)
	user, err := r.ResolveBettingRoundPlayer(active)
	require.NoError(t, err)
	brp, err := r.ResolveUser(tbl.ID, user)
	require.NoError(t, err)
	assert.Equal(t, active, brp)

	r.UnregisterRound(start.Round)
	_, err = r.ResolveUser(tbl.ID, user)
	require.ErrorIs(t, err, ErrEntityNotFound)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table := fmt.Sprintf("t%d", i)
			for j := range 100 {
				user := fmt.Sprintf("u%d", j)
				player := table + "-" + user
				r.RegisterPlayer(table, user, player)
				got, err := r.PlayerID(table, user)
				if err != nil || got != player {
					t.Errorf("lookup %s/%s = %q, %v", table, user, got, err)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, r.players.Len())
}
