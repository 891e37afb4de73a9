package game

import "sync"

// BiMap is a concurrency-safe one-to-one map with O(1) lookups in both
// directions.
type BiMap[K comparable, V comparable] struct {
	mu      sync.RWMutex
	forward map[K]V
	reverse map[V]K
}

// NewBiMap returns an empty BiMap.
func NewBiMap[K comparable, V comparable]() *BiMap[K, V] {
	return &BiMap[K, V]{
		forward: make(map[K]V),
		reverse: make(map[V]K),
	}
}

// Put links k and v, dropping any pair either was part of.
func (m *BiMap[K, V]) Put(k K, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.forward[k]; ok {
		delete(m.reverse, old)
	}
	if old, ok := m.reverse[v]; ok {
		delete(m.forward, old)
	}
	m.forward[k] = v
	m.reverse[v] = k
}

// Get returns the value linked to k.
func (m *BiMap[K, V]) Get(k K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.forward[k]
	return v, ok
}

// Inverse returns the key linked to v.
func (m *BiMap[K, V]) Inverse(v V) (K, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.reverse[v]
	return k, ok
}

// Delete removes the pair containing k.
func (m *BiMap[K, V]) Delete(k K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.forward[k]; ok {
		delete(m.reverse, v)
		delete(m.forward, k)
	}
}

// DeleteInverse removes the pair containing v.
func (m *BiMap[K, V]) DeleteInverse(v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k, ok := m.reverse[v]; ok {
		delete(m.forward, k)
		delete(m.reverse, v)
	}
}

// Len returns the number of pairs.
func (m *BiMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.forward)
}

// UserKey identifies a user at one table. A user has a distinct player at
// every table they sit at.
type UserKey struct {
	TableID string
	UserID  string
}

// Registry links the identities a user takes on at a table:
// user, player, round player and betting round player.
type Registry struct {
	players             *BiMap[UserKey, string]
	roundPlayers        *BiMap[string, string]
	bettingRoundPlayers *BiMap[string, string]
}

// NewRegistry creates an empty registry. One is shared by every table in the
// process.
func NewRegistry() *Registry {
	return &Registry{
		players:             NewBiMap[UserKey, string](),
		roundPlayers:        NewBiMap[string, string](),
		bettingRoundPlayers: NewBiMap[string, string](),
	}
}

func notFound(id, what string) error {
	return newError(CodeEntityNotFound, id, "no %s registered", what)
}

// RegisterPlayer links a user to their player at a table.
func (r *Registry) RegisterPlayer(tableID, userID, playerID string) {
	r.players.Put(UserKey{TableID: tableID, UserID: userID}, playerID)
}

// UnregisterPlayer forgets the player along with any hand it was dealt into.
func (r *Registry) UnregisterPlayer(playerID string) {
	if rpID, ok := r.roundPlayers.Get(playerID); ok {
		r.bettingRoundPlayers.Delete(rpID)
	}
	r.roundPlayers.Delete(playerID)
	r.players.DeleteInverse(playerID)
}

// RegisterRoundPlayer links a player to their seat in the current hand.
func (r *Registry) RegisterRoundPlayer(playerID, roundPlayerID string) {
	r.roundPlayers.Put(playerID, roundPlayerID)
}

// UnregisterRoundPlayer forgets a finished hand's round player.
func (r *Registry) UnregisterRoundPlayer(roundPlayerID string) {
	r.bettingRoundPlayers.Delete(roundPlayerID)
	r.roundPlayers.DeleteInverse(roundPlayerID)
}

// RegisterBettingRoundPlayer links a round player to the current street.
// The previous street's link is replaced.
func (r *Registry) RegisterBettingRoundPlayer(roundPlayerID, bettingRoundPlayerID string) {
	r.bettingRoundPlayers.Put(roundPlayerID, bettingRoundPlayerID)
}

// PlayerID resolves a user at a table to their player.
func (r *Registry) PlayerID(tableID, userID string) (string, error) {
	id, ok := r.players.Get(UserKey{TableID: tableID, UserID: userID})
	if !ok {
		return "", withTable(notFound(userID, "player for user"), tableID)
	}
	return id, nil
}

// UserID resolves a player back to their user.
func (r *Registry) UserID(playerID string) (string, error) {
	key, ok := r.players.Inverse(playerID)
	if !ok {
		return "", notFound(playerID, "user for player")
	}
	return key.UserID, nil
}

// RoundPlayerID resolves a player to their round player.
func (r *Registry) RoundPlayerID(playerID string) (string, error) {
	id, ok := r.roundPlayers.Get(playerID)
	if !ok {
		return "", notFound(playerID, "round player for player")
	}
	return id, nil
}

// PlayerIDForRoundPlayer resolves a round player back to their player.
func (r *Registry) PlayerIDForRoundPlayer(roundPlayerID string) (string, error) {
	id, ok := r.roundPlayers.Inverse(roundPlayerID)
	if !ok {
		return "", notFound(roundPlayerID, "player for round player")
	}
	return id, nil
}

// BettingRoundPlayerID resolves a round player to the current street.
func (r *Registry) BettingRoundPlayerID(roundPlayerID string) (string, error) {
	id, ok := r.bettingRoundPlayers.Get(roundPlayerID)
	if !ok {
		return "", notFound(roundPlayerID, "betting round player for round player")
	}
	return id, nil
}

// RoundPlayerIDForBettingRoundPlayer resolves a betting round player back to
// their round player.
func (r *Registry) RoundPlayerIDForBettingRoundPlayer(bettingRoundPlayerID string) (string, error) {
	id, ok := r.bettingRoundPlayers.Inverse(bettingRoundPlayerID)
	if !ok {
		return "", notFound(bettingRoundPlayerID, "round player for betting round player")
	}
	return id, nil
}

// ResolveUser walks the whole chain from a user to the betting round player
// acting for them in the current street.
func (r *Registry) ResolveUser(tableID, userID string) (string, error) {
	playerID, err := r.PlayerID(tableID, userID)
	if err != nil {
		return "", err
	}
	rpID, err := r.RoundPlayerID(playerID)
	if err != nil {
		return "", withTable(err, tableID)
	}
	brpID, err := r.BettingRoundPlayerID(rpID)
	if err != nil {
		return "", withTable(err, tableID)
	}
	return brpID, nil
}

// ResolveBettingRoundPlayer walks the chain back to the user.
func (r *Registry) ResolveBettingRoundPlayer(bettingRoundPlayerID string) (string, error) {
	rpID, err := r.RoundPlayerIDForBettingRoundPlayer(bettingRoundPlayerID)
	if err != nil {
		return "", err
	}
	playerID, err := r.PlayerIDForRoundPlayer(rpID)
	if err != nil {
		return "", err
	}
	return r.UserID(playerID)
}

// RegisterRound links every player dealt into a hand and their first street.
func (r *Registry) RegisterRound(round *Round) {
	for _, rp := range round.Players {
		r.RegisterRoundPlayer(rp.PlayerID, rp.ID)
	}
	r.RegisterBettingRound(round.ActiveBettingRound())
}

// RegisterBettingRound links a new street's players.
func (r *Registry) RegisterBettingRound(br *BettingRound) {
	for _, brp := range br.Players {
		r.RegisterBettingRoundPlayer(brp.RoundPlayerID, brp.ID)
	}
}

// UnregisterRound forgets every round player of a finished hand.
func (r *Registry) UnregisterRound(round *Round) {
	for _, rp := range round.Players {
		r.UnregisterRoundPlayer(rp.ID)
	}
}
