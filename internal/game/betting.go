package game

import "slices"

// Street represents the betting round
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
)

func (s Street) String() string {
	return [...]string{"PREFLOP", "FLOP", "TURN", "RIVER"}[s]
}

// ActionType represents a player action
type ActionType int

const (
	Blind ActionType = iota
	Call
	Check
	Fold
	Raise
)

func (a ActionType) String() string {
	return [...]string{"BLIND", "CALL", "CHECK", "FOLD", "RAISE"}[a]
}

// ParseActionType maps the wire name of an action back to its type.
func ParseActionType(s string) (ActionType, bool) {
	for a := Blind; a <= Raise; a++ {
		if a.String() == s {
			return a, true
		}
	}
	return 0, false
}

// Intent is a requested action before validation. For a raise the amount is
// the increment over the call.
type Intent struct {
	Type   ActionType
	Amount int64
}

// Action is an accepted, immutable entry in a street's action log.
type Action struct {
	ID                   string
	Type                 ActionType
	Amount               int64
	Sequence             int
	BettingRoundPlayerID string
}

// BettingRoundPlayer is a round player's participation in one street.
type BettingRoundPlayer struct {
	ID            string
	RoundPlayerID string
	Position      int
	HasActed      bool
	HasFolded     bool
}

// ActionResult is returned by HandlePlayerAction.
type ActionResult struct {
	Actions   []Action
	Committed int64
	Raised    bool
}

// BettingRound encapsulates the state for one street. Players are held in
// acting order.
type BettingRound struct {
	ID       string
	RoundID  string
	Street   Street
	Players  []BettingRoundPlayer
	Actions  []Action
	ActiveID string // empty once finished
	Finished bool

	newID func() string
}

// NewBettingRound opens a street with players[first] to act.
func NewBettingRound(id, roundID string, street Street, players []BettingRoundPlayer, first int, newID func() string) *BettingRound {
	br := &BettingRound{
		ID:      id,
		RoundID: roundID,
		Street:  street,
		Players: players,
		newID:   newID,
	}
	for i := range players {
		idx := (first + i) % len(players)
		if !players[idx].HasFolded {
			br.ActiveID = players[idx].ID
			break
		}
	}
	if br.ActiveID == "" {
		br.Finished = true
	}
	return br
}

// SeedBlinds records forced bets. Blind i is posted by players[i]; posting a
// blind is not a turn, so HasActed is left alone.
func (br *BettingRound) SeedBlinds(blinds []int64) []Action {
	seeded := make([]Action, 0, len(blinds))
	for i, amount := range blinds {
		a := br.appendAction(br.Players[i%len(br.Players)].ID, Blind, amount)
		seeded = append(seeded, a)
	}
	return seeded
}

// Player returns the betting round player with the given id.
func (br *BettingRound) Player(id string) (BettingRoundPlayer, bool) {
	if i := br.indexOf(id); i >= 0 {
		return br.Players[i], true
	}
	return BettingRoundPlayer{}, false
}

// RequiredContribution is what every player must have put in this street to
// stay in: all raise increments plus, preflop, the last of the opening blinds.
func (br *BettingRound) RequiredContribution() int64 {
	var required, lastBlind int64
	blindRun := true
	for _, a := range br.Actions {
		switch {
		case a.Type == Blind && blindRun:
			lastBlind = a.Amount
		case a.Type == Raise:
			required += a.Amount
			blindRun = false
		default:
			blindRun = false
		}
	}
	if br.Street == Preflop {
		required += lastBlind
	}
	return required
}

// Contribution is what the player has put in this street.
func (br *BettingRound) Contribution(playerID string) int64 {
	var total int64
	for _, a := range br.Actions {
		if a.BettingRoundPlayerID != playerID {
			continue
		}
		switch a.Type {
		case Blind, Call, Raise:
			total += a.Amount
		}
	}
	return total
}

// AmountToCall is what the player still owes to match the current bet.
func (br *BettingRound) AmountToCall(playerID string) int64 {
	return br.RequiredContribution() - br.Contribution(playerID)
}

// MinRaise is the smallest legal raise increment.
func (br *BettingRound) MinRaise(bigBlind int64) int64 {
	last := bigBlind
	for _, a := range br.Actions {
		if a.Type == Raise {
			last = a.Amount
		}
	}
	return max(last, bigBlind)
}

// HandlePlayerAction validates and applies a single action or a call+raise
// pair for the active player.
func (br *BettingRound) HandlePlayerAction(playerID string, intents []Intent, bigBlind int64) (ActionResult, error) {
	if br.Finished {
		return ActionResult{}, newError(CodeRoundFinished, br.ID, "%s betting round is finished", br.Street)
	}
	if playerID != br.ActiveID {
		return ActionResult{}, newError(CodeNotActivePlayer, playerID, "waiting on %s", br.ActiveID)
	}
	if err := validateShape(intents); err != nil {
		return ActionResult{}, err
	}

	idx := br.indexOf(playerID)
	owed := br.AmountToCall(playerID)
	var result ActionResult

	switch intents[0].Type {
	case Fold:
		result.Actions = append(result.Actions, br.appendAction(playerID, Fold, 0))
		br.Players[idx].HasFolded = true

	case Check:
		if owed != 0 {
			return ActionResult{}, newError(CodeInvalidAction, playerID, "cannot check, %d to call", owed)
		}
		result.Actions = append(result.Actions, br.appendAction(playerID, Check, 0))

	case Call:
		if intents[0].Amount != owed {
			return ActionResult{}, newError(CodeInvalidCallAmount, playerID, "call of %d, %d to call", intents[0].Amount, owed)
		}
		var raise int64
		if len(intents) == 2 {
			raise = intents[1].Amount
			if minRaise := br.MinRaise(bigBlind); raise < minRaise {
				return ActionResult{}, newError(CodeInvalidRaiseAmount, playerID, "raise of %d, minimum %d", raise, minRaise)
			}
		}
		result.Actions = append(result.Actions, br.appendAction(playerID, Call, owed))
		result.Committed = owed
		if len(intents) == 2 {
			result.Actions = append(result.Actions, br.appendAction(playerID, Raise, raise))
			result.Committed += raise
			result.Raised = true
		}
	}

	br.Players[idx].HasActed = true
	if result.Raised {
		// A raise reopens the action for everyone still in.
		for i := range br.Players {
			if i != idx && !br.Players[i].HasFolded {
				br.Players[i].HasActed = false
			}
		}
	}

	return result, nil
}

// RotateActivePlayer moves the turn to the next player after the current one
// who is still in and has not acted. When nobody is left the street finishes.
func (br *BettingRound) RotateActivePlayer() (string, bool) {
	if br.Finished {
		return "", false
	}

	start := br.indexOf(br.ActiveID)
	n := len(br.Players)
	for i := 1; i <= n; i++ {
		p := br.Players[(start+i)%n]
		if !p.HasFolded && !p.HasActed {
			br.ActiveID = p.ID
			return p.ID, true
		}
	}

	br.ActiveID = ""
	br.Finished = true
	return "", false
}

// Finish closes the street without further turns.
func (br *BettingRound) Finish() {
	br.ActiveID = ""
	br.Finished = true
}

// ActivePlayers returns the players who have not folded.
func (br *BettingRound) ActivePlayers() []BettingRoundPlayer {
	active := make([]BettingRoundPlayer, 0, len(br.Players))
	for _, p := range br.Players {
		if !p.HasFolded {
			active = append(active, p)
		}
	}
	return active
}

// Clone returns a deep copy.
func (br *BettingRound) Clone() *BettingRound {
	c := *br
	c.Players = slices.Clone(br.Players)
	c.Actions = slices.Clone(br.Actions)
	return &c
}

func (br *BettingRound) indexOf(playerID string) int {
	return slices.IndexFunc(br.Players, func(p BettingRoundPlayer) bool {
		return p.ID == playerID
	})
}

func (br *BettingRound) appendAction(playerID string, t ActionType, amount int64) Action {
	a := Action{
		ID:                   br.newID(),
		Type:                 t,
		Amount:               amount,
		Sequence:             len(br.Actions) + 1,
		BettingRoundPlayerID: playerID,
	}
	br.Actions = append(br.Actions, a)
	return a
}

// validateShape accepts one CHECK, FOLD or CALL, or exactly CALL then RAISE.
func validateShape(intents []Intent) error {
	switch len(intents) {
	case 1:
		switch intents[0].Type {
		case Check, Fold, Call:
			if intents[0].Amount < 0 {
				return newError(CodeInvalidAction, "", "negative amount")
			}
			return nil
		}
	case 2:
		if intents[0].Type == Call && intents[1].Type == Raise && intents[0].Amount >= 0 {
			return nil
		}
	}
	return newError(CodeInvalidAction, "", "unsupported action shape %v", intents)
}
