// Package duel implements Kafanski Duel, a turn-based two player bar
// contest. Each duelist spends dinars on drinks, food and stunts to keep
// respect high and the alcometer below the table.
package duel

import (
	"fmt"
	"time"

	"klovn-bot/internal/game"
)

const (
	// DefaultMaxTurns is the number of actions each duelist gets.
	DefaultMaxTurns = 10
)

// Status is the lifecycle state of a duel.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Duel is the persisted duel row.
type Duel struct {
	ID              int64      `json:"id"`
	Player1ID       int64      `json:"player1_id"`
	Player2ID       int64      `json:"player2_id"`
	Status          Status     `json:"status"`
	WinnerID        int64      `json:"winner_id"` // 0 until finished
	CurrentTurnUser int64      `json:"current_turn_user"`
	CreatedAt       time.Time  `json:"created_at"`
	FinishedAt      *time.Time `json:"finished_at"`
}

// HasPlayer reports whether userID is one of the duelists.
func (d Duel) HasPlayer(userID int64) bool {
	return userID != 0 && (d.Player1ID == userID || d.Player2ID == userID)
}

// Opponent returns the other duelist.
func (d Duel) Opponent(userID int64) int64 {
	if d.Player1ID == userID {
		return d.Player2ID
	}
	return d.Player1ID
}

// Snapshot is a duel with both players' gauges.
type Snapshot struct {
	Duel    Duel
	Player1 PlayerState
	Player2 PlayerState
}

// State returns the gauges of userID.
func (s Snapshot) State(userID int64) (PlayerState, bool) {
	switch userID {
	case s.Duel.Player1ID:
		return s.Player1, true
	case s.Duel.Player2ID:
		return s.Player2, true
	}
	return PlayerState{}, false
}

func (s *Snapshot) setState(st PlayerState) {
	if st.UserID == s.Duel.Player1ID {
		s.Player1 = st
	} else {
		s.Player2 = st
	}
}

// NewDuel opens a challenge. The challenger will move first once accepted.
func NewDuel(challengerID, opponentID int64) (Snapshot, error) {
	if challengerID == opponentID {
		return Snapshot{}, ErrSelfChallenge
	}
	return Snapshot{
		Duel: Duel{
			Player1ID:       challengerID,
			Player2ID:       opponentID,
			Status:          StatusWaiting,
			CurrentTurnUser: challengerID,
		},
		Player1: InitialState(0, challengerID),
		Player2: InitialState(0, opponentID),
	}, nil
}

// checkAnswer runs the checks shared by Accept and Decline.
func checkAnswer(d Duel, userID int64) error {
	if d.Status != StatusWaiting {
		return ErrDuelNotWaiting
	}
	if d.Player2ID != userID {
		return ErrNotChallenged
	}
	return nil
}

// Accept starts a waiting duel. Only the challenged player may accept.
func Accept(d Duel, userID int64) (Duel, error) {
	if err := checkAnswer(d, userID); err != nil {
		return d, err
	}
	d.Status = StatusActive
	d.CurrentTurnUser = d.Player1ID
	return d, nil
}

// Decline checks that userID may turn the challenge down.
func Decline(d Duel, userID int64) error {
	return checkAnswer(d, userID)
}

// Config holds configuration for the duel game.
type Config struct {
	MaxTurns int
}

// Game implements the Game interface for Kafanski Duel and owns the rules
// that depend on configuration.
type Game struct {
	maxTurns int
	rand     game.Rand
}

// New creates a Game. A nil r uses the process-wide source.
func New(cfg *Config, r game.Rand) *Game {
	maxTurns := DefaultMaxTurns
	if cfg != nil && cfg.MaxTurns > 0 {
		maxTurns = cfg.MaxTurns
	}
	return &Game{maxTurns: maxTurns, rand: game.OrDefault(r)}
}

var _ game.Game = (*Game)(nil)

// Name returns the game's display name.
func (g *Game) Name() string { return "Kafanski Duel" }

// Command returns the command that triggers this game.
func (g *Game) Command() string { return "duel" }

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Challenge a friend: drink, eat and sing for respect without ending up under the table."
}

func (g *Game) WebAppPath() string { return "/duel" }
func (g *Game) MinPlayers() int    { return 2 }
func (g *Game) MaxPlayers() int    { return 2 }

// MaxTurns returns the per-player action limit.
func (g *Game) MaxTurns() int { return g.maxTurns }

// LogEntry is the log row produced by an action.
type LogEntry struct {
	UserID     int64
	TurnNumber int
	ActionType string
	FlavorText string
}

// Notice asks the caller to tell a player something happened.
type Notice struct {
	UserID int64
	Text   string
}

// Outcome is the result of one action.
type Outcome struct {
	Action      Action      `json:"action"`
	FlavorText  string      `json:"flavor_text"`
	NewState    PlayerState `json:"new_state"`
	GameOver    bool        `json:"game_over"`
	LossReason  LossReason  `json:"loss_reason,omitempty"`
	LossMessage string      `json:"loss_message,omitempty"`
	WinnerID    int64       `json:"winner_id,omitempty"`
	Scored      bool        `json:"scored"`
	MyScore     int         `json:"my_score,omitempty"`
	OppScore    int         `json:"opp_score,omitempty"`
	Log         LogEntry    `json:"-"`
	Notices     []Notice    `json:"-"`
}

// Apply plays key for userID: it spends the turn, then ends the duel on an
// instant loss or once both players used every turn, otherwise hands the
// turn over.
func (g *Game) Apply(s Snapshot, userID int64, key string) (Snapshot, Outcome, error) {
	a, ok := Lookup(key)
	if !ok {
		return s, Outcome{}, ErrUnknownAction
	}
	if s.Duel.Status != StatusActive {
		return s, Outcome{}, ErrDuelNotActive
	}
	if !s.Duel.HasPlayer(userID) {
		return s, Outcome{}, ErrNotParticipant
	}
	if s.Duel.CurrentTurnUser != userID {
		return s, Outcome{}, ErrNotYourTurn
	}

	mine, _ := s.State(userID)
	newState, flavor, err := ApplyAction(mine, key, g.rand)
	if err != nil {
		return s, Outcome{}, err
	}

	next := s
	next.setState(newState)
	opponentID := s.Duel.Opponent(userID)
	other, _ := next.State(opponentID)

	out := Outcome{
		Action:     a,
		FlavorText: flavor,
		NewState:   newState,
		Log: LogEntry{
			UserID:     userID,
			TurnNumber: newState.TurnNumber,
			ActionType: key,
			FlavorText: flavor,
		},
	}

	if loss := CheckInstantLoss(newState); loss != LossNone {
		next.Duel.Status = StatusFinished
		next.Duel.WinnerID = opponentID
		out.GameOver = true
		out.LossReason = loss
		out.LossMessage = loss.Message()
		out.WinnerID = opponentID
		out.Notices = []Notice{{
			UserID: opponentID,
			Text:   fmt.Sprintf("🏆 You won the duel! Your opponent: %s", loss.Message()),
		}}
		return next, out, nil
	}

	if newState.TurnNumber >= g.maxTurns && other.TurnNumber >= g.maxTurns {
		out.Scored = true
		out.MyScore = CalculateScore(newState)
		out.OppScore = CalculateScore(other)

		switch {
		case out.MyScore > out.OppScore:
			out.WinnerID = userID
		case out.OppScore > out.MyScore:
			out.WinnerID = opponentID
		case g.rand.Intn(2) == 0:
			out.WinnerID = userID
		default:
			out.WinnerID = opponentID
		}

		next.Duel.Status = StatusFinished
		next.Duel.WinnerID = out.WinnerID
		out.GameOver = true
		out.Notices = []Notice{{
			UserID: opponentID,
			Text:   fmt.Sprintf("🏁 Duel over: %d vs %d", out.OppScore, out.MyScore),
		}}
		return next, out, nil
	}

	next.Duel.CurrentTurnUser = opponentID
	out.Notices = []Notice{{
		UserID: opponentID,
		Text:   fmt.Sprintf("🍻 Your turn in the duel! Opponent ordered %s %s", a.Emoji, a.Label),
	}}
	return next, out, nil
}

// StateView is a duel as one participant sees it.
type StateView struct {
	Duel             Duel              `json:"duel"`
	Me               PlayerState       `json:"me"`
	Opponent         PlayerState       `json:"opponent"`
	MyID             int64             `json:"my_id"`
	IsMyTurn         bool              `json:"is_my_turn"`
	AvailableActions []AvailableAction `json:"available_actions"`
	MaxTurns         int               `json:"max_turns"`
}

// View projects s for userID. Only participants may look.
func (g *Game) View(s Snapshot, userID int64) (StateView, error) {
	mine, ok := s.State(userID)
	if !ok || !s.Duel.HasPlayer(userID) {
		return StateView{}, ErrNotParticipant
	}
	other, _ := s.State(s.Duel.Opponent(userID))

	v := StateView{
		Duel:     s.Duel,
		Me:       mine,
		Opponent: other,
		MyID:     userID,
		IsMyTurn: s.Duel.Status == StatusActive && s.Duel.CurrentTurnUser == userID,
		MaxTurns: g.maxTurns,
	}
	if v.IsMyTurn {
		v.AvailableActions = AvailableActions(mine)
	}
	return v, nil
}
