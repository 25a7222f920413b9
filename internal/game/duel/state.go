package duel

import "klovn-bot/internal/game"

// Gauge bounds.
const (
	GaugeMin = 0
	GaugeMax = 100

	// FoulThreshold is the alcometer level past which an action counts as a drunk foul.
	FoulThreshold = 80
)

// Initial stats for a fresh duelist.
const (
	InitialAlcometer = 0
	InitialRespect   = 50
	InitialStomak    = 50
	InitialNovcanik  = 500
)

// PlayerState is one duelist's gauges.
type PlayerState struct {
	DuelID        int64 `json:"duel_id"`
	UserID        int64 `json:"user_id"`
	Alcometer     int   `json:"alcometer"`
	Respect       int   `json:"respect"`
	Stomak        int   `json:"stomak"`
	Novcanik      int   `json:"novcanik"`
	TurnNumber    int   `json:"turn_number"`
	PijaniFoulovi int   `json:"pijani_foulovi"`
}

// InitialState returns the starting gauges for userID.
func InitialState(duelID, userID int64) PlayerState {
	return PlayerState{
		DuelID:    duelID,
		UserID:    userID,
		Alcometer: InitialAlcometer,
		Respect:   InitialRespect,
		Stomak:    InitialStomak,
		Novcanik:  InitialNovcanik,
	}
}

func clamp(v int) int {
	return max(GaugeMin, min(GaugeMax, v))
}

// ApplyAction spends one turn on the action named key and returns the new
// gauges with a random flavor line. s is not modified.
func ApplyAction(s PlayerState, key string, r game.Rand) (PlayerState, string, error) {
	a, ok := Lookup(key)
	if !ok {
		return s, "", ErrUnknownAction
	}
	if a.Cost > s.Novcanik {
		return s, "", ErrInsufficientFunds
	}

	next := s
	next.Novcanik -= a.Cost
	next.TurnNumber++

	switch {
	case a.Gamble:
		if next.Alcometer >= GambleMinAlco && next.Alcometer <= GambleMaxAlco {
			next.Respect = clamp(next.Respect + GambleWin)
		} else {
			next.Respect = clamp(next.Respect + GambleLoss)
		}
	case a.Reset:
		next.Alcometer = a.ResetAlco
		next.Respect = clamp(next.Respect + a.Respect)
	default:
		next.Alcometer = clamp(next.Alcometer + a.Alco)
		next.Respect = clamp(next.Respect + a.Respect)
		next.Stomak = clamp(next.Stomak + a.Stomak)
	}

	if next.Alcometer > FoulThreshold {
		next.PijaniFoulovi++
	}

	return next, pickFlavor(key, r), nil
}

func pickFlavor(key string, r game.Rand) string {
	pool := FlavorTexts[key]
	if len(pool) == 0 {
		return ""
	}
	return pool[game.OrDefault(r).Intn(len(pool))]
}

// LossReason identifies why a duelist lost on the spot.
type LossReason string

const (
	LossNone      LossReason = ""
	LossAlcometer LossReason = "alcometer"
	LossRespect   LossReason = "respect"
	LossBankrupt  LossReason = "bankrupt"
)

var lossMessages = map[LossReason]string{
	LossAlcometer: "Pao pod sto! Alcometer preko 95!",
	LossRespect:   "Ekipa te izbacila! Respect ispod 10!",
	LossBankrupt:  "Bankrot! Nemas vise dinara!",
}

// Message is the text shown to players.
func (l LossReason) Message() string {
	return lossMessages[l]
}

// CheckInstantLoss reports the first losing condition of s, checked in the
// order alcometer, respect, wallet.
func CheckInstantLoss(s PlayerState) LossReason {
	switch {
	case s.Alcometer > 95:
		return LossAlcometer
	case s.Respect < 10:
		return LossRespect
	case s.Novcanik < 0:
		return LossBankrupt
	default:
		return LossNone
	}
}

// CalculateScore is respect*2 + (100 - alcometer) - fouls*10.
func CalculateScore(s PlayerState) int {
	return s.Respect*2 + (100 - s.Alcometer) - s.PijaniFoulovi*10
}
