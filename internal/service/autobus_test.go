package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klovn-bot/internal/game"
	"klovn-bot/internal/game/autobus"
	"klovn-bot/internal/game/cards"
	"klovn-bot/internal/model"
	"klovn-bot/internal/pkg/lock"
)

var (
	mile = model.User{TelegramID: 1, Username: "mile", FirstName: "Mile"}
	zoki = model.User{TelegramID: 2, Username: "zoki", FirstName: "Zoki"}
)

func newAutobusService(maxPlayers int) (*AutobusService, *memAutobus, *recordingNotifier) {
	store := newMemAutobus()
	notifier := &recordingNotifier{}
	svc := NewAutobusService(store, lock.NewKeyed(), notifier, AutobusConfig{MaxPlayers: maxPlayers, LockTimeout: time.Second}, nil)
	return svc, store, notifier
}

func sc(rank, suit string) cards.Card {
	return cards.Card{Rank: rank, Suit: suit}
}

// seededTable is an active two-seat game whose pyramid is all threes.
// flipped is the index of the current card.
func seededTable(flipped int) autobus.Table {
	pyramid := make([]autobus.PyramidCard, cards.PyramidSize)
	for i := range pyramid {
		pyramid[i] = autobus.PyramidCard{Card: sc("3", "♠️"), Index: i, Flipped: i <= flipped}
	}
	return autobus.Table{
		Game: autobus.Game{
			Status:           autobus.StatusActive,
			Phase:            autobus.PhasePyramid,
			Pyramid:          pyramid,
			Deck:             []cards.Card{sc("5", "♣️"), sc("K", "♣️"), sc("2", "♣️")},
			CurrentCardIndex: flipped,
			BusQueue:         []int64{},
			CreatedBy:        1,
		},
		Players: []autobus.Player{
			{UserID: 1, FirstName: "Mile", Hand: []cards.Card{sc("3", "♥️"), sc("2", "♦️")}, TurnOrder: 0},
			{UserID: 2, FirstName: "Zoki", Hand: []cards.Card{sc("2", "♥️")}, TurnOrder: 1},
		},
	}
}

func TestAutobusService_LobbyFlow(t *testing.T) {
	svc, store, notifier := newAutobusService(0)
	ctx := context.Background()

	table, err := svc.Create(ctx, mile)
	require.NoError(t, err)
	gameID := table.Game.ID

	joined, err := svc.Join(ctx, gameID, zoki)
	require.NoError(t, err)
	require.Len(t, joined.Players, 2)
	assert.Equal(t, 1, joined.Players[1].TurnOrder)
	assert.Len(t, notifier.to(1), 1, "creator hears about the new player")

	_, err = svc.Join(ctx, gameID, zoki)
	assert.ErrorIs(t, err, autobus.ErrAlreadyJoined)

	_, err = svc.Start(ctx, gameID, 2)
	assert.ErrorIs(t, err, autobus.ErrNotCreator)

	started, err := svc.Start(ctx, gameID, 1)
	require.NoError(t, err)
	assert.Equal(t, autobus.StatusActive, started.Game.Status)
	assert.Equal(t, autobus.PhasePyramid, started.Game.Phase)
	assert.Equal(t, autobus.NoCardFlipped, started.Game.CurrentCardIndex)
	assert.Len(t, started.Game.Deck, cards.DeckSize-cards.PyramidSize-2*autobus.HandSize)
	assert.Len(t, notifier.to(2), 1)

	_, err = svc.Join(ctx, gameID, model.User{TelegramID: 3})
	assert.ErrorIs(t, err, autobus.ErrGameNotInLobby)

	out, err := svc.Flip(ctx, gameID, 2)
	require.NoError(t, err)
	require.NotNil(t, out.Flip)
	assert.Equal(t, 0, out.Flip.Card.Index)

	state, err := svc.State(ctx, gameID, 1)
	require.NoError(t, err)
	assert.True(t, state.IsMyMatchTurn)
	assert.False(t, state.NeedsFlip)
	assert.Len(t, state.MyHand, autobus.HandSize)
	require.Len(t, state.RecentLog, 1)
	assert.Equal(t, "flip_card", state.RecentLog[0].ActionType)

	_, err = svc.State(ctx, gameID, 99)
	assert.ErrorIs(t, err, autobus.ErrNotParticipant)
	assert.Len(t, store.logs[gameID], 1)
}

func TestAutobusService_GameFull(t *testing.T) {
	svc, _, _ := newAutobusService(2)
	ctx := context.Background()

	table, err := svc.Create(ctx, mile)
	require.NoError(t, err)
	_, err = svc.Join(ctx, table.Game.ID, zoki)
	require.NoError(t, err)

	_, err = svc.Join(ctx, table.Game.ID, model.User{TelegramID: 3})
	assert.ErrorIs(t, err, autobus.ErrGameFull)
}

func TestAutobusService_ConcurrentJoinsRespectCapacity(t *testing.T) {
	svc, store, _ := newAutobusService(autobus.DefaultMaxPlayers)
	ctx := context.Background()

	table, err := svc.Create(ctx, mile)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	joined, full := 0, 0
	for id := int64(10); id < 30; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.Join(ctx, table.Game.ID, model.User{TelegramID: id})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				joined++
			} else if assert.ErrorIs(t, err, autobus.ErrGameFull) {
				full++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, autobus.DefaultMaxPlayers-1, joined)
	assert.Equal(t, 20-joined, full)

	got, err := store.Get(ctx, table.Game.ID)
	require.NoError(t, err)
	assert.Len(t, got.Players, autobus.DefaultMaxPlayers)
	for i, p := range got.Players {
		assert.Equal(t, i, p.TurnOrder, "turn orders stay dense")
	}
}

func TestAutobusService_MatchAndPass(t *testing.T) {
	svc, store, notifier := newAutobusService(0)
	ctx := context.Background()
	gameID := store.put(seededTable(0)).Game.ID

	out, err := svc.Match(ctx, gameID, 1, sc("3", "♥️"), 2)
	require.NoError(t, err)
	require.NotNil(t, out.Match)
	assert.Equal(t, cards.DrinkValueForIndex(0), out.Match.DrinksGiven)

	zokiNotes := notifier.to(2)
	require.Len(t, zokiNotes, 2, "drinks notice and match turn notice")
	assert.Contains(t, zokiNotes[0], "Mile gave you")

	_, err = svc.Pass(ctx, gameID, 1)
	assert.ErrorIs(t, err, autobus.ErrNotYourTurn)

	out, err = svc.Pass(ctx, gameID, 2)
	require.NoError(t, err)
	assert.True(t, out.Transition.RoundClosed)

	got, err := store.Get(ctx, gameID)
	require.NoError(t, err)
	assert.True(t, got.Game.MatchingDone)
	assert.Equal(t, 1, got.Players[1].DrinksReceived)
	assert.Len(t, got.Players[0].Hand, 1)

	logs := store.logs[gameID]
	require.Len(t, logs, 2)
	assert.Equal(t, "match_card", logs[0].ActionType)
	assert.Equal(t, int64(2), logs[0].TargetUserID)
	require.NotNil(t, logs[0].MatchedCard)
	assert.Equal(t, sc("3", "♠️"), *logs[0].MatchedCard)
	assert.Equal(t, "pass", logs[1].ActionType)
}

func TestAutobusService_RejectedActionIsNotSaved(t *testing.T) {
	svc, store, notifier := newAutobusService(0)
	ctx := context.Background()
	gameID := store.put(seededTable(0)).Game.ID

	_, err := svc.Match(ctx, gameID, 1, sc("2", "♦️"), 2)
	assert.ErrorIs(t, err, autobus.ErrCardDoesNotMatch)
	assert.ErrorIs(t, err, game.ErrValidation)

	_, err = svc.Flip(ctx, gameID, 1)
	assert.ErrorIs(t, err, autobus.ErrMatchingInProgress)

	_, err = svc.Pass(ctx, 404, 1)
	assert.ErrorIs(t, err, game.ErrNotFound)

	assert.Zero(t, store.saves)
	assert.Empty(t, store.logs[gameID])
	assert.Empty(t, notifier.sent)
}

func TestAutobusService_BusRun(t *testing.T) {
	svc, store, notifier := newAutobusService(0)
	ctx := context.Background()

	seed := seededTable(autobus.LastPyramidIndex)
	seed.Game.MatchTurnIndex = 1
	seed.Players[0].PassedCurrent = true
	gameID := store.put(seed).Game.ID

	out, err := svc.Pass(ctx, gameID, 2)
	require.NoError(t, err)
	require.True(t, out.Transition.BusStarted)
	assert.Equal(t, int64(1), out.Transition.BusPlayerID)
	assert.Contains(t, notifier.to(1), "🚌 You're on the bus! Guess higher or lower.")

	_, err = svc.BusGuess(ctx, gameID, 2, autobus.GuessHigher)
	assert.ErrorIs(t, err, autobus.ErrNotBusPlayer)

	out, err = svc.BusGuess(ctx, gameID, 1, autobus.GuessHigher)
	require.NoError(t, err)
	require.NotNil(t, out.Bus)
	assert.Equal(t, autobus.ResultCorrect, out.Bus.Result)
	assert.Equal(t, 1, out.Bus.Progress)

	state, err := svc.State(ctx, gameID, 1)
	require.NoError(t, err)
	assert.True(t, state.IsBusPlayer)
	require.NotNil(t, state.Game.BusCurrentCard)
	assert.Equal(t, sc("K", "♣️"), *state.Game.BusCurrentCard)

	last := store.logs[gameID][len(store.logs[gameID])-1]
	assert.Equal(t, "bus_guess", last.ActionType)
	assert.Equal(t, "higher", last.BusGuess)
	assert.Equal(t, "correct", last.BusResult)
}

func TestAutobusService_Lobby(t *testing.T) {
	svc, store, _ := newAutobusService(0)
	ctx := context.Background()

	mine, err := svc.Create(ctx, mile)
	require.NoError(t, err)
	other, err := svc.Create(ctx, zoki)
	require.NoError(t, err)

	done := seededTable(0)
	done.Game.Status = autobus.StatusFinished
	done.Game.Phase = autobus.PhaseFinished
	finished := store.put(done)
	_, err = store.Save(ctx, finished)
	require.NoError(t, err)

	lobby, err := svc.Lobby(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), lobby.MyID)
	require.Len(t, lobby.MyGames, 1)
	assert.Equal(t, mine.Game.ID, lobby.MyGames[0].ID)
	require.Len(t, lobby.OpenGames, 1)
	assert.Equal(t, other.Game.ID, lobby.OpenGames[0].ID)
	assert.Equal(t, "Zoki", lobby.OpenGames[0].CreatorName)
	assert.Equal(t, 1, lobby.OpenGames[0].PlayerCount)
	require.Len(t, lobby.RecentFinished, 1)
	assert.Equal(t, finished.Game.ID, lobby.RecentFinished[0].ID)
}
