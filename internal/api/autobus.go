package api

import (
	"net/http"

	"klovn-bot/internal/game/autobus"
	"klovn-bot/internal/game/cards"
	"klovn-bot/internal/model"
)

type createdGameResponse struct {
	OK     bool  `json:"ok"`
	GameID int64 `json:"game_id"`
}

type joinedResponse struct {
	OK          bool `json:"ok"`
	PlayerCount int  `json:"player_count"`
}

type autobusActionResponse struct {
	OK bool `json:"ok"`
	autobus.Outcome
}

type matchRequest struct {
	Card         cards.Card `json:"card"`
	TargetUserID int64      `json:"target_user_id"`
}

type busGuessRequest struct {
	Guess autobus.Guess `json:"guess"`
}

func (h *Handler) autobusLobby(w http.ResponseWriter, r *http.Request, user model.User) {
	lobby, err := h.autobus.Lobby(r.Context(), user.TelegramID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lobby)
}

func (h *Handler) autobusCreate(w http.ResponseWriter, r *http.Request, user model.User) {
	t, err := h.autobus.Create(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdGameResponse{OK: true, GameID: t.Game.ID})
}

func (h *Handler) autobusState(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	state, err := h.autobus.State(r.Context(), id, user.TelegramID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) autobusJoin(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.autobus.Join(r.Context(), id, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, joinedResponse{OK: true, PlayerCount: len(t.Players)})
}

func (h *Handler) autobusStart(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.autobus.Start(r.Context(), id, user.TelegramID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) autobusFlip(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.autobus.Flip(r.Context(), id, user.TelegramID)
	h.writeOutcome(w, r, out, err)
}

func (h *Handler) autobusMatch(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req matchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.autobus.Match(r.Context(), id, user.TelegramID, req.Card, req.TargetUserID)
	h.writeOutcome(w, r, out, err)
}

func (h *Handler) autobusPass(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.autobus.Pass(r.Context(), id, user.TelegramID)
	h.writeOutcome(w, r, out, err)
}

func (h *Handler) autobusBusGuess(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req busGuessRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.autobus.BusGuess(r.Context(), id, user.TelegramID, req.Guess)
	h.writeOutcome(w, r, out, err)
}

func (h *Handler) writeOutcome(w http.ResponseWriter, r *http.Request, out autobus.Outcome, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, autobusActionResponse{OK: true, Outcome: out})
}
