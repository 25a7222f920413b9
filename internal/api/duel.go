package api

import (
	"net/http"

	"klovn-bot/internal/game/duel"
	"klovn-bot/internal/model"
)

type createDuelRequest struct {
	OpponentID int64 `json:"opponent_id"`
}

type createdDuelResponse struct {
	OK     bool  `json:"ok"`
	DuelID int64 `json:"duel_id"`
}

type duelActionRequest struct {
	Action string `json:"action"`
}

type duelActionResponse struct {
	OK bool `json:"ok"`
	duel.Outcome
}

func (h *Handler) duelActive(w http.ResponseWriter, r *http.Request, user model.User) {
	overview, err := h.duels.Active(r.Context(), user.TelegramID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *Handler) duelCreate(w http.ResponseWriter, r *http.Request, user model.User) {
	var req createDuelRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.OpponentID == 0 {
		writeError(w, r, errMissingOpponent)
		return
	}
	snap, err := h.duels.Create(r.Context(), user.TelegramID, req.OpponentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdDuelResponse{OK: true, DuelID: snap.Duel.ID})
}

func (h *Handler) duelState(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	state, err := h.duels.State(r.Context(), id, user.TelegramID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) duelAccept(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.duels.Accept(r.Context(), id, user.TelegramID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) duelDecline(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.duels.Decline(r.Context(), id, user.TelegramID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) duelAction(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req duelActionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.duels.Act(r.Context(), id, user.TelegramID, req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, duelActionResponse{OK: true, Outcome: out})
}
