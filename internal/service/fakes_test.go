package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"klovn-bot/internal/game"
	"klovn-bot/internal/game/autobus"
	"klovn-bot/internal/game/duel"
	"klovn-bot/internal/model"
)

var (
	errMemGameNotFound = game.NotFound("game_not_found")
	errMemDuelNotFound = game.NotFound("duel_not_found")
	errMemUserNotFound = game.NotFound("user_not_found")
)

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu    sync.Mutex
	users map[int64]*model.User
}

func newMemUsers(users ...model.User) *memUsers {
	m := &memUsers{users: make(map[int64]*model.User)}
	for _, u := range users {
		u := u
		m.users[u.TelegramID] = &u
	}
	return m
}

func (m *memUsers) Upsert(_ context.Context, id int64, username, firstName string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &model.User{TelegramID: id, Username: username, FirstName: firstName, UpdatedAt: time.Now()}
	if old, ok := m.users[id]; ok {
		u.CreatedAt = old.CreatedAt
	} else {
		u.CreatedAt = u.UpdatedAt
	}
	m.users[id] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errMemUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByIDs(_ context.Context, ids []int64) (map[int64]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]*model.User)
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *memUsers) Exists(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	return ok, nil
}

func (m *memUsers) ListOthers(_ context.Context, excludeID int64, limit int) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for id, u := range m.users {
		if id != excludeID && len(out) < limit {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	return out, nil
}

// memAutobus is an in-memory AutobusStore.
type memAutobus struct {
	mu     sync.Mutex
	nextID int64
	tables map[int64]autobus.Table
	logs   map[int64][]model.AutobusLogEntry
	saves  int
}

func newMemAutobus() *memAutobus {
	return &memAutobus{tables: make(map[int64]autobus.Table), logs: make(map[int64][]model.AutobusLogEntry)}
}

func (m *memAutobus) put(t autobus.Table) autobus.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t = t.Clone()
	t.Game.ID = m.nextID
	t.Game.CreatedAt = time.Now()
	for i := range t.Players {
		t.Players[i].GameID = t.Game.ID
	}
	m.tables[t.Game.ID] = t
	return t.Clone()
}

func (m *memAutobus) Create(_ context.Context, t autobus.Table) (autobus.Table, error) {
	return m.put(t), nil
}

func (m *memAutobus) Get(_ context.Context, id int64) (autobus.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return autobus.Table{}, errMemGameNotFound
	}
	return t.Clone(), nil
}

func (m *memAutobus) AddPlayer(_ context.Context, p autobus.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[p.GameID]
	if !ok {
		return errMemGameNotFound
	}
	if t.PlayerIndex(p.UserID) >= 0 {
		return autobus.ErrAlreadyJoined
	}
	t.Players = append(t.Players, p)
	m.tables[p.GameID] = t
	return nil
}

func (m *memAutobus) Save(_ context.Context, t autobus.Table) (autobus.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[t.Game.ID]; !ok {
		return autobus.Table{}, errMemGameNotFound
	}
	t = t.Clone()
	if t.Game.Status == autobus.StatusFinished && t.Game.FinishedAt == nil {
		now := time.Now()
		t.Game.FinishedAt = &now
	}
	m.tables[t.Game.ID] = t
	m.saves++
	return t.Clone(), nil
}

func (m *memAutobus) AppendLog(_ context.Context, entries ...model.AutobusLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		e.ID = int64(len(m.logs[e.GameID]) + 1)
		m.logs[e.GameID] = append(m.logs[e.GameID], e)
	}
	return nil
}

func (m *memAutobus) RecentLog(_ context.Context, id int64, limit int) ([]model.AutobusLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.logs[id]
	out := []model.AutobusLogEntry{}
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *memAutobus) list(match func(t autobus.Table) bool, limit int) []autobus.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, t := range m.tables {
		if match(t) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	var out []autobus.Table
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, m.tables[id].Clone())
	}
	return out
}

func (m *memAutobus) ListForUser(_ context.Context, userID int64, statuses ...autobus.Status) ([]autobus.Table, error) {
	return m.list(func(t autobus.Table) bool {
		if t.PlayerIndex(userID) < 0 {
			return false
		}
		for _, s := range statuses {
			if t.Game.Status == s {
				return true
			}
		}
		return false
	}, 0), nil
}

func (m *memAutobus) ListOpenLobbies(_ context.Context, userID int64, limit int) ([]autobus.Table, error) {
	return m.list(func(t autobus.Table) bool {
		return t.Game.Status == autobus.StatusLobby && t.PlayerIndex(userID) < 0
	}, limit), nil
}

func (m *memAutobus) ListFinishedSince(_ context.Context, userID int64, since time.Time, limit int) ([]autobus.Table, error) {
	return m.list(func(t autobus.Table) bool {
		return t.Game.Status == autobus.StatusFinished && t.PlayerIndex(userID) >= 0 &&
			t.Game.FinishedAt != nil && t.Game.FinishedAt.After(since)
	}, limit), nil
}

// memDuels is an in-memory DuelStore.
type memDuels struct {
	mu     sync.Mutex
	nextID int64
	snaps  map[int64]duel.Snapshot
	logs   map[int64][]model.DuelLogEntry
}

func newMemDuels() *memDuels {
	return &memDuels{snaps: make(map[int64]duel.Snapshot), logs: make(map[int64][]model.DuelLogEntry)}
}

func (m *memDuels) Create(_ context.Context, s duel.Snapshot) (duel.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.Duel.ID = m.nextID
	s.Duel.CreatedAt = time.Now()
	s.Player1.DuelID = s.Duel.ID
	s.Player2.DuelID = s.Duel.ID
	m.snaps[s.Duel.ID] = s
	return s, nil
}

func (m *memDuels) Get(_ context.Context, id int64) (duel.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[id]
	if !ok {
		return duel.Snapshot{}, errMemDuelNotFound
	}
	return s, nil
}

func (m *memDuels) Save(_ context.Context, s duel.Snapshot) (duel.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snaps[s.Duel.ID]; !ok {
		return duel.Snapshot{}, errMemDuelNotFound
	}
	if s.Duel.Status == duel.StatusFinished && s.Duel.FinishedAt == nil {
		now := time.Now()
		s.Duel.FinishedAt = &now
	}
	m.snaps[s.Duel.ID] = s
	return s, nil
}

func (m *memDuels) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snaps[id]; !ok {
		return errMemDuelNotFound
	}
	delete(m.snaps, id)
	delete(m.logs, id)
	return nil
}

func (m *memDuels) ExistsOpenBetween(_ context.Context, a, b int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snaps {
		d := s.Duel
		if d.Status != duel.StatusFinished && d.HasPlayer(a) && d.HasPlayer(b) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDuels) AppendLog(_ context.Context, e model.DuelLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[e.DuelID] = append(m.logs[e.DuelID], e)
	return nil
}

func (m *memDuels) RecentLog(_ context.Context, id int64, limit int) ([]model.DuelLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.logs[id]
	out := []model.DuelLogEntry{}
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *memDuels) ListForUser(_ context.Context, userID int64) ([]duel.Duel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []duel.Duel
	for _, s := range m.snaps {
		if s.Duel.HasPlayer(userID) && s.Duel.Status != duel.StatusFinished {
			out = append(out, s.Duel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memDuels) ListFinishedSince(_ context.Context, userID int64, since time.Time, limit int) ([]duel.Duel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []duel.Duel
	for _, s := range m.snaps {
		d := s.Duel
		if d.HasPlayer(userID) && d.Status == duel.StatusFinished && d.FinishedAt != nil && d.FinishedAt.After(since) && len(out) < limit {
			out = append(out, d)
		}
	}
	return out, nil
}

type notice struct {
	UserID int64
	Text   string
}

// recordingNotifier keeps every notification.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notice
}

func (r *recordingNotifier) Notify(userID int64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notice{UserID: userID, Text: text})
}

func (r *recordingNotifier) to(userID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.sent {
		if n.UserID == userID {
			out = append(out, n.Text)
		}
	}
	return out
}
