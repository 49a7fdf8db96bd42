package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sinedd777/towerdef/internal/game"
	"github.com/sinedd777/towerdef/internal/pathfind"
	"github.com/sinedd777/towerdef/internal/script"
)

// Session is one running game: its authoritative state behind a processor,
// plus the connections that are members of it.
type Session struct {
	ID         string
	GameMode   string
	MaxPlayers int
	CreatedAt  time.Time

	processor *game.Processor
}

// Processor returns the action processor owning this session's state.
func (s *Session) Processor() *game.Processor {
	return s.processor
}

// Manager owns the set of live sessions and the connection-to-session index.
// It satisfies the matchmaking SessionDirectory contract, so the matchmaker
// can place players without the two packages importing each other.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byConn   map[string]string // connection ID -> session ID
	members  map[string]map[string]struct{}

	gridSize int
	balance  *script.Engine
	logger   *slog.Logger
	now      func() time.Time

	pruneInterval time.Duration
	done          chan struct{}
	stopOnce      sync.Once
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithPruneInterval sets how often rate-limit history is pruned.
func WithPruneInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.pruneInterval = d }
}

// NewManager creates a session manager. gridSize is the playfield size used
// for every new session; balance supplies tower stats to each processor.
func NewManager(gridSize int, balance *script.Engine, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:      make(map[string]*Session),
		byConn:        make(map[string]string),
		members:       make(map[string]map[string]struct{}),
		gridSize:      gridSize,
		balance:       balance,
		logger:        slog.Default().With("service", "session"),
		now:           time.Now,
		pruneInterval: 30 * time.Second,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the periodic rate-history prune across all sessions.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.done:
				return
			case <-ticker.C:
				m.pruneAll()
			}
		}
	}()
}

// Shutdown stops background work. Safe to call more than once.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *Manager) pruneAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sess := range m.sessions {
		sess.processor.PruneRateHistory()
	}
}

// Create makes a fresh session and returns its ID.
func (m *Manager) Create(gameMode string, maxPlayers int) (string, error) {
	if maxPlayers < 1 {
		return "", fmt.Errorf("session needs at least one player slot, got %d", maxPlayers)
	}

	grid := pathfind.NewGrid(m.gridSize)
	spawns, exit := game.DefaultLayout(grid, maxPlayers)
	state := game.NewState(grid, spawns, exit)

	sess := &Session{
		ID:         uuid.New().String(),
		GameMode:   gameMode,
		MaxPlayers: maxPlayers,
		CreatedAt:  m.now(),
		processor:  game.NewProcessor(state, m.balance),
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.members[sess.ID] = make(map[string]struct{})
	m.mu.Unlock()

	m.logger.Info("session created", "session_id", sess.ID,
		"game_mode", gameMode, "max_players", maxPlayers)
	return sess.ID, nil
}

// FindOpen returns a session with matching parameters that still has room and
// is still in the building phase. Oldest sessions are preferred so they fill
// before new ones open.
func (m *Manager) FindOpen(gameMode string, maxPlayers int) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []*Session
	for _, sess := range m.sessions {
		if sess.GameMode != gameMode || sess.MaxPlayers != maxPlayers {
			continue
		}
		if len(m.members[sess.ID]) >= sess.MaxPlayers {
			continue
		}
		if sess.processor.State().Phase != game.PhaseBuilding {
			continue
		}
		candidates = append(candidates, sess)
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return candidates[0].ID, true
}

// Join adds a connection to a session as a player. A connection can only be
// in one session at a time; joining a second one fails.
func (m *Manager) Join(sessionID, connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	if current, in := m.byConn[connectionID]; in {
		if current == sessionID {
			return nil
		}
		return fmt.Errorf("connection %s already in session %s", connectionID, current)
	}
	if len(m.members[sessionID]) >= sess.MaxPlayers {
		return fmt.Errorf("session %s is full", sessionID)
	}

	m.members[sessionID][connectionID] = struct{}{}
	m.byConn[connectionID] = sessionID
	sess.processor.Join(connectionID)

	m.logger.Info("player joined session",
		"session_id", sessionID, "connection_id", connectionID,
		"players", len(m.members[sessionID]))
	return nil
}

// Leave removes a connection from whatever session it is in. Empty sessions
// are torn down. It reports whether the connection was in a session.
func (m *Manager) Leave(connectionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessionID, ok := m.byConn[connectionID]
	if !ok {
		return false
	}
	delete(m.byConn, connectionID)
	delete(m.members[sessionID], connectionID)

	sess := m.sessions[sessionID]
	sess.processor.Leave(connectionID)

	if len(m.members[sessionID]) == 0 {
		delete(m.sessions, sessionID)
		delete(m.members, sessionID)
		m.logger.Info("session torn down", "session_id", sessionID)
	}
	return true
}

// Get returns a session by ID.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	return sess, ok
}

// SessionFor resolves the session a connection belongs to.
func (m *Manager) SessionFor(connectionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sessionID, ok := m.byConn[connectionID]
	if !ok {
		return nil, false
	}
	sess, ok := m.sessions[sessionID]
	return sess, ok
}

// Members returns the connection IDs in a session, sorted for determinism.
func (m *Manager) Members(sessionID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.members[sessionID]))
	for id := range m.members[sessionID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
