package matchmaking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sinedd777/towerdef/internal/pubsub"
	"github.com/sinedd777/towerdef/internal/topicmgr"
)

// Queue behaviour defaults. Timeout and intervals are configurable per
// service; these are the values used when no option overrides them.
const (
	DefaultTimeout         = 60 * time.Second
	DefaultSweepInterval   = 2 * time.Second
	DefaultCleanupInterval = 30 * time.Second

	DefaultMaxPlayers = 2
	DefaultGameMode   = "cooperative"
)

// SessionDirectory is the slice of the session layer matchmaking needs.
// Defined here so the session package can satisfy it without an import cycle.
type SessionDirectory interface {
	// FindOpen returns a joinable session with matching parameters, if any.
	FindOpen(gameMode string, maxPlayers int) (sessionID string, ok bool)
	// Create makes a fresh empty session and returns its ID.
	Create(gameMode string, maxPlayers int) (sessionID string, err error)
	// Join adds the connection to the session as a player.
	Join(sessionID, connectionID string) error
}

// Service maintains the waiting queue and groups compatible players into
// sessions. All notifications go out over the bus, addressed per connection.
type Service struct {
	mu     sync.Mutex
	queue  []*Request
	byConn map[string]*Request

	sessions  SessionDirectory
	publisher pubsub.Publisher
	logger    *slog.Logger
	now       func() time.Time

	timeout         time.Duration
	sweepInterval   time.Duration
	cleanupInterval time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the time source. Tests use this to control aging.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTimeout sets how long a request may wait before eviction.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithSweepInterval sets how often the grouping pass runs.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) { s.sweepInterval = d }
}

// WithCleanupInterval sets how often the stale-entry pass runs.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *Service) { s.cleanupInterval = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a matchmaking service. Call Start to run the background
// sweep and cleanup passes.
func NewService(sessions SessionDirectory, publisher pubsub.Publisher, opts ...Option) *Service {
	s := &Service{
		byConn:          make(map[string]*Request),
		sessions:        sessions,
		publisher:       publisher,
		logger:          slog.Default(),
		now:             time.Now,
		timeout:         DefaultTimeout,
		sweepInterval:   DefaultSweepInterval,
		cleanupInterval: DefaultCleanupInterval,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the periodic sweep and cleanup goroutines. They stop when
// ctx is cancelled or Shutdown is called.
func (s *Service) Start(ctx context.Context) {
	go s.loop(ctx, s.sweepInterval, s.Sweep)
	go s.loop(ctx, s.cleanupInterval, s.Cleanup)
}

// Shutdown stops the background passes. Safe to call more than once.
func (s *Service) Shutdown() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Service) loop(ctx context.Context, interval time.Duration, pass func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			pass(ctx)
		}
	}
}

// QuickMatch is the entry point for a "find me a game" request. It prefers
// dropping the player into an existing open session; only when none fits does
// the request enter the queue.
func (s *Service) QuickMatch(ctx context.Context, connectionID string, profile Profile, prefs Preferences) error {
	prefs = normalize(prefs)

	if sessionID, ok := s.sessions.FindOpen(prefs.GameMode, prefs.MaxPlayers); ok {
		if err := s.sessions.Join(sessionID, connectionID); err == nil {
			s.publish(ctx, TopicJoined, EventJoined, connectionID, map[string]any{
				"sessionId": sessionID,
			})
			return nil
		}
		// The open session filled or closed between lookup and join; fall
		// through to the queue.
	}

	_, _, err := s.Enqueue(ctx, connectionID, profile, prefs)
	return err
}

// Enqueue registers a waiting request. It first attempts an immediate match
// against the players already queued; failing that, the request joins the
// queue and the player is told their position.
func (s *Service) Enqueue(ctx context.Context, connectionID string, profile Profile, prefs Preferences) (*Match, int, error) {
	prefs = normalize(prefs)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byConn[connectionID]; ok {
		// Re-requesting refreshes preferences but keeps queue seniority.
		existing.Profile = profile
		existing.Preferences = prefs
		pos := s.positionLocked(existing)
		s.publish(ctx, TopicQueued, EventQueued, connectionID, map[string]any{"position": pos})
		return nil, pos, nil
	}

	req := &Request{
		ConnectionID: connectionID,
		Profile:      profile,
		Preferences:  prefs,
		CreatedAt:    s.now(),
	}

	if group := s.findGroupLocked(req); group != nil {
		match, err := s.createMatchLocked(ctx, group)
		if err == nil {
			return match, 0, nil
		}
		s.logger.Error("immediate match failed, queueing request",
			"connection_id", connectionID, "error", err)
		s.publish(ctx, TopicError, EventError, connectionID, map[string]any{
			"message": "failed_to_create_session",
		})
	}

	s.queue = append(s.queue, req)
	s.byConn[connectionID] = req
	pos := s.positionLocked(req)
	s.publish(ctx, TopicQueued, EventQueued, connectionID, map[string]any{"position": pos})
	return nil, pos, nil
}

// Cancel removes a waiting request. It reports whether one was present.
func (s *Service) Cancel(ctx context.Context, connectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.byConn[connectionID]
	if !ok {
		return false
	}
	s.removeLocked(req)
	s.publish(ctx, TopicCancelled, EventCancelled, connectionID, map[string]any{})
	return true
}

// Position returns the 1-based queue position for a connection, or 0 when it
// is not queued.
func (s *Service) Position(connectionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.byConn[connectionID]
	if !ok {
		return 0
	}
	return s.positionLocked(req)
}

// QueueLen returns the number of waiting requests.
func (s *Service) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// ObserveLatency folds a latency sample into a queued player's profile using
// the (old+new)/2 running average.
func (s *Service) ObserveLatency(connectionID string, sample float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.byConn[connectionID]
	if !ok {
		return
	}
	if req.Profile.Latency == 0 {
		req.Profile.Latency = sample
		return
	}
	req.Profile.Latency = (req.Profile.Latency + sample) / 2
}

// Sweep runs one grouping pass: evict timed-out requests, then greedily form
// full groups in queue order. Requests that still cannot be grouped get their
// attempt counter bumped.
func (s *Service) Sweep(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, req := range snapshot(s.queue) {
		if now.Sub(req.CreatedAt) > s.timeout {
			s.removeLocked(req)
			s.publish(ctx, TopicTimeout, EventTimeout, req.ConnectionID, map[string]any{
				"reason": "timeout",
				"waited": now.Sub(req.CreatedAt).Seconds(),
			})
		}
	}

	for _, req := range snapshot(s.queue) {
		if _, still := s.byConn[req.ConnectionID]; !still {
			continue // grouped or evicted earlier in this pass
		}
		group := s.groupFromQueueLocked(req)
		if group == nil {
			req.Attempts++
			continue
		}
		if _, err := s.createMatchLocked(ctx, group); err != nil {
			s.logger.Error("match creation failed, requests remain queued", "error", err)
			for _, member := range group {
				member.Attempts++
			}
			s.publish(ctx, TopicError, EventError, req.ConnectionID, map[string]any{
				"message": "failed_to_create_session",
			})
		}
	}
}

// Cleanup evicts requests that somehow outlived twice the timeout. Under
// normal operation Sweep gets there first; this pass is the backstop that
// bounds queue memory.
func (s *Service) Cleanup(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, req := range snapshot(s.queue) {
		if now.Sub(req.CreatedAt) > 2*s.timeout {
			s.removeLocked(req)
			s.publish(ctx, TopicTimeout, EventTimeout, req.ConnectionID, map[string]any{
				"reason": "timeout",
				"waited": now.Sub(req.CreatedAt).Seconds(),
			})
		}
	}
}

// findGroupLocked looks for enough queued partners to fill a match around a
// request that is NOT yet in the queue.
func (s *Service) findGroupLocked(req *Request) []*Request {
	need := req.Preferences.MaxPlayers - 1
	if need < 1 {
		return nil
	}
	partners := make([]*Request, 0, need)
	for _, other := range s.queue {
		if Compatible(req.Preferences, other.Preferences) {
			partners = append(partners, other)
			if len(partners) == need {
				return append([]*Request{req}, partners...)
			}
		}
	}
	return nil
}

// groupFromQueueLocked is the sweep variant: the anchor request is already
// queued, so partners are other queued requests.
func (s *Service) groupFromQueueLocked(anchor *Request) []*Request {
	need := anchor.Preferences.MaxPlayers
	if need < 2 {
		return nil
	}
	group := make([]*Request, 0, need)
	group = append(group, anchor)
	for _, other := range s.queue {
		if other == anchor {
			continue
		}
		if Compatible(anchor.Preferences, other.Preferences) {
			group = append(group, other)
			if len(group) == need {
				return group
			}
		}
	}
	return nil
}

// createMatchLocked turns a full group into a session. On failure nothing is
// removed from the queue and the error is returned for the caller to surface.
func (s *Service) createMatchLocked(ctx context.Context, group []*Request) (*Match, error) {
	anchor := group[0]
	sessionID, err := s.sessions.Create(anchor.Preferences.GameMode, anchor.Preferences.MaxPlayers)
	if err != nil {
		return nil, fmt.Errorf("creating session for match: %w", err)
	}

	match := &Match{
		ID:         uuid.New().String(),
		GameMode:   anchor.Preferences.GameMode,
		MaxPlayers: anchor.Preferences.MaxPlayers,
		SessionID:  sessionID,
	}
	for _, member := range group {
		match.Players = append(match.Players, member.ConnectionID)
	}

	for _, member := range group {
		if err := s.sessions.Join(sessionID, member.ConnectionID); err != nil {
			s.logger.Error("joining matched player to session failed",
				"session_id", sessionID, "connection_id", member.ConnectionID, "error", err)
		}
		s.removeLocked(member)
	}

	for _, member := range group {
		s.publish(ctx, TopicMatched, EventMatched, member.ConnectionID, map[string]any{
			"sessionId": sessionID,
			"match":     match,
		})
	}

	s.logger.Info("match created",
		"match_id", match.ID, "session_id", sessionID, "players", len(match.Players))
	return match, nil
}

// positionLocked is 1-based insertion order, so it only shrinks as the queue
// drains ahead of the player.
func (s *Service) positionLocked(req *Request) int {
	for i, other := range s.queue {
		if other == req {
			return i + 1
		}
	}
	return 0
}

func (s *Service) removeLocked(req *Request) {
	delete(s.byConn, req.ConnectionID)
	for i, other := range s.queue {
		if other == req {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

// publish sends one notification on the bus, addressed to a connection. The
// event name in the metadata is the client-facing name the websocket layer
// wraps the payload with; it is distinct from the internal topic name.
func (s *Service) publish(ctx context.Context, topic topicmgr.Topic, event, connectionID string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshaling matchmaking event", "topic", topic.Name(), "error", err)
		return
	}
	msg := pubsub.Message{
		Topic:        topic.Name(),
		ConnectionID: connectionID,
		Payload:      data,
		Metadata:     map[string]string{"event": event},
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("publishing matchmaking event", "topic", topic.Name(), "error", err)
	}
}

func normalize(prefs Preferences) Preferences {
	if prefs.MaxPlayers <= 0 {
		prefs.MaxPlayers = DefaultMaxPlayers
	}
	if prefs.GameMode == "" {
		prefs.GameMode = DefaultGameMode
	}
	if prefs.Region == "" {
		prefs.Region = RegionGlobal
	}
	if prefs.SkillLevel == "" {
		prefs.SkillLevel = SkillIntermediate
	}
	return prefs
}

func snapshot(queue []*Request) []*Request {
	out := make([]*Request, len(queue))
	copy(out, queue)
	return out
}
