package game

import (
	"encoding/json"
	"log/slog"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sinedd777/towerdef/internal/pathfind"
	"github.com/sinedd777/towerdef/internal/script"
)

// validate checks payload DTOs against their struct tags. One instance is
// enough; Validate is safe for concurrent use.
var validate = validator.New()

// handler is one entry of the closed dispatch table.
type handler func(p *Processor, playerID string, payload json.RawMessage) Result

// Processor is the authoritative mutator for one session's State. Every
// client action passes through Process, which serializes mutations: no two
// actions against the same session ever interleave.
type Processor struct {
	mu      sync.Mutex
	state   *State
	limiter *RateLimiter
	balance *script.Engine
	policy  pathfind.BlockPolicy
	logger  *slog.Logger

	dispatch map[ActionType]handler
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithRateLimiter injects a rate limiter (tests use one with a fake clock).
func WithRateLimiter(l *RateLimiter) ProcessorOption {
	return func(p *Processor) {
		p.limiter = l
	}
}

// WithBlockPolicy overrides the placement blocking policy.
func WithBlockPolicy(policy pathfind.BlockPolicy) ProcessorOption {
	return func(p *Processor) {
		p.policy = policy
	}
}

// NewProcessor creates the processor for a session.
func NewProcessor(state *State, balance *script.Engine, opts ...ProcessorOption) *Processor {
	p := &Processor{
		state:   state,
		limiter: NewRateLimiter(),
		balance: balance,
		policy:  pathfind.BlockPolicyAny,
		logger:  slog.Default().With("service", "game"),
	}
	for _, opt := range opts {
		opt(p)
	}

	// The dispatch table covers the closed action set exhaustively. Adding an
	// ActionType without a row here fails the exhaustiveness test.
	p.dispatch = map[ActionType]handler{
		ActionTowerPlace:          (*Processor).towerPlace,
		ActionTowerUpgrade:        (*Processor).towerUpgrade,
		ActionTowerSell:           (*Processor).towerSell,
		ActionMazePlace:           (*Processor).mazePlace,
		ActionMazeRemove:          (*Processor).mazeRemove,
		ActionGameReady:           (*Processor).gameReady,
		ActionGamePhaseTransition: (*Processor).phaseTransition,
	}
	return p
}

// State returns the underlying session state. Callers must treat it as
// read-only; all mutation goes through Process or the Join/Leave helpers.
func (p *Processor) State() *State {
	return p.state
}

// Join adds a player to the session and re-derives routes so the newcomer
// has a path immediately.
func (p *Processor) Join(playerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.AddPlayer(playerID)
	p.state.RecomputePaths()
}

// Leave removes a player and their rate-limit history.
func (p *Processor) Leave(playerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.RemovePlayer(playerID)
	p.limiter.Forget(playerID)
}

// PruneRateHistory is the scheduled housekeeping hook.
func (p *Processor) PruneRateHistory() {
	p.limiter.Prune()
}

// Process runs the full validation pipeline for one action and applies it.
// The pipeline short-circuits on the first failure; state is only touched
// after every check has passed. An unexpected panic in a handler becomes a
// generic failure result rather than crashing the session.
func (p *Processor) Process(playerID string, action Action) (result Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("action handler panicked", "player", playerID, "action", action.Type, "panic", r)
			result = Failure(ReasonInternalError)
		}
	}()

	h, known := p.dispatch[action.Type]
	if !known {
		return Failure(ReasonInvalidAction)
	}

	// Rate limit first. Rejected attempts still land in the history so a
	// spamming client cannot probe for free.
	if !p.limiter.Allow(playerID, action.Type) {
		p.limiter.Record(playerID, action.Type)
		return Failure(ReasonRateLimited)
	}

	if _, ok := p.state.Players[playerID]; !ok {
		return Failure(ReasonPlayerNotFound)
	}

	// Recorded before validation: actions that fail later checks still count
	// against the budget.
	p.limiter.Record(playerID, action.Type)

	return h(p, playerID, action.Payload)
}

func (p *Processor) towerPlace(playerID string, payload json.RawMessage) Result {
	var req TowerPlacePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return Failure(ReasonInvalidPosition)
	}
	if err := validate.Struct(req); err != nil {
		if fieldFailed(err, "Type") {
			return Failure(ReasonInvalidTowerType)
		}
		return Failure(ReasonInvalidPosition)
	}

	stats, ok := p.balance.TowerStatsFor(req.Type)
	if !ok {
		return Failure(ReasonInvalidTowerType)
	}

	if p.state.Phase != PhaseDefense {
		return Failure(ReasonWrongPhase)
	}

	cell := p.state.Grid.Snap(req.Position.Point())
	if !p.state.Grid.Contains(cell) {
		return Failure(ReasonInvalidPosition)
	}
	obstacles := p.state.Obstacles()
	if obstacles.Has(cell) {
		return Failure(ReasonInvalidPosition)
	}

	player := p.state.Players[playerID]
	if player.Money < stats.Cost {
		return Failure(ReasonInsufficientFunds)
	}

	if !pathfind.ValidatePlacement(p.state.Grid, p.state.Spawns, p.state.Exit, obstacles, []pathfind.Cell{cell}, p.policy) {
		return Failure(ReasonBlocksPath)
	}

	tower := &Tower{
		ID:       uuid.New().String(),
		Type:     req.Type,
		Position: cell,
		Level:    1,
		Damage:   stats.Damage,
		Range:    stats.Range,
		Cost:     stats.Cost,
		OwnerID:  playerID,
	}
	p.state.Towers[tower.ID] = tower
	player.Money -= stats.Cost
	p.state.Revision++

	paths := p.state.RecomputePaths()

	return Success(map[string]any{
		"tower": tower,
		"money": player.Money,
		"paths": paths,
	})
}

func (p *Processor) towerUpgrade(playerID string, payload json.RawMessage) Result {
	var req TowerUpgradePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return Failure(ReasonMissingTowerID)
	}
	if err := validate.Struct(req); err != nil {
		return Failure(ReasonMissingTowerID)
	}

	tower, ok := p.state.Towers[req.TowerID]
	if !ok {
		return Failure(ReasonTowerNotFound)
	}
	if tower.OwnerID != playerID {
		return Failure(ReasonNotYourTower)
	}

	cost, err := p.balance.UpgradeCost(tower.Cost, tower.Level)
	if err != nil {
		p.logger.Error("upgrade cost lookup failed", "tower", tower.ID, "error", err)
		return Failure(ReasonInternalError)
	}

	player := p.state.Players[playerID]
	if player.Money < cost {
		return Failure(ReasonInsufficientFunds)
	}

	tower.Level++
	tower.Damage *= p.balance.DamageFactor()
	tower.Range *= p.balance.RangeFactor()
	tower.UpgradeSpent += cost
	player.Money -= cost
	p.state.Revision++

	return Success(map[string]any{
		"tower": tower,
		"money": player.Money,
	})
}

func (p *Processor) towerSell(playerID string, payload json.RawMessage) Result {
	var req TowerSellPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return Failure(ReasonMissingTowerID)
	}
	if err := validate.Struct(req); err != nil {
		return Failure(ReasonMissingTowerID)
	}

	tower, ok := p.state.Towers[req.TowerID]
	if !ok {
		return Failure(ReasonTowerNotFound)
	}
	if tower.OwnerID != playerID {
		return Failure(ReasonNotYourTower)
	}

	refund := int(math.Floor(p.balance.RefundRate() * float64(tower.Cost+tower.UpgradeSpent)))

	delete(p.state.Towers, tower.ID)
	player := p.state.Players[playerID]
	player.Money += refund
	p.state.Revision++

	// The freed cell changes routing.
	paths := p.state.RecomputePaths()

	return Success(map[string]any{
		"towerId": tower.ID,
		"refund":  refund,
		"money":   player.Money,
		"paths":   paths,
	})
}

func (p *Processor) mazePlace(playerID string, payload json.RawMessage) Result {
	var req MazePlacePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return Failure(ReasonInvalidPosition)
	}
	if err := validate.Struct(req); err != nil {
		if fieldFailed(err, "Shape") {
			return Failure(ReasonInvalidShape)
		}
		return Failure(ReasonInvalidPosition)
	}
	if !ValidShape(req.Shape) {
		return Failure(ReasonInvalidShape)
	}

	if p.state.Phase != PhaseBuilding {
		return Failure(ReasonWrongPhase)
	}

	obstacles := p.state.Obstacles()
	cells := make([]pathfind.Cell, 0, len(req.Positions))
	for _, pos := range req.Positions {
		cell := p.state.Grid.Snap(pos.Point())
		if !p.state.Grid.Contains(cell) || obstacles.Has(cell) {
			return Failure(ReasonInvalidPosition)
		}
		cells = append(cells, cell)
	}

	if !pathfind.ValidatePlacement(p.state.Grid, p.state.Spawns, p.state.Exit, obstacles, cells, p.policy) {
		return Failure(ReasonBlocksPath)
	}

	piece := &MazePiece{
		ID:        uuid.New().String(),
		Shape:     req.Shape,
		Positions: cells,
		OwnerID:   playerID,
	}
	p.state.Maze[piece.ID] = piece
	p.state.Revision++

	// Live feedback only: a route going nil here does not roll the placement
	// back, placement legality was already settled above.
	paths := p.state.RecomputePaths()

	return Success(map[string]any{
		"mazePiece": piece,
		"paths":     paths,
	})
}

func (p *Processor) mazeRemove(playerID string, payload json.RawMessage) Result {
	var req MazeRemovePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return Failure(ReasonMissingMazeID)
	}
	if err := validate.Struct(req); err != nil {
		return Failure(ReasonMissingMazeID)
	}

	if p.state.Phase != PhaseBuilding {
		return Failure(ReasonWrongPhase)
	}

	piece, ok := p.state.Maze[req.MazeID]
	if !ok {
		return Failure(ReasonMazePieceNotFound)
	}
	if piece.OwnerID != playerID {
		return Failure(ReasonNotYourPiece)
	}

	delete(p.state.Maze, piece.ID)
	p.state.Revision++

	paths := p.state.RecomputePaths()

	return Success(map[string]any{
		"mazeId": piece.ID,
		"paths":  paths,
	})
}

func (p *Processor) gameReady(playerID string, payload json.RawMessage) Result {
	var req ReadyPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return Failure(ReasonInvalidAction)
	}
	if err := validate.Struct(req); err != nil {
		return Failure(ReasonInvalidAction)
	}

	player := p.state.Players[playerID]
	player.Ready = *req.Ready
	p.state.Revision++

	return Success(map[string]any{
		"ready":    player.Ready,
		"allReady": p.state.AllReady(),
	})
}

func (p *Processor) phaseTransition(playerID string, payload json.RawMessage) Result {
	var req PhaseTransitionPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return Failure(ReasonInvalidTransition)
	}
	if err := validate.Struct(req); err != nil {
		return Failure(ReasonInvalidTransition)
	}

	// The only legal transition is building -> defense, once.
	if p.state.Phase != PhaseBuilding || req.NewPhase != PhaseDefense {
		return Failure(ReasonInvalidTransition)
	}
	if !p.state.AllReady() {
		return Failure(ReasonNotAllPlayersReady)
	}

	p.state.Phase = PhaseDefense
	for _, player := range p.state.Players {
		player.Ready = false
	}
	// Bumping the revision marks every entity changed for the next broadcast.
	p.state.Revision++

	paths := p.state.RecomputePaths()

	return Success(map[string]any{
		"newPhase": string(p.state.Phase),
		"paths":    paths,
	})
}

// fieldFailed reports whether a validator error involves the named field.
func fieldFailed(err error, field string) bool {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	for _, fe := range errs {
		if fe.Field() == field {
			return true
		}
	}
	return false
}
