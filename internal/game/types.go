package game

import (
	"encoding/json"

	"github.com/sinedd777/towerdef/internal/pathfind"
)

// Phase is the session-wide game phase. The only legal transition is
// building -> defense, once, gated on every player being ready.
type Phase string

const (
	PhaseBuilding Phase = "building"
	PhaseDefense  Phase = "defense"
)

// ActionType enumerates every player-submitted action the processor accepts.
// Dispatch is over this closed set; there is no default branch to hide an
// unhandled action.
type ActionType string

const (
	ActionTowerPlace          ActionType = "tower:place"
	ActionTowerUpgrade        ActionType = "tower:upgrade"
	ActionTowerSell           ActionType = "tower:sell"
	ActionMazePlace           ActionType = "maze:place"
	ActionMazeRemove          ActionType = "maze:remove"
	ActionGameReady           ActionType = "game:ready"
	ActionGamePhaseTransition ActionType = "game:phase_transition"
)

// ActionTypes lists every valid action, in dispatch-table order.
var ActionTypes = []ActionType{
	ActionTowerPlace,
	ActionTowerUpgrade,
	ActionTowerSell,
	ActionMazePlace,
	ActionMazeRemove,
	ActionGameReady,
	ActionGamePhaseTransition,
}

// ParseActionType maps an incoming event name onto the closed action set.
func ParseActionType(s string) (ActionType, bool) {
	for _, t := range ActionTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Reason is the closed failure taxonomy. Clients branch on these strings, so
// they are stable wire values, never free text.
type Reason string

const (
	ReasonRateLimited         Reason = "rate_limited"
	ReasonPlayerNotFound      Reason = "player_not_found"
	ReasonTowerNotFound       Reason = "tower_not_found"
	ReasonMazePieceNotFound   Reason = "maze_piece_not_found"
	ReasonNotYourTower        Reason = "not_your_tower"
	ReasonNotYourPiece        Reason = "not_your_piece"
	ReasonWrongPhase          Reason = "wrong_phase"
	ReasonBlocksPath          Reason = "blocks_path"
	ReasonInsufficientFunds   Reason = "insufficient_funds"
	ReasonNotAllPlayersReady  Reason = "not_all_players_ready"
	ReasonInvalidTransition   Reason = "invalid_phase_transition"
	ReasonInvalidAction       Reason = "invalid_action"
	ReasonInvalidTowerType    Reason = "invalid_tower_type"
	ReasonInvalidPosition     Reason = "invalid_position"
	ReasonInvalidShape        Reason = "invalid_shape"
	ReasonMissingTowerID      Reason = "missing_tower_id"
	ReasonMissingMazeID       Reason = "missing_maze_id"
	ReasonInternalError       Reason = "internal_error"
)

// Action is a single player submission: a typed action plus its raw payload.
// The payload stays raw until the schema validation step so that malformed
// JSON surfaces as a validation failure, not a transport error.
type Action struct {
	Type    ActionType
	Payload json.RawMessage
}

// Result is the uniform outcome shape for every processed action.
type Result struct {
	Success bool           `json:"success"`
	Reason  Reason         `json:"reason,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Failure builds a failed result with the given reason.
func Failure(reason Reason) Result {
	return Result{Success: false, Reason: reason}
}

// Success builds a successful result carrying the given data.
func Success(data map[string]any) Result {
	return Result{Success: true, Data: data}
}

// Position is a world-space grid position as submitted by clients.
type Position struct {
	X *float64 `json:"x" validate:"required"`
	Z *float64 `json:"z" validate:"required"`
}

// Point converts a validated position to a pathfinding point.
func (p Position) Point() pathfind.Point {
	return pathfind.Point{X: *p.X, Z: *p.Z}
}

// MazeShape enumerates the placeable maze piece shapes.
type MazeShape string

const (
	ShapeSingle MazeShape = "single"
	ShapeLine2  MazeShape = "line2"
	ShapeLine3  MazeShape = "line3"
	ShapeL      MazeShape = "l"
	ShapeT      MazeShape = "t"
	ShapeZ      MazeShape = "z"
)

// ValidShape reports whether s is one of the placeable shapes.
func ValidShape(s MazeShape) bool {
	switch s {
	case ShapeSingle, ShapeLine2, ShapeLine3, ShapeL, ShapeT, ShapeZ:
		return true
	}
	return false
}

// Tower is a placed, player-owned tower.
type Tower struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Position     pathfind.Cell `json:"position"`
	Level        int           `json:"level"`
	Damage       float64       `json:"damage"`
	Range        float64       `json:"range"`
	Cost         int           `json:"cost"`
	UpgradeSpent int           `json:"upgradeSpent"`
	Kills        int           `json:"kills"`
	OwnerID      string        `json:"ownerId"`
}

// MazePiece is a placed, player-owned maze obstacle covering one or more cells.
type MazePiece struct {
	ID        string          `json:"id"`
	Shape     MazeShape       `json:"shape"`
	Positions []pathfind.Cell `json:"positions"`
	OwnerID   string          `json:"ownerId"`
}

// Player is one session member's authoritative state.
type Player struct {
	ID    string `json:"id"`
	Money int    `json:"money"`
	Ready bool   `json:"ready"`

	// Path is the player's current spawn-to-exit route, nil when unreachable.
	Path []pathfind.Point `json:"path,omitempty"`
}

// Payload DTOs, validated with go-playground/validator tags before any domain
// check runs.

type TowerPlacePayload struct {
	Type     string    `json:"type" validate:"required"`
	Position *Position `json:"position" validate:"required"`
}

type TowerUpgradePayload struct {
	TowerID string `json:"towerId" validate:"required"`
}

type TowerSellPayload struct {
	TowerID string `json:"towerId" validate:"required"`
}

type MazePlacePayload struct {
	Shape     MazeShape  `json:"shape" validate:"required"`
	Positions []Position `json:"positions" validate:"required,min=1,dive,required"`
}

type MazeRemovePayload struct {
	MazeID string `json:"mazeId" validate:"required"`
}

type ReadyPayload struct {
	Ready *bool `json:"ready" validate:"required"`
}

type PhaseTransitionPayload struct {
	NewPhase Phase `json:"newPhase" validate:"required"`
}
