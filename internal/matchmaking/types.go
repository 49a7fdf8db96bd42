package matchmaking

import (
	"time"
)

// SkillLevel is an ordered enum; matching tolerates a distance of one step.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillExpert       SkillLevel = "expert"
)

// skillRank maps the ordered enum onto ordinals for distance checks.
var skillRank = map[SkillLevel]int{
	SkillBeginner:     0,
	SkillIntermediate: 1,
	SkillAdvanced:     2,
	SkillExpert:       3,
}

// RegionGlobal matches any region.
const RegionGlobal = "global"

// Preferences are the knobs a player sets when requesting a match.
type Preferences struct {
	MaxPlayers int        `json:"maxPlayers"`
	SkillLevel SkillLevel `json:"skillLevel"`
	GameMode   string     `json:"gameMode"`
	Region     string     `json:"region"`
}

// Profile is the slice of player identity the queue carries around.
type Profile struct {
	Name   string `json:"name"`
	Rating int    `json:"rating"`

	// Latency is a running average updated as (old+new)/2. That is an
	// exponential decay, not a true mean: recent samples dominate. Kept
	// deliberately; see ObserveLatency.
	Latency float64 `json:"latency,omitempty"`
}

// Request is one waiting player's ticket. It lives only inside the queue:
// created on enqueue, destroyed on match, cancel, or timeout.
type Request struct {
	ConnectionID string
	Profile      Profile
	Preferences  Preferences
	CreatedAt    time.Time
	Attempts     int
}

// Match is an ephemeral grouping result, destroyed once its players have been
// handed off to a session.
type Match struct {
	ID         string   `json:"matchId"`
	Players    []string `json:"players"`
	GameMode   string   `json:"gameMode"`
	MaxPlayers int      `json:"maxPlayers"`
	SessionID  string   `json:"sessionId"`
}
