package matchmaking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompatible_Rules(t *testing.T) {
	base := Preferences{MaxPlayers: 2, SkillLevel: SkillIntermediate, GameMode: "cooperative", Region: "eu"}

	tests := []struct {
		name  string
		other Preferences
		want  bool
	}{
		{"identical", base, true},
		{"different party size", Preferences{MaxPlayers: 4, SkillLevel: SkillIntermediate, GameMode: "cooperative", Region: "eu"}, false},
		{"different game mode", Preferences{MaxPlayers: 2, SkillLevel: SkillIntermediate, GameMode: "versus", Region: "eu"}, false},
		{"different region", Preferences{MaxPlayers: 2, SkillLevel: SkillIntermediate, GameMode: "cooperative", Region: "us"}, false},
		{"other side global", Preferences{MaxPlayers: 2, SkillLevel: SkillIntermediate, GameMode: "cooperative", Region: RegionGlobal}, true},
		{"adjacent skill", Preferences{MaxPlayers: 2, SkillLevel: SkillAdvanced, GameMode: "cooperative", Region: "eu"}, true},
		{"skill two steps apart", Preferences{MaxPlayers: 2, SkillLevel: SkillExpert, GameMode: "cooperative", Region: "eu"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compatible(base, tt.other))
		})
	}
}

func TestCompatible_Symmetry(t *testing.T) {
	levels := []SkillLevel{SkillBeginner, SkillIntermediate, SkillAdvanced, SkillExpert}
	regions := []string{"eu", "us", RegionGlobal}

	var prefs []Preferences
	for _, level := range levels {
		for _, region := range regions {
			for _, max := range []int{2, 4} {
				prefs = append(prefs, Preferences{
					MaxPlayers: max, SkillLevel: level, GameMode: "cooperative", Region: region,
				})
			}
		}
	}

	for _, a := range prefs {
		for _, b := range prefs {
			assert.Equal(t, Compatible(a, b), Compatible(b, a),
				"Compatible must be symmetric for %+v vs %+v", a, b)
		}
	}
}

func TestSkillDistance_UnknownLevels(t *testing.T) {
	assert.Equal(t, 0, skillDistance("mystery", "mystery"))
	assert.Greater(t, skillDistance("mystery", SkillBeginner), 1)
}
