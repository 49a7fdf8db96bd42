package matchmaking

// Compatible reports whether two requests can share a session. It is
// symmetric: Compatible(a, b) == Compatible(b, a) for all inputs.
//
// Rules: identical party size and game mode; regions equal or either side
// global; skill levels at most one ordinal step apart.
func Compatible(a, b Preferences) bool {
	if a.MaxPlayers != b.MaxPlayers {
		return false
	}
	if a.GameMode != b.GameMode {
		return false
	}
	if a.Region != b.Region && a.Region != RegionGlobal && b.Region != RegionGlobal {
		return false
	}

	return skillDistance(a.SkillLevel, b.SkillLevel) <= 1
}

func skillDistance(a, b SkillLevel) int {
	ra, aok := skillRank[a]
	rb, bok := skillRank[b]
	if !aok || !bok {
		// Unknown levels only match themselves.
		if a == b {
			return 0
		}
		return len(skillRank)
	}
	if ra > rb {
		return ra - rb
	}
	return rb - ra
}
