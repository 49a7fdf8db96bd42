package pathfind

// BlockPolicy decides how multi-spawn routing reacts to a candidate placement.
type BlockPolicy int

const (
	// BlockPolicyAny rejects a placement that cuts off any spawn's route to
	// the exit. This is the default for cooperative play: one player must not
	// be able to wall off a teammate's lane.
	BlockPolicyAny BlockPolicy = iota

	// BlockPolicyAll rejects a placement only when every spawn loses its
	// route. Relaxed variant, kept selectable for mode experiments.
	BlockPolicyAll
)

// ValidatePlacement reports whether the candidate cells can be placed without
// violating the routing invariant: after adding the candidate to the obstacle
// set, the exit must stay reachable per the given policy. Spawns that were
// already unreachable before the placement are ignored; a placement is never
// blamed for a route it did not cut.
//
// The obstacle set passed in is cloned, never mutated.
func ValidatePlacement(grid Grid, spawns []Point, exit Point, obstacles CellSet, candidate []Cell, policy BlockPolicy) bool {
	trial := obstacles.Clone()
	for _, c := range candidate {
		trial.Add(c)
	}

	anyReachableBefore := false
	anyBlocked := false
	allBlocked := true

	for _, spawn := range spawns {
		if FindPath(grid, spawn, exit, obstacles) == nil {
			// Already cut off; not this placement's doing.
			continue
		}
		anyReachableBefore = true

		if FindPath(grid, spawn, exit, trial) == nil {
			anyBlocked = true
		} else {
			allBlocked = false
		}
	}

	if !anyReachableBefore {
		// Nothing was routable to begin with, so the placement cannot make
		// things worse.
		return true
	}

	switch policy {
	case BlockPolicyAll:
		return !allBlocked
	default:
		return !anyBlocked
	}
}
