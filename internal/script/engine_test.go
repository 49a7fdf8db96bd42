package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_TowerStats(t *testing.T) {
	engine, err := NewEngine(DefaultBalanceScript)
	require.NoError(t, err)

	stats, ok := engine.TowerStatsFor("cannon")
	require.True(t, ok)
	assert.Equal(t, 40, stats.Cost)
	assert.Equal(t, 25.0, stats.Damage)
	assert.Equal(t, 3.5, stats.Range)

	_, ok = engine.TowerStatsFor("ballista")
	assert.False(t, ok)

	_, ok = engine.TowerStatsFor("")
	assert.False(t, ok)
}

func TestEngine_UpgradeCostCurve(t *testing.T) {
	engine, err := NewEngine(DefaultBalanceScript)
	require.NoError(t, err)

	// base 40: 40*1.5^0=40, 40*1.5^1=60, 40*1.5^2=90, 40*1.5^3=135
	for level, want := range map[int]int{0: 40, 1: 60, 2: 90, 3: 135} {
		cost, err := engine.UpgradeCost(40, level)
		require.NoError(t, err)
		assert.Equal(t, want, cost, "level %d", level)
	}
}

func TestEngine_Factors(t *testing.T) {
	engine, err := NewEngine(DefaultBalanceScript)
	require.NoError(t, err)

	assert.Equal(t, 0.75, engine.RefundRate())
	assert.Equal(t, 1.5, engine.DamageFactor())
	assert.Equal(t, 1.1, engine.RangeFactor())
}

func TestEngine_OverrideScript(t *testing.T) {
	src := `
tower_table := {mortar: {cost: 10, damage: 5.0, range: 2.0}}
refund_rate := 0.5
damage_factor := 2.0
range_factor := 1.0
stats := tower_table[tower_type]
upgrade_cost := base_cost * (level + 1)
`
	engine, err := NewEngine(src)
	require.NoError(t, err)

	stats, ok := engine.TowerStatsFor("mortar")
	require.True(t, ok)
	assert.Equal(t, 10, stats.Cost)

	cost, err := engine.UpgradeCost(10, 2)
	require.NoError(t, err)
	assert.Equal(t, 30, cost)

	assert.Equal(t, 0.5, engine.RefundRate())
}

func TestEngine_RejectsBrokenScript(t *testing.T) {
	_, err := NewEngine(`this is not tengo`)
	assert.Error(t, err)
}

func TestEngine_ConcurrentQueries(t *testing.T) {
	engine, err := NewEngine(DefaultBalanceScript)
	require.NoError(t, err)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				if _, ok := engine.TowerStatsFor("laser"); !ok {
					t.Error("laser stats missing")
					return
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
