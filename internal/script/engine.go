// Package script evaluates the sandboxed game-balance script. Tower stats,
// the upgrade cost curve, and the sell refund rate live in a Tengo script so
// designers can retune the economy without a recompile.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// maxExecutionTime bounds a single script evaluation. Balance formulas are
// arithmetic; anything hitting this limit is a broken script.
const maxExecutionTime = 100 * time.Millisecond

// TowerStats holds the scripted base values for one tower type.
type TowerStats struct {
	Cost   int
	Damage float64
	Range  float64
}

// Engine compiles the balance script once and evaluates it per query.
// It is safe for concurrent use: every evaluation runs on a clone of the
// compiled script.
type Engine struct {
	compiled *tengo.Compiled
	logger   *slog.Logger
}

// NewEngine compiles the given script source. Use Default() for the embedded
// defaults, or load an override from disk with NewEngineFromFile.
func NewEngine(src string) (*Engine, error) {
	s := tengo.NewScript([]byte(src))
	s.SetImports(stdlib.GetModuleMap("math"))

	// Inputs are declared before compilation and overwritten per evaluation.
	for name, zero := range map[string]any{
		"tower_type": "",
		"base_cost":  0,
		"level":      0,
	} {
		if err := s.Add(name, zero); err != nil {
			return nil, fmt.Errorf("declaring script input %q: %w", name, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), maxExecutionTime)
	defer cancel()

	compiled, err := s.RunContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("compiling balance script: %w", err)
	}

	return &Engine{
		compiled: compiled,
		logger:   slog.Default().With("service", "script"),
	}, nil
}

// NewEngineFromFile loads a script override from disk, falling back to the
// embedded defaults when path is empty.
func NewEngineFromFile(path string) (*Engine, error) {
	if path == "" {
		return NewEngine(DefaultBalanceScript)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading balance script %s: %w", path, err)
	}
	return NewEngine(string(src))
}

// evaluate re-runs the script with the given inputs on a private clone.
func (e *Engine) evaluate(inputs map[string]any) (*tengo.Compiled, error) {
	clone := e.compiled.Clone()
	for name, v := range inputs {
		if err := clone.Set(name, v); err != nil {
			return nil, fmt.Errorf("setting script input %q: %w", name, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), maxExecutionTime)
	defer cancel()

	if err := clone.RunContext(ctx); err != nil {
		return nil, fmt.Errorf("running balance script: %w", err)
	}
	return clone, nil
}

// TowerStatsFor returns the scripted base stats for a tower type, or false
// when the type is not defined by the script. The script's tower table is the
// single source of truth for the valid tower type enum.
func (e *Engine) TowerStatsFor(towerType string) (TowerStats, bool) {
	out, err := e.evaluate(map[string]any{"tower_type": towerType})
	if err != nil {
		e.logger.Error("balance script failed", "query", "tower_stats", "error", err)
		return TowerStats{}, false
	}

	stats := out.Get("stats")
	if stats.IsUndefined() {
		return TowerStats{}, false
	}

	m := stats.Map()
	cost, _ := m["cost"].(int64)
	damage := toFloat(m["damage"])
	rng := toFloat(m["range"])
	if cost <= 0 {
		return TowerStats{}, false
	}

	return TowerStats{Cost: int(cost), Damage: damage, Range: rng}, true
}

// UpgradeCost returns the price of the next level for a tower with the given
// base cost at its current level.
func (e *Engine) UpgradeCost(baseCost, level int) (int, error) {
	out, err := e.evaluate(map[string]any{"base_cost": baseCost, "level": level})
	if err != nil {
		return 0, err
	}
	return out.Get("upgrade_cost").Int(), nil
}

// RefundRate returns the fraction of invested money returned on sell.
func (e *Engine) RefundRate() float64 {
	return e.compiled.Get("refund_rate").Float()
}

// DamageFactor returns the per-level damage multiplier.
func (e *Engine) DamageFactor() float64 {
	return e.compiled.Get("damage_factor").Float()
}

// RangeFactor returns the per-level range multiplier.
func (e *Engine) RangeFactor() float64 {
	return e.compiled.Get("range_factor").Float()
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
