package script

// DefaultBalanceScript is the embedded economy. An override can be supplied
// via the BALANCE_SCRIPT environment variable; it must bind the same output
// variables (stats, upgrade_cost, refund_rate, damage_factor, range_factor).
const DefaultBalanceScript = `
math := import("math")

tower_table := {
	cannon:  {cost: 40,  damage: 25.0, range: 3.5},
	laser:   {cost: 60,  damage: 15.0, range: 4.5},
	missile: {cost: 80,  damage: 50.0, range: 5.0},
	tesla:   {cost: 100, damage: 35.0, range: 3.0}
}

refund_rate := 0.75
upgrade_factor := 1.5
damage_factor := 1.5
range_factor := 1.1

stats := tower_table[tower_type]
upgrade_cost := int(math.floor(base_cost * math.pow(upgrade_factor, level)))
`
