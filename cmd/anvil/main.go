// Anvil checks design rules written in a small expression language against
// board descriptions.
//
// It provides:
//   - An expression evaluator with unit-aware quantities (mm, mil, in, deg)
//   - Rule files in YAML, compiled once per board and checked item by item
//   - A watch mode that re-checks on rule changes and serves metrics
//   - Run history in SQLite with retention and JSON/CSV export
//
// Usage:
//
//	# Evaluate an expression
//	anvil eval "1mm + 2mil"
//
//	# Validate rule files against a board
//	anvil lint --rules rules/ --board board.yaml
//
//	# Check a board
//	anvil check --rules rules/ --board board.yaml
//
//	# Re-check whenever rules change
//	anvil watch --rules rules/ --board board.yaml
//
//	# Show recorded runs
//	anvil history --since 24h
package main

func main() {
	Execute()
}
