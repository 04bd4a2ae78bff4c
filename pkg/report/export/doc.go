// Package export writes run history as JSON or CSV for `anvil history`.
package export
