// Package analysis aggregates decoded LA32R instruction streams into
// per-mnemonic, per-category and per-function statistics.
package analysis

const (
	// DefaultTop is the number of histogram rows shown when no limit is set.
	DefaultTop = 20

	// Unattributed names the bucket for instructions outside every function symbol.
	Unattributed = "(no symbol)"
)
