// Package units holds the 1024-based size multipliers used for buffer sizes
// and memory telemetry.
package units

// Binary size multipliers.
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// ToMiB converts a byte count to whole mebibytes, rounding down.
func ToMiB(bytes uint64) uint64 {
	return bytes / MiB
}
