// Package checkpoint saves and loads aggregates in a versioned binary container.
//
// Layout, all integers big-endian:
//
//	magic "HPCK" (4) | version u16 | flags u16 | payload length u64 | payload | xxhash64(payload) u64
//
// The payload is deterministic CBOR, optionally wrapped in an LZ4 frame
// (flag bit 0). The checksum covers the payload bytes as stored.
package checkpoint

import (
	"errors"
	"time"
)

// Magic identifies checkpoint files.
const Magic = "HPCK"

// Version is the container version written by this package.
const Version uint16 = 1

// FlagLZ4 marks an LZ4-framed payload.
const FlagLZ4 uint16 = 1 << 0

const knownFlags = FlagLZ4

// Extension is the conventional checkpoint file extension.
const Extension = ".hpck"

const (
	headerSize   = 16
	checksumSize = 8
)

// Sentinel errors.
var (
	ErrBadMagic           = errors.New("not a checkpoint file")
	ErrUnsupportedVersion = errors.New("unsupported checkpoint version")
	ErrUnknownFlags       = errors.New("unknown checkpoint flags")
	ErrChecksum           = errors.New("checkpoint checksum mismatch")
	ErrTruncated          = errors.New("checkpoint truncated")
	ErrCorrupt            = errors.New("checkpoint payload corrupt")
	ErrBadLevel           = errors.New("compression level must be between 0 (fast) and 9")
)

// Meta describes how a checkpoint was produced.
type Meta struct {
	// Rows is the number of rows ingested into the aggregate.
	Rows uint64
	// Offset is the number of data rows of Source consumed, skipped rows
	// included. Resuming skips this many rows.
	Offset uint64
	// CreatedAt has second precision.
	CreatedAt time.Time
	// Source is the input path, informational only.
	Source string
	// Final is set on the end-of-stream checkpoint.
	Final bool
	// DaysSeen is the number of distinct days observed. Filled on load.
	DaysSeen int
}

// Header is the fixed-size container prefix plus the trailing checksum.
type Header struct {
	Version     uint16
	Flags       uint16
	PayloadSize uint64
	Checksum    uint64
}

// Compressed reports whether the payload is LZ4-framed.
func (h Header) Compressed() bool {
	return h.Flags&FlagLZ4 != 0
}

// FileSize is the total size of a container with this header.
func (h Header) FileSize() uint64 {
	return headerSize + h.PayloadSize + checksumSize
}
