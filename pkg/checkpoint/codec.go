package checkpoint

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/heropicks/pkg/aggregate"
	"github.com/Sumatoshi-tech/heropicks/pkg/persist"
	"github.com/Sumatoshi-tech/heropicks/pkg/units"
)

const readBufferSize = units.MiB

// document is the CBOR payload.
type document struct {
	Rows      uint64                                        `cbor:"1,keyasint"`
	Offset    uint64                                        `cbor:"2,keyasint"`
	CreatedAt int64                                         `cbor:"3,keyasint"`
	Source    string                                        `cbor:"4,keyasint,omitempty"`
	Final     bool                                          `cbor:"5,keyasint,omitempty"`
	Seen      []aggregate.Day                               `cbor:"6,keyasint"`
	Counts    map[aggregate.Day]map[aggregate.HeroID]uint64 `cbor:"7,keyasint"`
}

// metaDocument decodes the same payload without the aggregate.
type metaDocument struct {
	Rows      uint64          `cbor:"1,keyasint"`
	Offset    uint64          `cbor:"2,keyasint"`
	CreatedAt int64           `cbor:"3,keyasint"`
	Source    string          `cbor:"4,keyasint,omitempty"`
	Final     bool            `cbor:"5,keyasint,omitempty"`
	Seen      []aggregate.Day `cbor:"6,keyasint"`
}

var payloadCodec = sync.OnceValues(persist.NewCBORCodec)

type options struct {
	compress bool
	level    lz4.CompressionLevel
}

// Option configures Encode and Save.
type Option func(*options)

// WithCompression toggles the LZ4 frame around the payload. On by default.
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.compress = enabled
	}
}

// WithCompressionLevel sets the LZ4 level used when compression is on.
func WithCompressionLevel(level lz4.CompressionLevel) Option {
	return func(o *options) {
		o.level = level
	}
}

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

// CompressionLevel maps 0 (fast) through 9 to an LZ4 level.
func CompressionLevel(n int) (lz4.CompressionLevel, error) {
	if n < 0 || n >= len(lz4Levels) {
		return 0, fmt.Errorf("%w: %d", ErrBadLevel, n)
	}

	return lz4Levels[n], nil
}

func buildOptions(opts []Option) options {
	o := options{compress: true, level: lz4.Fast}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Encode writes acc and meta to w as a checkpoint container. A zero
// meta.CreatedAt is replaced with the current time. meta.Rows is taken
// from acc.
func Encode(w io.Writer, acc *aggregate.Accumulator, meta Meta, opts ...Option) error {
	o := buildOptions(opts)

	codec, err := payloadCodec()
	if err != nil {
		return err
	}

	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	rows, seen, counts := acc.Snapshot()

	payload, err := codec.Marshal(document{
		Rows:      rows,
		Offset:    meta.Offset,
		CreatedAt: meta.CreatedAt.Unix(),
		Source:    meta.Source,
		Final:     meta.Final,
		Seen:      seen,
		Counts:    counts,
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	var flags uint16

	if o.compress {
		payload, err = compress(payload, o.level)
		if err != nil {
			return err
		}

		flags |= FlagLZ4
	}

	header := make([]byte, 0, headerSize)
	header = append(header, Magic...)
	header = binary.BigEndian.AppendUint16(header, Version)
	header = binary.BigEndian.AppendUint16(header, flags)
	header = binary.BigEndian.AppendUint64(header, uint64(len(payload)))

	trailer := binary.BigEndian.AppendUint64(nil, xxhash.Sum64(payload))

	for _, part := range [][]byte{header, payload, trailer} {
		_, writeErr := w.Write(part)
		if writeErr != nil {
			return fmt.Errorf("write checkpoint: %w", writeErr)
		}
	}

	return nil
}

func compress(payload []byte, level lz4.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer

	zw := lz4.NewWriter(&buf)

	applyErr := zw.Apply(lz4.CompressionLevelOption(level))
	if applyErr != nil {
		return nil, fmt.Errorf("configure lz4: %w", applyErr)
	}

	_, writeErr := zw.Write(payload)
	if writeErr != nil {
		return nil, fmt.Errorf("compress payload: %w", writeErr)
	}

	closeErr := zw.Close()
	if closeErr != nil {
		return nil, fmt.Errorf("compress payload: %w", closeErr)
	}

	return buf.Bytes(), nil
}

// Decode reads a checkpoint container from r and rebuilds the aggregate.
func Decode(r io.Reader) (*aggregate.Accumulator, Meta, error) {
	header, raw, err := readContainer(r)
	if err != nil {
		return nil, Meta{}, err
	}

	var doc document

	err = unmarshalPayload(header, raw, &doc)
	if err != nil {
		return nil, Meta{}, err
	}

	acc, err := aggregate.Restore(doc.Rows, doc.Seen, doc.Counts)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	meta := Meta{
		Rows:      doc.Rows,
		Offset:    doc.Offset,
		CreatedAt: time.Unix(doc.CreatedAt, 0).UTC(),
		Source:    doc.Source,
		Final:     doc.Final,
		DaysSeen:  acc.DaysSeen(),
	}

	return acc, meta, nil
}

func readContainer(r io.Reader) (Header, []byte, error) {
	prefix := make([]byte, headerSize)

	n, err := io.ReadFull(r, prefix)

	got := prefix[:min(n, len(Magic))]
	if !bytes.HasPrefix([]byte(Magic), got) {
		return Header{}, nil, fmt.Errorf("%w: magic %q", ErrBadMagic, got)
	}

	if err != nil {
		return Header{}, nil, truncated("header", err)
	}

	header := Header{
		Version:     binary.BigEndian.Uint16(prefix[4:6]),
		Flags:       binary.BigEndian.Uint16(prefix[6:8]),
		PayloadSize: binary.BigEndian.Uint64(prefix[8:16]),
	}

	if header.Version != Version {
		return header, nil, fmt.Errorf("%w: %d (supported: %d)", ErrUnsupportedVersion, header.Version, Version)
	}

	if header.Flags&^knownFlags != 0 {
		return header, nil, fmt.Errorf("%w: %#04x", ErrUnknownFlags, header.Flags)
	}

	if header.PayloadSize > math.MaxInt64 {
		return header, nil, fmt.Errorf("%w: payload length %d", ErrCorrupt, header.PayloadSize)
	}

	// Grow with the data instead of trusting the length for one allocation.
	var payload bytes.Buffer

	_, err = io.CopyN(&payload, r, int64(header.PayloadSize))
	if err != nil {
		return header, nil, truncated("payload", err)
	}

	trailer := make([]byte, checksumSize)

	_, err = io.ReadFull(r, trailer)
	if err != nil {
		return header, nil, truncated("checksum", err)
	}

	header.Checksum = binary.BigEndian.Uint64(trailer)

	sum := xxhash.Sum64(payload.Bytes())
	if sum != header.Checksum {
		return header, nil, fmt.Errorf("%w: stored %016x, computed %016x", ErrChecksum, header.Checksum, sum)
	}

	return header, payload.Bytes(), nil
}

func truncated(part string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: reading %s", ErrTruncated, part)
	}

	return fmt.Errorf("read checkpoint %s: %w", part, err)
}

func unmarshalPayload(header Header, raw []byte, dst any) error {
	codec, err := payloadCodec()
	if err != nil {
		return err
	}

	if header.Compressed() {
		raw, err = io.ReadAll(lz4.NewReader(bytes.NewReader(raw)))
		if err != nil {
			return fmt.Errorf("%w: decompress: %w", ErrCorrupt, err)
		}
	}

	err = codec.Unmarshal(raw, dst)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return nil
}

// Save atomically writes a checkpoint to path, replacing any existing file.
func Save(path string, acc *aggregate.Accumulator, meta Meta, opts ...Option) error {
	err := persist.WriteAtomic(path, func(w io.Writer) error {
		return Encode(w, acc, meta, opts...)
	})
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", path, err)
	}

	return nil
}

// Load reads the checkpoint at path.
func Load(path string) (*aggregate.Accumulator, Meta, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("load checkpoint: %w", err)
	}
	defer file.Close()

	acc, meta, err := Decode(bufio.NewReaderSize(file, readBufferSize))
	if err != nil {
		return nil, Meta{}, fmt.Errorf("load checkpoint %s: %w", path, err)
	}

	return acc, meta, nil
}

// Inspect verifies the checkpoint at path and returns its metadata and
// header without building the aggregate.
func Inspect(path string) (Meta, Header, error) {
	file, err := os.Open(path)
	if err != nil {
		return Meta{}, Header{}, fmt.Errorf("inspect checkpoint: %w", err)
	}
	defer file.Close()

	header, raw, err := readContainer(bufio.NewReaderSize(file, readBufferSize))
	if err != nil {
		return Meta{}, header, fmt.Errorf("inspect checkpoint %s: %w", path, err)
	}

	var doc metaDocument

	err = unmarshalPayload(header, raw, &doc)
	if err != nil {
		return Meta{}, header, fmt.Errorf("inspect checkpoint %s: %w", path, err)
	}

	meta := Meta{
		Rows:      doc.Rows,
		Offset:    doc.Offset,
		CreatedAt: time.Unix(doc.CreatedAt, 0).UTC(),
		Source:    doc.Source,
		Final:     doc.Final,
		DaysSeen:  len(doc.Seen),
	}

	return meta, header, nil
}
