// Package rowsource streams CSV records from a plain or gzip-compressed file.
package rowsource

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/Sumatoshi-tech/heropicks/pkg/units"
)

// Default read buffer size.
const DefaultBufferSize = 4 * units.MiB

var gzipMagic = []byte{0x1f, 0x8b}

// Sentinel errors.
var (
	ErrEmptyInput = errors.New("input has no header row")
	ErrBadRecord  = errors.New("malformed CSV record")
)

// Options tune CSV parsing.
type Options struct {
	// Delimiter separates fields. Zero means ','.
	Delimiter rune

	// LazyQuotes lets a quote appear in an unquoted field.
	LazyQuotes bool

	// BufferSize is the read buffer size. Zero means DefaultBufferSize.
	BufferSize int
}

// Source yields records after the header row. It is not safe for concurrent use.
type Source struct {
	csv        *csv.Reader
	header     []string
	closers    []io.Closer
	counter    *countingReader
	compressed bool
	rows       uint64
}

// Open opens path and returns a Source over it. Gzip input is detected by
// its magic bytes, whatever the file is called.
func Open(path string, opts Options) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	src, err := newSource(file, opts)
	if err != nil {
		_ = file.Close()

		return nil, err
	}

	src.closers = append(src.closers, file)

	return src, nil
}

// New returns a Source reading from r. Closing the Source does not close r.
func New(r io.Reader, opts Options) (*Source, error) {
	return newSource(r, opts)
}

func newSource(r io.Reader, opts Options) (*Source, error) {
	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	counter := &countingReader{r: r}
	buffered := bufio.NewReaderSize(counter, bufSize)

	src := &Source{counter: counter}

	var body io.Reader = buffered

	magic, _ := buffered.Peek(len(gzipMagic))
	if bytes.Equal(magic, gzipMagic) {
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}

		src.closers = append(src.closers, gz)
		src.compressed = true
		body = bufio.NewReaderSize(gz, bufSize)
	}

	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	reader.LazyQuotes = opts.LazyQuotes

	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	header, err := reader.Read()
	if err != nil {
		src.closeAll()

		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}

		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	src.header = append([]string(nil), header...)
	src.csv = reader

	return src, nil
}

// Header returns the discarded header row.
func (s *Source) Header() []string {
	return s.header
}

// Compressed reports whether the input was gzip.
func (s *Source) Compressed() bool {
	return s.compressed
}

// Next returns the next record, or io.EOF at end of input. The returned
// slice is reused by the following call. A record the CSV parser rejects is
// reported as ErrBadRecord; reading may continue after it.
func (s *Source) Next() ([]string, error) {
	record, err := s.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			s.rows++

			return nil, fmt.Errorf("%w: %w", ErrBadRecord, err)
		}

		return nil, fmt.Errorf("read CSV record: %w", err)
	}

	s.rows++

	return record, nil
}

// Skip discards up to n records and returns how many were discarded.
// Malformed records count as discarded.
func (s *Source) Skip(n uint64) (uint64, error) {
	var skipped uint64

	for skipped < n {
		_, err := s.Next()
		if err != nil && !errors.Is(err, ErrBadRecord) {
			if errors.Is(err, io.EOF) {
				return skipped, nil
			}

			return skipped, err
		}

		skipped++
	}

	return skipped, nil
}

// Rows returns the number of data records read so far, skipped ones included.
func (s *Source) Rows() uint64 {
	return s.rows
}

// BytesRead returns the number of raw (possibly compressed) input bytes consumed.
func (s *Source) BytesRead() int64 {
	return s.counter.n
}

// Close releases the gzip reader and the file, if Open created them.
func (s *Source) Close() error {
	return s.closeAll()
}

func (s *Source) closeAll() error {
	var errs []error

	for _, c := range s.closers {
		err := c.Close()
		if err != nil {
			errs = append(errs, err)
		}
	}

	s.closers = nil

	return errors.Join(errs...)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	return n, err
}
