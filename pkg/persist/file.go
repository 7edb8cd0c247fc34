package persist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/heropicks/pkg/units"
)

// File permissions for finished output files.
const filePerm = 0o644

const writeBufferSize = units.MiB

// WriteAtomic creates path by streaming write into a temporary file in the
// same directory, syncing it, and renaming it over path. Readers never see a
// partially written file, and a failed write leaves any previous file intact.
func WriteAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	buffered := bufio.NewWriterSize(tmp, writeBufferSize)

	writeErr := write(buffered)
	if writeErr != nil {
		return writeErr
	}

	flushErr := buffered.Flush()
	if flushErr != nil {
		return fmt.Errorf("flush %s: %w", path, flushErr)
	}

	syncErr := tmp.Sync()
	if syncErr != nil {
		return fmt.Errorf("sync %s: %w", path, syncErr)
	}

	closeErr := tmp.Close()
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", path, closeErr)
	}

	chmodErr := os.Chmod(tmpName, filePerm)
	if chmodErr != nil {
		return fmt.Errorf("chmod %s: %w", path, chmodErr)
	}

	renameErr := os.Rename(tmpName, path)
	if renameErr != nil {
		return fmt.Errorf("rename %s: %w", path, renameErr)
	}

	return nil
}

// SaveState atomically writes state to path using codec.
func SaveState(path string, codec Codec, state any) error {
	err := WriteAtomic(path, func(w io.Writer) error {
		return codec.Encode(w, state)
	})
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	return nil
}

// LoadState reads state from path using codec.
// The state parameter must be a pointer to the target value.
func LoadState(path string, codec Codec, state any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	err = codec.Decode(bufio.NewReaderSize(file, writeBufferSize), state)
	if err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	return nil
}
