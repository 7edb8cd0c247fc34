package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// NumberedPath returns the path of the n-th intermediate checkpoint for out:
// "_n" goes before the extension, or at the end when there is none.
//
//	NumberedPath("picks.hpck", 3) == "picks_3.hpck"
//	NumberedPath("picks", 3)      == "picks_3"
func NumberedPath(out string, n uint64) string {
	base, ext := splitExt(out)

	return base + "_" + strconv.FormatUint(n, 10) + ext
}

func splitExt(path string) (base, ext string) {
	ext = filepath.Ext(path)
	if ext == filepath.Base(path) {
		// Dotfile such as ".hpck": the whole name is the stem.
		return path, ""
	}

	return strings.TrimSuffix(path, ext), ext
}

// Latest returns the highest-numbered intermediate checkpoint of out and its
// number. It reports found=false when none exists.
func Latest(out string) (path string, n uint64, found bool, err error) {
	base, ext := splitExt(out)

	matches, err := filepath.Glob(globEscape(base) + "_*" + globEscape(ext))
	if err != nil {
		return "", 0, false, fmt.Errorf("list checkpoints: %w", err)
	}

	prefix := base + "_"

	for _, match := range matches {
		digits := strings.TrimSuffix(strings.TrimPrefix(match, prefix), ext)

		num, parseErr := strconv.ParseUint(digits, 10, 64)
		if parseErr != nil {
			continue
		}

		info, statErr := os.Stat(match)
		if statErr != nil || !info.Mode().IsRegular() {
			continue
		}

		if !found || num > n {
			path, n, found = match, num, true
		}
	}

	return path, n, found, nil
}

func globEscape(s string) string {
	var b strings.Builder

	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}

		b.WriteRune(r)
	}

	return b.String()
}
