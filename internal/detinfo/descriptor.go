// internal/detinfo/descriptor.go
package detinfo

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/tamzrod/pilatus-bridge/internal/logging"
)

// Recognized descriptor tokens.
const (
	TokenName   = "camera_name"
	TokenWidth  = "camera_wide"
	TokenHeight = "camera_high"
	TokenBpp    = "camera_bpp"
)

// ParseMode decides what a malformed numeric value does to a load.
type ParseMode int

const (
	// ParseLenient skips the malformed field and keeps reading.
	ParseLenient ParseMode = iota
	// ParseStrict aborts the whole load.
	ParseStrict
)

// ParseModeFromString maps a config value to a ParseMode.
// Empty means lenient.
func ParseModeFromString(s string) (ParseMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return ParseLenient, nil
	case "strict":
		return ParseStrict, nil
	default:
		return ParseLenient, fmt.Errorf("detinfo: unknown parse mode %q", s)
	}
}

// Descriptor is the detector identity read from the descriptor file.
// Nil fields were not present (or were skipped in lenient mode).
type Descriptor struct {
	Name   *string
	Width  *int
	Height *int
	Bpp    *int
}

// Empty reports whether no field was loaded.
func (d Descriptor) Empty() bool {
	return d.Name == nil && d.Width == nil && d.Height == nil && d.Bpp == nil
}

// Load reads the descriptor at path.
// A missing file is not an error: the returned descriptor is empty.
func Load(path string, mode ParseMode) (Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Logf("detinfo: descriptor %s not found, detector geometry unset", path)
			return Descriptor{}, nil
		}
		return Descriptor{}, fmt.Errorf("detinfo: open descriptor: %w", err)
	}
	defer f.Close()

	d, err := Parse(f, mode)
	if err != nil {
		return Descriptor{}, fmt.Errorf("detinfo: %s: %w", path, err)
	}
	return d, nil
}

// Parse reads `token = value` lines. Later lines overwrite earlier ones.
// Unrecognized lines are ignored.
func Parse(r io.Reader, mode ParseMode) (Descriptor, error) {
	var d Descriptor

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()

		var dst **int
		switch {
		case strings.HasPrefix(line, TokenName):
			name := strings.Trim(value(line), " \t\"")
			d.Name = &name
			continue
		case strings.HasPrefix(line, TokenWidth):
			dst = &d.Width
		case strings.HasPrefix(line, TokenHeight):
			dst = &d.Height
		case strings.HasPrefix(line, TokenBpp):
			dst = &d.Bpp
		default:
			continue
		}

		raw := strings.Trim(value(line), " \t")
		n, err := strconv.Atoi(raw)
		if err != nil {
			if mode == ParseStrict {
				return Descriptor{}, fmt.Errorf("line %d: malformed value %q", lineNo, raw)
			}
			logging.Logf("detinfo: line %d: skipping malformed value %q", lineNo, raw)
			continue
		}
		*dst = &n
	}
	if err := sc.Err(); err != nil {
		return Descriptor{}, err
	}

	return d, nil
}

// value returns what follows the last '=' with line endings removed.
func value(line string) string {
	if i := strings.LastIndexByte(line, '='); i >= 0 {
		line = line[i+1:]
	}
	return strings.TrimRight(line, "\r\n")
}
