package params

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrInvalidString is returned for string values a config file line cannot
// carry: ParseConfig splits on whitespace, so the value must be one
// non-empty field.
var ErrInvalidString = errors.New("string value must be non-empty and contain no whitespace")

// ErrInvalidRunID is returned for run ids that cannot prefix file names.
var ErrInvalidRunID = errors.New("invalid run id")

const globMeta = `*?[\`

// CheckString reports whether s survives a config file round trip.
func CheckString(s string) error {
	if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidString, s)
	}
	return nil
}

// ValidateRunID checks id can be written as RUN_ID and used as the
// {run_id}_ prefix of config files and data directories.
func ValidateRunID(id string) error {
	if err := CheckString(id); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRunID, err)
	}
	if strings.ContainsAny(id, globMeta) {
		return fmt.Errorf("%w: %q contains a glob metacharacter (%s)", ErrInvalidRunID, id, globMeta)
	}
	if strings.ContainsRune(id, '/') || strings.ContainsRune(id, filepath.Separator) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidRunID, id)
	}
	return nil
}

// RunPattern is the filepath.Glob pattern matching every {run_id}_* entry of
// dir. Metacharacters in runID match literally.
func RunPattern(dir, runID string) string {
	var sb strings.Builder
	for _, r := range runID {
		if strings.ContainsRune(globMeta, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return filepath.Join(dir, sb.String()+"_*")
}
