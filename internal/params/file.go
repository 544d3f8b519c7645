package params

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// WriteConfig writes one "KEY \t=\t VALUE" line per key of order present in set.
// Keys missing from set are skipped, not padded with defaults.
func WriteConfig(w io.Writer, set Set, order []string) error {
	bw := bufio.NewWriter(w)
	for _, p := range Collapse(set, order) {
		if _, err := fmt.Fprintf(bw, "%s \t=\t %s\n", p.Key, p.Value.Format()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FormatConfig returns the config file text for set.
func FormatConfig(set Set, order []string) string {
	var sb strings.Builder
	_ = WriteConfig(&sb, set, order)
	return sb.String()
}

// WriteConfigFile writes set to path, truncating any existing file.
func WriteConfigFile(path string, set Set, order []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file %s: %w", path, err)
	}
	if err := WriteConfig(f, set, order); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close config file %s: %w", path, err)
	}
	return nil
}

// ParseConfig reads whitespace-delimited "key = value" lines and casts every
// value through schema. Blank lines are skipped.
func ParseConfig(r io.Reader, schema *Schema) (Set, error) {
	out := make(Set)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 || fields[1] != "=" {
			return nil, fmt.Errorf("line %d: expected 'key = value', got %q", lineNo, sc.Text())
		}
		v, err := schema.Cast(fields[0], fields[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out[fields[0]] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return out, nil
}

// ParseConfigFile opens and parses a config file.
func ParseConfigFile(path string, schema *Schema) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	set, err := ParseConfig(f, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return set, nil
}
