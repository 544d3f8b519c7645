package metrics

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

// ParsePercent returns the last tab-separated field of the last non-empty line.
func ParsePercent(text string) (float64, error) {
	lines := strings.Split(strings.TrimRight(text, "\r\n \t"), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return math.NaN(), fmt.Errorf("percent file is empty")
	}
	fields := strings.Split(last, "\t")
	field := strings.TrimSpace(fields[len(fields)-1])
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return math.NaN(), fmt.Errorf("invalid percent value %q", field)
	}
	return v, nil
}

// ReadPercent reads an accuracy percentage file.
func ReadPercent(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return math.NaN(), fmt.Errorf("failed to read percent file: %w", err)
	}
	v, err := ParsePercent(string(data))
	if err != nil {
		return math.NaN(), fmt.Errorf("failed to parse percent file %s: %w", path, err)
	}
	return v, nil
}

// PercentOrNaN is ReadPercent with the error logged and replaced by NaN.
func PercentOrNaN(path string) float64 {
	v, err := ReadPercent(path)
	if err != nil {
		logger.Warn("accuracy unreadable, using NaN", "path", path, "error", err)
		return math.NaN()
	}
	return v
}
