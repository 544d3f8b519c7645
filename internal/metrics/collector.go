package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Point is one recorded observation
type Point struct {
	Timestamp time.Time         `json:"timestamp"`
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Aggregation holds summary statistics over the finite values of a series
type Aggregation struct {
	Count int64   `json:"count" yaml:"count"`
	NaN   int64   `json:"nan" yaml:"nan"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Std   float64 `json:"std" yaml:"std"`
	P50   float64 `json:"p50" yaml:"p50"`
}

// Collector records metric series during an optimizer session, e.g. the
// score of every evaluation labelled by config id. It is safe for concurrent use.
type Collector struct {
	mu sync.RWMutex

	startTime time.Time
	series    map[string]map[string][]Point
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		series:    make(map[string]map[string][]Point),
	}
}

// Record records a metric value at a specific timestamp
func (c *Collector) Record(name string, value float64, timestamp time.Time, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.series[name] == nil {
		c.series[name] = make(map[string][]Point)
	}
	c.series[name][key] = append(c.series[name][key], Point{
		Timestamp: timestamp,
		Name:      name,
		Value:     value,
		Labels:    copyLabels(labels),
	})
}

// RecordNow records a metric value at the current time
func (c *Collector) RecordNow(name string, value float64, labels map[string]string) {
	c.Record(name, value, time.Now(), labels)
}

// Points returns every point of a metric across all labels, oldest first.
func (c *Collector) Points(name string) []Point {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Point
	for _, points := range c.series[name] {
		out = append(out, points...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// Aggregate summarizes a metric across all labels. NaN values are counted
// but excluded from the statistics. Returns nil when nothing was recorded.
func (c *Collector) Aggregate(name string) *Aggregation {
	points := c.Points(name)
	if len(points) == 0 {
		return nil
	}

	agg := &Aggregation{}
	values := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Value != p.Value {
			agg.NaN++
			continue
		}
		values = append(values, p.Value)
	}
	agg.Count = int64(len(values))
	if len(values) == 0 {
		return agg
	}

	sort.Float64s(values)
	agg.Min = values[0]
	agg.Max = values[len(values)-1]
	agg.Mean, agg.Std = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		agg.Std = 0
	}
	agg.P50 = stat.Quantile(0.5, stat.LinInterp, values, nil)
	return agg
}

// Names returns all metric names that have been recorded
func (c *Collector) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.series))
	for name := range c.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Elapsed is the time since the collector was created
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

// labelKey creates a key from labels for map lookup
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k + "=" + labels[k] + ",")
	}
	return sb.String()
}

// copyLabels creates a copy of the labels map
func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
