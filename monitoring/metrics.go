package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType is the Prometheus type of a series.
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

// Metric is the latest value of one series.
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Help      string            `json:"help,omitempty"`
}

// MetricsCollector keeps the latest value of every series.
type MetricsCollector struct {
	metrics     map[string]*Metric
	help        map[string]string
	metricsLock sync.RWMutex

	startTime time.Time
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:   make(map[string]*Metric),
		help:      make(map[string]string),
		startTime: time.Now(),
	}
}

// Describe sets the HELP text exported for name.
func (mc *MetricsCollector) Describe(name, help string) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()
	mc.help[name] = help
}

// IncrCounter adds value to the counter identified by name and labels.
func (mc *MetricsCollector) IncrCounter(name string, value float64, labels map[string]string) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()

	key := seriesKey(name, labels)
	m, ok := mc.metrics[key]
	if !ok {
		m = &Metric{Name: name, Type: MetricTypeCounter, Labels: copyLabels(labels)}
		mc.metrics[key] = m
	}
	m.Value += value
	m.Timestamp = time.Now()
}

// SetGauge sets a gauge series to value.
func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()

	mc.metrics[seriesKey(name, labels)] = &Metric{
		Name:      name,
		Type:      MetricTypeGauge,
		Value:     value,
		Labels:    copyLabels(labels),
		Timestamp: time.Now(),
	}
}

// Value returns the current value of a series, or 0 if it was never recorded.
func (mc *MetricsCollector) Value(name string, labels map[string]string) float64 {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()
	if m, ok := mc.metrics[seriesKey(name, labels)]; ok {
		return m.Value
	}
	return 0
}

// ExportPrometheus renders every series in the text exposition format, with runtime
// gauges refreshed at call time.
func (mc *MetricsCollector) ExportPrometheus() string {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	mc.SetGauge("process_goroutines", float64(runtime.NumGoroutine()), nil)
	mc.SetGauge("process_heap_alloc_bytes", float64(ms.HeapAlloc), nil)
	mc.SetGauge("process_uptime_seconds", mc.GetUptime().Seconds(), nil)

	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	byName := make(map[string][]*Metric)
	for _, m := range mc.metrics {
		byName[m.Name] = append(byName[m.Name], m)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		series := byName[name]
		sort.Slice(series, func(i, j int) bool {
			return seriesKey(name, series[i].Labels) < seriesKey(name, series[j].Labels)
		})
		help := mc.help[name]
		if help == "" {
			help = fmt.Sprintf("Metric %s", name)
		}
		fmt.Fprintf(&b, "# HELP %s %s\n", name, help)
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, series[0].Type)
		for _, m := range series {
			fmt.Fprintf(&b, "%s%s %g\n", name, formatLabels(m.Labels), m.Value)
		}
	}
	return b.String()
}

// GetUptime is the time since the collector was created.
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

func seriesKey(name string, labels map[string]string) string {
	return name + formatLabels(labels)
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func copyLabels(labels map[string]string) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
