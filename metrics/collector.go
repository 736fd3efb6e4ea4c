package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Metric types.
const (
	TypeCounter   = "counter"
	TypeGauge     = "gauge"
	TypeHistogram = "histogram"
)

// historyLimit bounds the samples a histogram keeps for averaging.
const historyLimit = 100

// Collector is an in-process, label-keyed metric store.
type Collector struct {
	metrics map[string]*Metric
	mu      sync.RWMutex
}

// Metric is one series. Histograms keep the last historyLimit samples plus
// lifetime Count and Sum.
type Metric struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	History   []float64         `json:"history,omitempty"`
	Count     int64             `json:"count,omitempty"`
	Sum       float64           `json:"sum,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

func NewCollector() *Collector {
	return &Collector{
		metrics: make(map[string]*Metric),
	}
}

// IncCounter adds one to a counter.
func (c *Collector) IncCounter(name string, labels map[string]string) {
	c.AddCounter(name, 1, labels)
}

func (c *Collector) AddCounter(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildKey(name, labels)
	if metric, exists := c.metrics[key]; exists {
		metric.Value += value
		metric.Timestamp = time.Now().Unix()
		return
	}
	c.metrics[key] = &Metric{
		Name:      name,
		Type:      TypeCounter,
		Value:     value,
		Labels:    copyLabels(labels),
		Timestamp: time.Now().Unix(),
	}
}

func (c *Collector) SetGauge(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics[buildKey(name, labels)] = &Metric{
		Name:      name,
		Type:      TypeGauge,
		Value:     value,
		Labels:    copyLabels(labels),
		Timestamp: time.Now().Unix(),
	}
}

// ObserveHistogram records one sample. Value holds the latest sample.
func (c *Collector) ObserveHistogram(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildKey(name, labels)
	metric, exists := c.metrics[key]
	if !exists {
		metric = &Metric{Name: name, Type: TypeHistogram, Labels: copyLabels(labels)}
		c.metrics[key] = metric
	}
	metric.Value = value
	metric.History = append(metric.History, value)
	if len(metric.History) > historyLimit {
		metric.History = metric.History[1:]
	}
	metric.Count++
	metric.Sum += value
	metric.Timestamp = time.Now().Unix()
}

// RecordDuration runs fn and observes its duration in milliseconds.
func (c *Collector) RecordDuration(name string, labels map[string]string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.ObserveHistogram(name, float64(time.Since(start).Microseconds())/1000, labels)
	return err
}

// Snapshot returns a deep copy of every series keyed by name and labels.
func (c *Collector) Snapshot() map[string]Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]Metric, len(c.metrics))
	for k, v := range c.metrics {
		m := *v
		m.Labels = copyLabels(v.Labels)
		m.History = append([]float64(nil), v.History...)
		result[k] = m
	}
	return result
}

// Metric returns one series.
func (c *Collector) Metric(name string, labels map[string]string) (Metric, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.metrics[buildKey(name, labels)]
	if !ok {
		return Metric{}, false
	}
	out := *m
	out.Labels = copyLabels(m.Labels)
	out.History = append([]float64(nil), m.History...)
	return out, true
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = make(map[string]*Metric)
}

// Text renders the series in Prometheus exposition format, sorted by key.
// Histograms export _avg, _count and _sum.
func (c *Collector) Text() string {
	snap := c.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		metric := snap[key]
		labels := formatLabels(metric.Labels)
		switch metric.Type {
		case TypeCounter, TypeGauge:
			fmt.Fprintf(&sb, "%s%s %g\n", metric.Name, labels, metric.Value)
		case TypeHistogram:
			if metric.Count == 0 {
				continue
			}
			var sum float64
			for _, v := range metric.History {
				sum += v
			}
			fmt.Fprintf(&sb, "%s_avg%s %g\n", metric.Name, labels, sum/float64(len(metric.History)))
			fmt.Fprintf(&sb, "%s_count%s %d\n", metric.Name, labels, metric.Count)
			fmt.Fprintf(&sb, "%s_sum%s %g\n", metric.Name, labels, metric.Sum)
		}
	}
	return sb.String()
}

// Handler serves Text.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(c.Text()))
	})
}

func buildKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	return name + formatLabels(labels)
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(names))
	for _, k := range names {
		pairs = append(pairs, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

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
