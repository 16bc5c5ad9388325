package fakes

import (
	"sync"
	"time"

	"github.com/booklend/library-services-go/observability"
)

// CounterRecord is one captured counter increment.
type CounterRecord struct {
	Metric string
	Labels map[string]string
}

// DurationRecord is one captured duration measurement.
type DurationRecord struct {
	Metric   string
	Duration time.Duration
	Labels   map[string]string
}

// MetricsSpy captures metrics calls for assertions.
type MetricsSpy struct {
	mu        sync.Mutex
	counters  []CounterRecord
	durations []DurationRecord
}

// NewMetricsSpy creates an empty metrics spy.
func NewMetricsSpy() *MetricsSpy {
	return &MetricsSpy{}
}

// IncrementCounter records a counter increment.
func (s *MetricsSpy) IncrementCounter(metric string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = append(s.counters, CounterRecord{Metric: metric, Labels: labels})
}

// RecordDuration records a duration measurement.
func (s *MetricsSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durations = append(s.durations, DurationRecord{Metric: metric, Duration: duration, Labels: labels})
}

// RecordValue is a no-op capture; the retry policy does not record gauges.
func (s *MetricsSpy) RecordValue(string, float64, map[string]string) {}

// CounterCount returns how often the given counter was incremented.
func (s *MetricsSpy) CounterCount(metric string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0

	for _, record := range s.counters {
		if record.Metric == metric {
			count++
		}
	}

	return count
}

// Durations returns all captured measurements for the given metric.
func (s *MetricsSpy) Durations(metric string) []DurationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []DurationRecord

	for _, record := range s.durations {
		if record.Metric == metric {
			records = append(records, record)
		}
	}

	return records
}

var _ observability.MetricsCollector = (*MetricsSpy)(nil)
