package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestFetchMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFetchMetrics(reg)

	m.ObserveUpstream("nasa", 250*time.Millisecond, nil)
	m.ObserveUpstream("nasa", 10*time.Millisecond, errors.New("boom"))
	m.IncCacheHit("nasa")
	m.IncCacheHit("nasa")
	m.IncCacheMiss("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"spacedash_upstream_requests_total", map[string]string{"source": "nasa", "outcome": "success"}, 1},
		{"spacedash_upstream_requests_total", map[string]string{"source": "nasa", "outcome": "error"}, 1},
		{"spacedash_cache_lookups_total", map[string]string{"source": "nasa", "result": "hit"}, 2},
		{"spacedash_cache_lookups_total", map[string]string{"source": "unknown", "result": "miss"}, 1},
	}
	for _, c := range checks {
		got, err := fetchCounterValue(mfs, c.name, c.labels)
		if err != nil {
			t.Fatalf("fetch %s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s%v = %f, want %f", c.name, c.labels, got, c.want)
		}
	}

	mf := findMetricFamily(mfs, "spacedash_upstream_request_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("expected one histogram series")
	}
	if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 2 {
		t.Fatalf("expected 2 samples, got %d", count)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewFetchMetrics(nil)
	m.ObserveUpstream("nasa", time.Second, nil)
	m.IncCacheHit("nasa")

	var nilMetrics *FetchMetrics
	nilMetrics.IncCacheMiss("nasa")
	nilMetrics.ObserveUpstream("nasa", time.Second, nil)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchLabels(metric, labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q with labels %v not found", name, labels)
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != want {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
