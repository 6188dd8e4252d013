package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "salesreport"

// RunMetrics collects the outcome of a single pipeline run. A batch job has
// no scrape endpoint, so the registry is written to a node-exporter textfile.
type RunMetrics struct {
	registry *prometheus.Registry

	RowsLoaded    prometheus.Gauge
	RowsKept      prometheus.Gauge
	RowsDropped   *prometheus.GaugeVec
	CellsFilled   *prometheus.GaugeVec
	SheetsWritten prometheus.Gauge
	LastSuccess   prometheus.Gauge
	LastRun       prometheus.Gauge
	Duration      prometheus.Gauge
}

// NewRunMetrics registers the run gauges on a private registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		RowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "rows_loaded",
			Help:      "Rows read from the sales data file.",
		}),
		RowsKept: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "rows_kept",
			Help:      "Rows remaining after cleaning.",
		}),
		RowsDropped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "rows_dropped",
			Help:      "Rows removed during cleaning, by reason.",
		}, []string{"reason"}),
		CellsFilled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cells_filled",
			Help:      "Missing or invalid cells replaced during cleaning, by kind.",
		}, []string{"kind"}),
		SheetsWritten: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sheets_written",
			Help:      "Worksheets in the exported workbook.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_success",
			Help:      "1 if the last run succeeded, 0 otherwise.",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		Duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}

	m.registry.MustRegister(
		m.RowsLoaded, m.RowsKept, m.RowsDropped, m.CellsFilled,
		m.SheetsWritten, m.LastSuccess, m.LastRun, m.Duration,
	)
	return m
}

// Finish stamps the outcome of the run.
func (m *RunMetrics) Finish(finished time.Time, elapsed time.Duration, err error) {
	if err == nil {
		m.LastSuccess.Set(1)
	} else {
		m.LastSuccess.Set(0)
	}
	m.LastRun.Set(float64(finished.Unix()))
	m.Duration.Set(elapsed.Seconds())
}

// Registry exposes the underlying gatherer.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all gauges in the text exposition format. An empty
// path is a no-op.
func (m *RunMetrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
