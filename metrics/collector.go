// Package metrics records what an updater run did in Prometheus form. A run
// is short lived, so the metrics are written to a file for the node
// exporter's textfile collector instead of being served.
package metrics

import (
	"fmt"
	"time"

	"plugin-updater/plugin"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

const namespace = "plugin_updater"

// Transfer directions
const (
	DirectionUpload   = "upload"
	DirectionDownload = "download"
)

// Collector holds the metrics of one run on its own registry.
type Collector struct {
	registry *prometheus.Registry

	transfers     *prometheus.CounterVec
	staged        prometheus.Counter
	dropped       prometheus.Counter
	plugins       *prometheus.GaugeVec
	runDuration   prometheus.Gauge
	lastSuccessAt prometheus.Gauge
}

// NewCollector creates a collector with all metrics registered.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		transfers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Plugin files transferred to or from the registry",
			},
			[]string{"direction"},
		),
		staged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "staged_uninstalls_total",
			Help:      "Plugins staged for removal on the next start",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_total",
			Help:      "Unmanaged files that disappeared from the installation",
		}),
		plugins: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "plugins",
				Help:      "Plugins by status after the run",
			},
			[]string{"status"},
		),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run",
		}),
		lastSuccessAt: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RecordTransfers(direction string, n int) {
	c.transfers.WithLabelValues(direction).Add(float64(n))
}

func (c *Collector) RecordStaged(n int) {
	c.staged.Add(float64(n))
}

func (c *Collector) RecordDropped(n int) {
	c.dropped.Add(float64(n))
}

// RecordStatuses sets the plugin gauge for every status, zero included.
func (c *Collector) RecordStatuses(byStatus map[plugin.Status]int) {
	for _, status := range plugin.Statuses() {
		c.plugins.WithLabelValues(status.String()).Set(float64(byStatus[status]))
	}
}

// RecordSuccess marks the run as finished at end after starting at start.
func (c *Collector) RecordSuccess(start, end time.Time) {
	c.runDuration.Set(end.Sub(start).Seconds())
	c.lastSuccessAt.Set(float64(end.Unix()))
}

// WriteFile writes all metrics to filename in the text exposition format.
func (c *Collector) WriteFile(filename string) error {
	if err := prometheus.WriteToTextfile(filename, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}

	log.Debug().Str("file", filename).Msg("Wrote metrics")

	return nil
}
