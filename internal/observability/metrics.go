package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds the Prometheus counters and histograms for a batch run.
// The tool is short-lived, so nothing is scraped: the registry is private
// and its final state is logged when the run ends.
type Metrics struct {
	GlaciersProcessed prometheus.Counter
	GlacierErrors     prometheus.Counter
	RastersWritten    prometheus.Counter
	SnowlinesFound    prometheus.Counter

	ScenesResampled prometheus.Counter
	ScenesSkipped   *prometheus.CounterVec // labels: reason={outside_coverage,no_data,read_error}

	GlacierDuration prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates all run metrics on a private registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		m.GlaciersProcessed,
		m.GlacierErrors,
		m.RastersWritten,
		m.SnowlinesFound,
		m.ScenesResampled,
		m.ScenesSkipped,
		m.GlacierDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without a registry so tests can
// observe counters directly.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		GlaciersProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geodata_etl",
			Name:      "glaciers_processed_total",
			Help:      "Glacier-month combinations processed to completion.",
		}),
		GlacierErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geodata_etl",
			Name:      "glacier_errors_total",
			Help:      "Glacier-month combinations abandoned after an error.",
		}),
		RastersWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geodata_etl",
			Name:      "rasters_written_total",
			Help:      "NetCDF and GeoTIFF products written.",
		}),
		SnowlinesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geodata_etl",
			Name:      "snowlines_found_total",
			Help:      "Scenes for which a snowline elevation band was located.",
		}),
		ScenesResampled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geodata_etl",
			Name:      "scenes_resampled_total",
			Help:      "Satellite scenes resampled onto a glacier grid.",
		}),
		ScenesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geodata_etl",
			Name:      "scenes_skipped_total",
			Help:      "Satellite scenes skipped, by reason.",
		}, []string{"reason"}),
		GlacierDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "geodata_etl",
			Name:      "glacier_duration_seconds",
			Help:      "Wall time to process one glacier-month combination.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}

// LogSummary writes the final counter values to the log. Histograms are
// reported as their sample count and sum.
func (m *Metrics) LogSummary(logger *slog.Logger) {
	if m.registry == nil {
		return
	}
	families, err := m.registry.Gather()
	if err != nil {
		logger.Warn("gathering run metrics failed", "error", err)
		return
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			attrs := []any{}
			for _, lp := range metric.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				attrs = append(attrs, "value", metric.GetCounter().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				attrs = append(attrs, "count", h.GetSampleCount(), "sum_seconds", h.GetSampleSum())
			default:
				continue
			}
			logger.Info(mf.GetName(), attrs...)
		}
	}
}
