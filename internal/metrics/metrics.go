package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"lofargeotiff/internal/geo"
	"lofargeotiff/internal/raster"
	"lofargeotiff/internal/station"
)

// Failure reasons used as the reason label.
const (
	ReasonUnknownStation = "unknown_station"
	ReasonConvergence    = "convergence"
	ReasonImageShape     = "image_shape"
	ReasonWrite          = "write"
	ReasonOther          = "other"
)

// Collector bundles conversion metrics. It implements raster.Observer.
type Collector struct {
	gatherer prometheus.Gatherer

	RastersWritten prometheus.Counter
	Failures       *prometheus.CounterVec
	WriteDuration  prometheus.Histogram
}

// NewCollector registers conversion metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	written, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lofargeotiff_rasters_written_total",
		Help: "Total number of georeferenced rasters written.",
	}), "lofargeotiff_rasters_written_total")
	if err != nil {
		return nil, err
	}

	failures, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lofargeotiff_conversion_failures_total",
		Help: "Total number of failed conversions, labeled by reason.",
	}, []string{"reason"}), "lofargeotiff_conversion_failures_total")
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lofargeotiff_write_duration_seconds",
		Help:    "Time spent georeferencing and writing one raster.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "lofargeotiff_write_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		RastersWritten: written,
		Failures:       failures,
		WriteDuration:  duration,
	}, nil
}

// ObserveWrite records one georeferencing attempt.
func (c *Collector) ObserveWrite(elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	c.WriteDuration.Observe(elapsed.Seconds())
	if err != nil {
		c.Failures.WithLabelValues(Reason(err)).Inc()
		return
	}
	c.RastersWritten.Inc()
}

// WriteTextfile writes all gathered metrics to path in the node-exporter
// textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// Reason maps a conversion error to its reason label.
func Reason(err error) string {
	var unknown *station.UnknownStationError
	var convergence *geo.ConvergenceError
	var shape *raster.InvalidImageShapeError
	var write *raster.RasterWriteError
	switch {
	case errors.As(err, &unknown):
		return ReasonUnknownStation
	case errors.As(err, &convergence):
		return ReasonConvergence
	case errors.As(err, &shape):
		return ReasonImageShape
	case errors.As(err, &write):
		return ReasonWrite
	default:
		return ReasonOther
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero C
		return zero, err
	}
	return c, nil
}
