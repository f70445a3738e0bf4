package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/voxstream/pkg/config"
	"github.com/harunnryd/voxstream/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// setupMetrics builds the session observer. With metrics.otel enabled the
// events feed an OpenTelemetry MeterProvider whose totals are logged on
// shutdown.
func setupMetrics(ctx context.Context, cfg config.Config, logger *slog.Logger) (metrics.Observer, func(context.Context) error, error) {
	var observers []metrics.Observer
	if cfg.Metrics.Log {
		observers = append(observers, metrics.NewLoggerObserver(logger))
	}
	shutdown := func(context.Context) error { return nil }

	if cfg.Metrics.OTel {
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName(appName),
				attribute.String("service.version", Version),
			),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("telemetry resource: %w", err)
		}
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
			sdkmetric.WithResource(res),
		)
		observers = append(observers, metrics.NewOTelObserver(mp))
		shutdown = func(ctx context.Context) error {
			var rm metricdata.ResourceMetrics
			if err := reader.Collect(ctx, &rm); err != nil {
				logger.Warn("failed to collect metrics", slog.String("error", err.Error()))
			} else {
				logMetrics(logger, rm)
			}
			return mp.Shutdown(ctx)
		}
		logger.Info("telemetry initialized", slog.String("exporter", "log"))
	}

	switch len(observers) {
	case 0:
		return metrics.NoopObserver{}, shutdown, nil
	case 1:
		return observers[0], shutdown, nil
	default:
		return metrics.NewMultiObserver(observers...), shutdown, nil
	}
}

func logMetrics(logger *slog.Logger, rm metricdata.ResourceMetrics) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[float64]:
				var total float64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				logger.Info("session metric", slog.String("name", m.Name), slog.Float64("total", total))
			case metricdata.Histogram[float64]:
				var count uint64
				var sum float64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				logger.Info("session metric",
					slog.String("name", m.Name),
					slog.Uint64("count", count),
					slog.Float64("sum", sum))
			}
		}
	}
}
