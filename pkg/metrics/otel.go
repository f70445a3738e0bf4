package metrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/harunnryd/voxstream/metrics"

// OTelObserver forwards events to OpenTelemetry instruments. Latency events
// (names ending in "_ms") become histograms; everything else is a counter.
type OTelObserver struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
	onError    func(error)
}

// NewOTelObserver builds an observer on the given provider, or on the
// global provider when mp is nil.
func NewOTelObserver(mp metric.MeterProvider) *OTelObserver {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return &OTelObserver{
		meter:      mp.Meter(meterName),
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		onError:    otel.Handle,
	}
}

func (o *OTelObserver) RecordEvent(ev MetricsEvent) {
	ctx := context.Background()
	opt := metric.WithAttributes(tagAttributes(ev.Tags)...)
	if strings.HasSuffix(ev.Name, "_ms") {
		h, err := o.histogram(ev.Name)
		if err != nil {
			o.onError(err)
			return
		}
		h.Record(ctx, ev.Value, opt)
		return
	}
	c, err := o.counter(ev.Name)
	if err != nil {
		o.onError(err)
		return
	}
	c.Add(ctx, ev.Value, opt)
}

func (o *OTelObserver) counter(name string) (metric.Float64Counter, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if c, ok := o.counters[name]; ok {
		return c, nil
	}
	c, err := o.meter.Float64Counter(name)
	if err != nil {
		return nil, err
	}
	o.counters[name] = c
	return c, nil
}

func (o *OTelObserver) histogram(name string) (metric.Float64Histogram, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if h, ok := o.histograms[name]; ok {
		return h, nil
	}
	h, err := o.meter.Float64Histogram(name, metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	o.histograms[name] = h
	return h, nil
}

func tagAttributes(tags map[string]string) []attribute.KeyValue {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, tags[k]))
	}
	return attrs
}
