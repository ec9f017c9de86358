package recordset

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type instruments struct {
	pageFetches metric.Int64Counter
	hits        metric.Int64Counter
	misses      metric.Int64Counter
	notPresent  metric.Int64Counter
}

func newInstruments(meter metric.Meter) *instruments {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("recordset")
	}
	return &instruments{
		pageFetches: counter(meter, "recordset_page_fetches_total", "Pages fetched from the transport"),
		hits:        counter(meter, "recordset_cache_hits_total", "Element reads served from the collection cache"),
		misses:      counter(meter, "recordset_cache_misses_total", "Element reads that needed a page fetch"),
		notPresent:  counter(meter, "recordset_not_present_total", "Slots still empty after their page was fetched"),
	}
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}

func (i *instruments) add(ctx context.Context, c metric.Int64Counter, kind string) {
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
