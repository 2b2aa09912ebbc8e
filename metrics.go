package enumstore

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/enumstore/enumerator"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    insertCounter prometheus.Counter
//	    lookupSeconds prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordEnumerate(d time.Duration, inserted bool, err error) {
//	    if inserted {
//	        p.insertCounter.Inc()
//	    }
//	}
type MetricsCollector interface {
	// RecordEnumerate is called after each Enumerate. inserted reports
	// whether a new record was written.
	RecordEnumerate(duration time.Duration, inserted bool, err error)

	// RecordLookup is called after each TryEnumerate.
	RecordLookup(duration time.Duration, found bool, err error)

	// RecordValueOf is called after each reverse lookup.
	RecordValueOf(duration time.Duration, err error)

	// RecordFlush is called after each flush.
	RecordFlush(duration time.Duration, err error)

	// RecordIndexRebuild is called after the index was rebuilt from the data
	// file. records is the number of indexed records.
	RecordIndexRebuild(duration time.Duration, records int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordEnumerate(time.Duration, bool, error)   {}
func (NoopMetricsCollector) RecordLookup(time.Duration, bool, error)      {}
func (NoopMetricsCollector) RecordValueOf(time.Duration, error)           {}
func (NoopMetricsCollector) RecordFlush(time.Duration, error)             {}
func (NoopMetricsCollector) RecordIndexRebuild(time.Duration, int, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	EnumerateCount      atomic.Int64
	EnumerateInserted   atomic.Int64
	EnumerateErrors     atomic.Int64
	EnumerateTotalNanos atomic.Int64
	LookupCount         atomic.Int64
	LookupHits          atomic.Int64
	LookupErrors        atomic.Int64
	LookupTotalNanos    atomic.Int64
	ValueOfCount        atomic.Int64
	ValueOfErrors       atomic.Int64
	FlushCount          atomic.Int64
	FlushErrors         atomic.Int64
	RebuildCount        atomic.Int64
	RebuildRecords      atomic.Int64
}

// RecordEnumerate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEnumerate(duration time.Duration, inserted bool, err error) {
	b.EnumerateCount.Add(1)
	b.EnumerateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.EnumerateErrors.Add(1)
	} else if inserted {
		b.EnumerateInserted.Add(1)
	}
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(duration time.Duration, found bool, err error) {
	b.LookupCount.Add(1)
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LookupErrors.Add(1)
	} else if found {
		b.LookupHits.Add(1)
	}
}

// RecordValueOf implements MetricsCollector.
func (b *BasicMetricsCollector) RecordValueOf(duration time.Duration, err error) {
	b.ValueOfCount.Add(1)
	if err != nil {
		b.ValueOfErrors.Add(1)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(duration time.Duration, err error) {
	b.FlushCount.Add(1)
	if err != nil {
		b.FlushErrors.Add(1)
	}
}

// RecordIndexRebuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIndexRebuild(duration time.Duration, records int, err error) {
	b.RebuildCount.Add(1)
	if err == nil {
		b.RebuildRecords.Add(int64(records))
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		EnumerateCount:    b.EnumerateCount.Load(),
		EnumerateInserted: b.EnumerateInserted.Load(),
		EnumerateErrors:   b.EnumerateErrors.Load(),
		EnumerateAvgNanos: avg(b.EnumerateTotalNanos.Load(), b.EnumerateCount.Load()),
		LookupCount:       b.LookupCount.Load(),
		LookupHits:        b.LookupHits.Load(),
		LookupErrors:      b.LookupErrors.Load(),
		LookupAvgNanos:    avg(b.LookupTotalNanos.Load(), b.LookupCount.Load()),
		ValueOfCount:      b.ValueOfCount.Load(),
		ValueOfErrors:     b.ValueOfErrors.Load(),
		FlushCount:        b.FlushCount.Load(),
		FlushErrors:       b.FlushErrors.Load(),
		RebuildCount:      b.RebuildCount.Load(),
		RebuildRecords:    b.RebuildRecords.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	EnumerateCount    int64
	EnumerateInserted int64
	EnumerateErrors   int64
	EnumerateAvgNanos int64
	LookupCount       int64
	LookupHits        int64
	LookupErrors      int64
	LookupAvgNanos    int64
	ValueOfCount      int64
	ValueOfErrors     int64
	FlushCount        int64
	FlushErrors       int64
	RebuildCount      int64
	RebuildRecords    int64
}

// observer feeds enumerator events into a MetricsCollector.
type observer struct {
	mc MetricsCollector
}

var _ enumerator.MetricsObserver = observer{}

func (o observer) OnEnumerate(d time.Duration, inserted bool, err error) {
	o.mc.RecordEnumerate(d, inserted, err)
}

func (o observer) OnLookup(d time.Duration, found bool, err error) { o.mc.RecordLookup(d, found, err) }
func (o observer) OnValueOf(d time.Duration, err error)            { o.mc.RecordValueOf(d, err) }
func (o observer) OnFlush(d time.Duration, err error)              { o.mc.RecordFlush(d, err) }

func (o observer) OnIndexRebuild(d time.Duration, records int, err error) {
	o.mc.RecordIndexRebuild(d, records, err)
}
