package enumerator

import "time"

// MetricsObserver defines the interface for observing enumerator events.
type MetricsObserver interface {
	// OnEnumerate is called after Enumerate. inserted is true when a new
	// record was appended.
	OnEnumerate(duration time.Duration, inserted bool, err error)

	// OnLookup is called after TryEnumerate.
	OnLookup(duration time.Duration, found bool, err error)

	// OnValueOf is called after a reverse lookup.
	OnValueOf(duration time.Duration, err error)

	// OnFlush is called when a flush completes.
	OnFlush(duration time.Duration, err error)

	// OnIndexRebuild is called when the index was rebuilt from the data file.
	OnIndexRebuild(duration time.Duration, records int, err error)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnEnumerate(time.Duration, bool, error)   {}
func (NoopMetricsObserver) OnLookup(time.Duration, bool, error)      {}
func (NoopMetricsObserver) OnValueOf(time.Duration, error)           {}
func (NoopMetricsObserver) OnFlush(time.Duration, error)             {}
func (NoopMetricsObserver) OnIndexRebuild(time.Duration, int, error) {}
