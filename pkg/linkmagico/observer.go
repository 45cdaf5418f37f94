package linkmagico

import (
	"context"
	"time"

	"github.com/jmylchreest/linkmagico/pkg/product"
)

// Outcome classifies how an Extract call was served.
type Outcome string

const (
	OutcomeHit     Outcome = "hit"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// ExtractionObserver receives one event per Extract call, after the result
// is known. Implementations must be safe for concurrent use and should not
// block.
type ExtractionObserver interface {
	OnExtraction(ctx context.Context, event ExtractionEvent)
}

// ExtractionEvent describes a completed Extract call.
type ExtractionEvent struct {
	URL       string
	Outcome   Outcome
	StartedAt time.Time
	Duration  time.Duration

	// FetchDuration is zero for cache hits and URLs rejected before fetching.
	FetchDuration time.Duration

	// Err and ErrorKind are set for failures.
	Err       error
	ErrorKind product.ErrorKind
}

// ObserverFunc adapts a function to ExtractionObserver.
type ObserverFunc func(ctx context.Context, event ExtractionEvent)

// OnExtraction implements ExtractionObserver.
func (f ObserverFunc) OnExtraction(ctx context.Context, event ExtractionEvent) {
	f(ctx, event)
}

// MultiObserver dispatches each event to several observers in order.
type MultiObserver struct {
	observers []ExtractionObserver
}

// NewMultiObserver creates an observer that dispatches to multiple observers.
func NewMultiObserver(observers ...ExtractionObserver) *MultiObserver {
	return &MultiObserver{observers: observers}
}

// OnExtraction implements ExtractionObserver.
func (m *MultiObserver) OnExtraction(ctx context.Context, event ExtractionEvent) {
	for _, obs := range m.observers {
		obs.OnExtraction(ctx, event)
	}
}

// Add appends an observer. It is not safe to call concurrently with
// OnExtraction.
func (m *MultiObserver) Add(obs ExtractionObserver) {
	m.observers = append(m.observers, obs)
}
