package engine

import (
	"sync"
	"sync/atomic"
)

// Status is the export job state.
type Status int

const (
	StatusIdle Status = iota
	StatusPreparing
	StatusEncodingVideo
	StatusComplete
	StatusError
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPreparing:
		return "preparing"
	case StatusEncodingVideo:
		return "encoding"
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether s only leaves through Reset.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError || s == StatusCancelled
}

// canAdvance lists the forward transitions a running job may make.
func canAdvance(from, to Status) bool {
	switch from {
	case StatusIdle:
		return to == StatusPreparing
	case StatusPreparing:
		return to == StatusEncodingVideo || to == StatusError || to == StatusCancelled
	case StatusEncodingVideo:
		return to == StatusComplete || to == StatusError || to == StatusCancelled
	}
	return false
}

// Observable holds a value with one writer and any number of readers.
// Get never locks; subscribers receive the latest value on a one-slot
// channel, so a slow reader skips intermediate values and never blocks Set.
type Observable[T any] struct {
	v    atomic.Pointer[T]
	mu   sync.Mutex
	subs map[int]chan T
	next int
}

// NewObservable returns an observable holding initial.
func NewObservable[T any](initial T) *Observable[T] {
	o := &Observable[T]{subs: make(map[int]chan T)}
	o.v.Store(&initial)
	return o
}

func (o *Observable[T]) Get() T {
	return *o.v.Load()
}

// Set publishes v to Get and to every subscriber.
func (o *Observable[T]) Set(v T) {
	o.v.Store(&v)
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ch := range o.subs {
		offer(ch, v)
	}
}

// Subscribe returns a channel primed with the current value and a func
// that unsubscribes and closes the channel.
func (o *Observable[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)
	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = ch
	ch <- o.Get()
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			close(ch)
			o.mu.Unlock()
		})
	}
}

// offer replaces whatever is waiting in ch with v.
func offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
