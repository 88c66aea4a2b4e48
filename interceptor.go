package lightup

import (
	"context"
	"slices"
	"sync"
)

// FulfilledFunc handles a value on the success branch of a chain.
type FulfilledFunc[T any] func(ctx context.Context, value T) (T, error)

// RejectedFunc handles an error on the failure branch of a chain. Returning a
// nil error recovers: later handlers see the returned value on their success
// branch. A recovering response handler must return a non-nil *Response; a
// nil value with a nil error fails the request with an Interceptor error.
type RejectedFunc[T any] func(ctx context.Context, err error) (T, error)

type interceptor[T any] struct {
	fulfilled FulfilledFunc[T]
	rejected  RejectedFunc[T]
}

// InterceptorManager keeps an ordered list of handler pairs. Handler ids are
// stable: ejecting a handler leaves its slot empty so the ids of the others
// never change. It is safe for concurrent use.
type InterceptorManager[T any] struct {
	mu       sync.RWMutex
	handlers []*interceptor[T]
}

// Use appends a handler pair and returns its id. Either function may be nil,
// in which case that branch passes through unchanged.
func (m *InterceptorManager[T]) Use(fulfilled FulfilledFunc[T], rejected RejectedFunc[T]) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers = append(m.handlers, &interceptor[T]{fulfilled: fulfilled, rejected: rejected})
	return len(m.handlers) - 1
}

// Eject removes the handler registered under id. It reports whether a live
// handler was removed.
func (m *InterceptorManager[T]) Eject(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id < 0 || id >= len(m.handlers) || m.handlers[id] == nil {
		return false
	}
	m.handlers[id] = nil
	return true
}

// Len returns the number of live handlers.
func (m *InterceptorManager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, h := range m.handlers {
		if h != nil {
			n++
		}
	}
	return n
}

// Apply runs value and err through the live handlers in insertion order.
// Handlers registered while Apply runs do not affect the current pass.
func (m *InterceptorManager[T]) Apply(ctx context.Context, value T, err error) (T, error) {
	m.mu.RLock()
	handlers := slices.Clone(m.handlers)
	m.mu.RUnlock()

	for _, h := range handlers {
		if h == nil {
			continue
		}
		if err == nil {
			if h.fulfilled != nil {
				value, err = h.fulfilled(ctx, value)
			}
			continue
		}
		if h.rejected != nil {
			value, err = h.rejected(ctx, err)
		}
	}
	return value, err
}

// Interceptors groups the request and response chains of a Client.
type Interceptors struct {
	Request  InterceptorManager[*Config]
	Response InterceptorManager[*Response]
}
