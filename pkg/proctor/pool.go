package proctor

import (
	"context"
	"errors"
	"sync"
)

var ErrPoolClosed = errors.New("proctor: pool closed")

// Pool hands out a fixed set of model instances that are not safe for
// concurrent use. Every Acquire must be paired with a Release.
type Pool[T any] struct {
	items   chan T
	size    int
	release func(T) error

	mu     sync.Mutex
	closed bool
}

// NewPool builds size instances with factory. If one fails, the ones already
// built are released and the error returned.
func NewPool[T any](size int, factory func(i int) (T, error), release func(T) error) (*Pool[T], error) {
	if size <= 0 {
		size = 1
	}

	p := &Pool[T]{
		items:   make(chan T, size),
		size:    size,
		release: release,
	}
	for i := 0; i < size; i++ {
		item, err := factory(i)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.items <- item
	}

	return p, nil
}

func (p *Pool[T]) Size() int {
	return p.size
}

func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T
	select {
	case item, ok := <-p.items:
		if !ok {
			return zero, ErrPoolClosed
		}
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Release returns an instance. After Close the instance is released instead.
func (p *Pool[T]) Release(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		if p.release != nil {
			_ = p.release(item)
		}
		return
	}
	p.items <- item
}

// Close releases idle instances now and checked-out ones when they come back.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.items)

	var errs []error
	for item := range p.items {
		if p.release == nil {
			continue
		}
		if err := p.release(item); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
