package recommend

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// PanicError is a panic recovered while processing one item.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// runPool calls fn for every index in [0,total) on up to workers goroutines.
// Per-item errors and panics are returned by index; the returned error is
// set only when ctx ended before every item was processed.
func runPool(ctx context.Context, workers, total int, fn func(idx int) error) ([]error, error) {
	errs := make([]error, total)
	if total == 0 {
		return errs, nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	indexCh := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			errs[idx] = safeCall(fn, idx)
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()

	return errs, ctx.Err()
}

func safeCall(fn func(int) error, idx int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(idx)
}
