// Package pending correlates responses with the requests that are waiting for them.
package pending

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"projekt/control/lib/message"
)

var (
	ErrDuplicateIdentifier = errors.New("a request with this identifier is already pending")
	ErrUnmatchedResponse   = errors.New("no request is waiting for this identifier")
	ErrAbandoned           = errors.New("the request was abandoned")
	ErrClosed              = errors.New("pending table is closed")
)

// Result is the terminal outcome of a Waiter.
// Exactly one of Response and Err is meaningful.
type Result struct {
	Response message.Response
	Err      error
}

// Waiter is the handle of one pending request.
// It is resolved exactly once.
type Waiter struct {
	id     string
	done   chan struct{}
	result Result
}

func newWaiter(id string) *Waiter {
	return &Waiter{
		id:   id,
		done: make(chan struct{}),
	}
}

// ID returns the identifier the waiter was registered with.
func (w *Waiter) ID() string {
	return w.id
}

// Done is closed once the waiter is resolved.
func (w *Waiter) Done() <-chan struct{} {
	return w.done
}

// Wait blocks until the waiter is resolved or the context is done.
// A done context does not remove the waiter from its table.
func (w *Waiter) Wait(ctx context.Context) (message.Response, error) {
	select {
	case <-w.done:
		return w.result.Response, w.result.Err
	case <-ctx.Done():
		return message.Response{}, ctx.Err()
	}
}

// must be called with the table lock held and after removal from the table.
func (w *Waiter) resolve(result Result) {
	w.result = result
	close(w.done)
}

// Table maps identifiers of pending requests to their waiters.
// All methods are safe for concurrent use.
type Table struct {
	mutex   sync.Mutex
	waiters map[string]*Waiter
	closed  error
}

func NewTable() *Table {
	return &Table{
		waiters: make(map[string]*Waiter),
	}
}

// Register creates a waiter for id.
// It fails with ErrDuplicateIdentifier if id is pending already
// and with the terminal error of ResolveAll once the table is drained.
func (t *Table) Register(id string) (*Waiter, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed != nil {
		return nil, t.closed
	}
	if _, has := t.waiters[id]; has {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateIdentifier, id)
	}
	w := newWaiter(id)
	t.waiters[id] = w
	return w, nil
}

// Resolve hands a response to the waiter registered for its identifier.
// It returns ErrUnmatchedResponse if there is none.
func (t *Table) Resolve(response message.Response) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	w, ok := t.waiters[response.ID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnmatchedResponse, response.ID)
	}
	delete(t.waiters, response.ID)
	w.resolve(Result{Response: response})
	return nil
}

// Abandon removes w from the table and resolves it with ErrAbandoned.
// It returns false if w was resolved already.
// A response for the identifier arriving later is unmatched.
func (t *Table) Abandon(w *Waiter) bool {
	return t.Fail(w, ErrAbandoned)
}

// Fail removes w from the table and resolves it with err.
// It returns false if w was resolved already.
func (t *Table) Fail(w *Waiter, err error) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if current, ok := t.waiters[w.id]; !ok || current != w {
		return false
	}
	delete(t.waiters, w.id)
	w.resolve(Result{Err: err})
	return true
}

// ResolveAll resolves every pending waiter with err
// and rejects all further registrations with err.
// Only the first call has an effect. It returns the number of resolved waiters.
func (t *Table) ResolveAll(err error) int {
	if err == nil {
		err = ErrClosed
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed != nil {
		return 0
	}
	t.closed = err
	n := len(t.waiters)
	for id, w := range t.waiters {
		delete(t.waiters, id)
		w.resolve(Result{Err: err})
	}
	return n
}

// Len returns the number of pending waiters.
func (t *Table) Len() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.waiters)
}
