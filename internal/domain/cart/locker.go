package cart

import "sync"

// customerLocks serializes cart mutations per customer so rapid concurrent
// requests cannot lose updates to totals. Different customers proceed in
// parallel. Entries are reference-counted and removed when idle.
type customerLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newCustomerLocks() *customerLocks {
	return &customerLocks{locks: make(map[string]*lockEntry)}
}

// Lock acquires the customer's exclusive section and returns the release func.
func (c *customerLocks) Lock(customerID string) func() {
	c.mu.Lock()
	e, ok := c.locks[customerID]
	if !ok {
		e = &lockEntry{}
		c.locks[customerID] = e
	}
	e.refs++
	c.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		c.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(c.locks, customerID)
		}
		c.mu.Unlock()
	}
}
