package loyalty

import "sync"

// accountLocks gives each customer's ledger an exclusive section so a balance
// read and the entry it authorizes form one atomic unit. Without it, two
// concurrent redemptions could both pass the balance check and overdraw the
// account. Entries are reference-counted and dropped once idle.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*accountLock)}
}

// Lock acquires the customer's exclusive section and returns the release func.
func (a *accountLocks) Lock(customerID string) func() {
	a.mu.Lock()
	l, ok := a.locks[customerID]
	if !ok {
		l = &accountLock{}
		a.locks[customerID] = l
	}
	l.refs++
	a.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		a.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.locks, customerID)
		}
		a.mu.Unlock()
	}
}
