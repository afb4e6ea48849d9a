// internal/tenant/lock.go
//
// Per-access-code mutual exclusion.
//
// Context
// -------
// The store offers no transactions, so multi-key updates (site plus
// site index, tenant plus voucher claim) are serialized per owner code
// inside this process.  Mutexes are reference counted and removed when
// the last holder releases, so the map does not grow with the tenant
// population.
//
// This protects against lost updates between concurrent requests on
// one node; cross-node races remain possible and are accepted, matching
// the store's eventual-consistency contract.
package tenant

import "sync"

// KeyedMutex hands out one mutex per key on demand.
type KeyedMutex struct {
	mu   sync.Mutex
	held map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// NewKeyedMutex returns an empty lock table.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{held: make(map[string]*refMutex)}
}

// Lock blocks until the key's mutex is held and returns the unlock
// function.  Typical use:
//
//	defer locks.Lock(code)()
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	rm, ok := k.held[key]
	if !ok {
		rm = &refMutex{}
		k.held[key] = rm
	}
	rm.refs++
	k.mu.Unlock()

	rm.Mutex.Lock()

	return func() {
		rm.Mutex.Unlock()
		k.mu.Lock()
		rm.refs--
		if rm.refs == 0 {
			delete(k.held, key)
		}
		k.mu.Unlock()
	}
}

// Len reports the number of keys currently tracked.  Test helper.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.held)
}
