// Package organizer implements spec.md §4.7/§4.8's BlockOrganizer and
// TransactionOrganizer: the check→accept→connect pipelines that turn a
// candidate block or transaction into either a persistent-chain mutation
// (via internal/fastchain) or a mempool admission, plus the subscriber
// notifications and chain mutex both pipelines share.
package organizer

import "sync"

// ChainMutex is spec.md §5's "prioritized read/write lock (two regions, not
// readers/writers)": a single exclusive critical section with two priority
// classes. BlockOrganizer always takes the high-priority region; a pending
// high-priority request makes every low-priority (TransactionOrganizer)
// acquire wait, even one already queued, so block attach/reorganize never
// waits behind an arbitrarily long run of transaction admissions.
type ChainMutex struct {
	mu          sync.Mutex
	cond        *sync.Cond
	locked      bool
	highWaiting int
}

// NewChainMutex creates an unlocked chain mutex.
func NewChainMutex() *ChainMutex {
	m := &ChainMutex{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// LockHigh acquires the mutex as the block organizer's high-priority region.
func (m *ChainMutex) LockHigh() {
	m.mu.Lock()
	m.highWaiting++
	for m.locked {
		m.cond.Wait()
	}
	m.highWaiting--
	m.locked = true
	m.mu.Unlock()
}

// LockLow acquires the mutex as the transaction organizer's low-priority
// region, yielding to any high-priority request already waiting.
func (m *ChainMutex) LockLow() {
	m.mu.Lock()
	for m.locked || m.highWaiting > 0 {
		m.cond.Wait()
	}
	m.locked = true
	m.mu.Unlock()
}

// Unlock releases the mutex, waking every waiter so high-priority requests
// can recheck their admission condition first.
func (m *ChainMutex) Unlock() {
	m.mu.Lock()
	m.locked = false
	m.mu.Unlock()
	m.cond.Broadcast()
}
