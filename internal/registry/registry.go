// Package registry implements the pool registry & account cache:
// a routing map from account address to the pool that owns it, and a
// coalescing cache of each pool's last-known account snapshot. It is a pure
// in-memory routing table, built once at startup and read continuously
// thereafter.
package registry

import (
	"log"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/rawblock/arb-engine/internal/pool"
)

// entry pairs a pool handle with the index of addr within that pool's
// UpdateAccounts() list, and a per-pool lock plus the pool's coalescing
// snapshot buffer.
type entry struct {
	p     pool.Pool
	mu    *sync.Mutex
	slots []solana.PublicKey
	cache [][]byte
}

// Registry is the shared routing map (account address -> pool handle) and
// the per-pool account-snapshot cache. The routing map is built once at
// startup and is read-only afterward; per-pool caches are mutated under
// each pool's own lock.
type Registry struct {
	mu        sync.RWMutex // guards route, byAddress and entries during the (one-time) build phase
	route     map[solana.PublicKey]*entry
	byAddress map[solana.PublicKey]pool.Pool
	entries   []*entry
}

func New() *Registry {
	return &Registry{
		route:     make(map[solana.PublicKey]*entry),
		byAddress: make(map[solana.PublicKey]pool.Pool),
	}
}

// Register adds p to the registry, indexing every address in
// p.UpdateAccounts() into the routing map and p.PoolAddress() into the
// pool-address index. Called only during graph build; both maps are
// read-only afterward.
func (r *Registry) Register(p pool.Pool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accts := p.UpdateAccounts()
	e := &entry{
		p:     p,
		mu:    &sync.Mutex{},
		slots: append([]solana.PublicKey(nil), accts...),
		cache: make([][]byte, len(accts)),
	}
	r.entries = append(r.entries, e)
	for _, addr := range accts {
		r.route[addr] = e
	}
	r.byAddress[p.PoolAddress()] = p
}

// Apply routes one incoming account notification to the pool that owns it:
//  1. look up the pool handle, drop if absent
//  2. acquire the pool's lock
//  3. overwrite the slot for addr in the cached snapshot
//  4. invoke SetUpdateAccounts(snapshot) so the pool recomputes derived state
//  5. release
func (r *Registry) Apply(addr solana.PublicKey, payload []byte) {
	r.mu.RLock()
	e, ok := r.route[addr]
	r.mu.RUnlock()
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i, s := range e.slots {
		if s == addr {
			idx = i
			break
		}
	}
	if idx < 0 {
		log.Printf("[Registry] account %s routed to %s but not found in its update_accounts()", addr, e.p.Name())
		return
	}
	e.cache[idx] = payload

	snapshot := make([][]byte, len(e.cache))
	copy(snapshot, e.cache)
	e.p.SetUpdateAccounts(snapshot)
}

// Pools returns every registered pool handle, in registration order.
func (r *Registry) Pools() []pool.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pool.Pool, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.p
	}
	return out
}

// Addresses returns every account address currently routed, for use
// building subscription requests.
func (r *Registry) Addresses() []solana.PublicKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]solana.PublicKey, 0, len(r.route))
	for addr := range r.route {
		out = append(out, addr)
	}
	return out
}

// Lookup reports whether addr is routed and, if so, to which pool — used by
// tests verifying the account-routing invariant: for every (addr, slot) in
// the registry, pool.UpdateAccounts()[slot] == addr.
func (r *Registry) Lookup(addr solana.PublicKey) (pool.Pool, int, bool) {
	r.mu.RLock()
	e, ok := r.route[addr]
	r.mu.RUnlock()
	if !ok {
		return nil, 0, false
	}
	for i, s := range e.slots {
		if s == addr {
			return e.p, i, true
		}
	}
	return e.p, -1, true
}

// PoolByAddress looks up a pool by its own address (distinct from the
// account addresses in its UpdateAccounts() set), used to resolve a cycle
// candidate's PoolAddrs back to pool.Pool handles without an ambiguous
// name-based scan.
func (r *Registry) PoolByAddress(addr solana.PublicKey) (pool.Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byAddress[addr]
	return p, ok
}
