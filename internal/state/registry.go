/*
State implements per-strategy state ownership: the in-memory registry the
run loop exclusively mutates, its state-hash function, WAL-backed
snapshotting, and the crash-recovery algorithm.

# Module
  - registry: map of strategy_id -> *strategy.StrategyState, owned solely
    by the run loop thread
  - hash: deterministic 128-bit digest for replay verification
  - snapshot + recover: per-strategy snapshot restore and fill replay

# Source
  - fills applied by the run loop via strategy.ApplyFill
  - WAL records read back by Recover

# Produce
  - recovered StrategyState per strategy, with verified state hash

# Sharded
  - strategy_id
*/
package state

import "arbitragefx/internal/strategy"

// Registry owns every StrategyState for the run's lifetime. Per spec
// §7's propagation policy, one strategy's error never touches another's
// state: callers index by ID and never hold cross-strategy references.
type Registry struct {
	byID map[string]*strategy.StrategyState
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*strategy.StrategyState)}
}

// GetOrCreate returns the StrategyState for id, creating it with startTs
// if this is the first reference.
func (r *Registry) GetOrCreate(id string, startTs int64) *strategy.StrategyState {
	s, ok := r.byID[id]
	if !ok {
		s = &strategy.StrategyState{ID: id, StartTs: startTs}
		r.byID[id] = s
	}
	return s
}

// Get returns the StrategyState for id, if present.
func (r *Registry) Get(id string) (*strategy.StrategyState, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Set installs a StrategyState directly, used by snapshot restore.
func (r *Registry) Set(s strategy.StrategyState) {
	cp := s
	r.byID[s.ID] = &cp
}

// IDs returns every strategy ID currently tracked, for deterministic
// iteration callers should sort this slice themselves.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of tracked strategies.
func (r *Registry) Count() int {
	return len(r.byID)
}
