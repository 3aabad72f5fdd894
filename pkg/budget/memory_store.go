package budget

import (
	"sync"

	"github.com/trustwrapper/core/pkg/contracts"
)

// MemoryEnforcer is a process-local Enforcer suitable for the
// Community tier, where position budgets never need to survive a
// restart or be shared across instances.
type MemoryEnforcer struct {
	*Enforcer
	mu sync.RWMutex
}

// NewMemoryEnforcer creates an Enforcer backed only by process memory.
func NewMemoryEnforcer() *MemoryEnforcer {
	return &MemoryEnforcer{Enforcer: NewEnforcer()}
}

// Snapshot returns a copy of every tracked budget, for diagnostics.
func (m *MemoryEnforcer) Snapshot() map[contracts.AgentHandle]PositionBudget {
	m.Enforcer.mu.Lock()
	defer m.Enforcer.mu.Unlock()

	out := make(map[contracts.AgentHandle]PositionBudget, len(m.Enforcer.budgets))
	for k, v := range m.Enforcer.budgets {
		out[k] = *v
	}
	return out
}
