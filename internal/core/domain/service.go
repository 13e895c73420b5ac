package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceNode is a by-value snapshot of a dependency service taken at
// registration time. Later registry writes never change an already-registered
// parent's fee split, because the parent owns its copy of the whole subtree.
type ServiceNode struct {
	ID        int64         `json:"id"`
	Price     int64         `json:"price"`
	Owner     uuid.UUID     `json:"owner"`
	DependsOn []ServiceNode `json:"depends_on,omitempty"`
}

// Service is an immutable registered service. ID, BillingPeriod and Price are
// fixed at first registration; a second registration with the same ID is a
// no-op, never an overwrite.
type Service struct {
	ID            int64         `json:"id"`
	BillingPeriod time.Duration `json:"billing_period"` // stored as whole seconds
	Price         int64         `json:"price"`          // in the reference currency
	Owner         uuid.UUID     `json:"owner"`
	DependsOn     []ServiceNode `json:"depends_on,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Root returns the service viewed as a snapshot node, so the billing engine
// can traverse root and dependencies uniformly.
func (s *Service) Root() ServiceNode {
	return ServiceNode{
		ID:        s.ID,
		Price:     s.Price,
		Owner:     s.Owner,
		DependsOn: s.DependsOn,
	}
}

// FlattenUnique walks the snapshot breadth-first from the root and returns
// each distinct service node exactly once. The visited set makes the walk
// terminate even if a stored snapshot somehow contains a cycle.
func (s *Service) FlattenUnique() []ServiceNode {
	visited := make(map[int64]bool)
	queue := []ServiceNode{s.Root()}
	var out []ServiceNode

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if visited[node.ID] {
			continue
		}
		visited[node.ID] = true
		out = append(out, node)
		queue = append(queue, node.DependsOn...)
	}
	return out
}
