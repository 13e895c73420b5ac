package ports

import "context"

// HealthChecker verifies connectivity to an external dependency.
type HealthChecker interface {
	// Ping returns nil if the dependency is reachable.
	Ping(ctx context.Context) error
	// Name identifies the dependency (e.g., "postgresql", "redis").
	Name() string
}
