package backend

import (
	"context"
	"time"

	"financas/internal/core"
	"financas/internal/ports"
)

// Backend bundles the collections the dashboard reads and mutates.
type Backend struct {
	Categories ports.CategoryStore
	Revenues   ports.TransactionStore
	Expenses   ports.TransactionStore
	Health     ports.HealthChecker
}

// Transactions returns the store for a transaction kind, or nil.
func (b *Backend) Transactions(kind core.Kind) ports.TransactionStore {
	switch kind {
	case core.Revenue:
		return b.Revenues
	case core.Expense:
		return b.Expenses
	}
	return nil
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Remote specific
	APIBaseURL string
	APITimeout time.Duration

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	RemoteBackend BackendType = "remote"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case RemoteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
