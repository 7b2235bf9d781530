package backend

import (
	"context"
	"fmt"

	"financas/internal/api"
	"financas/internal/backend/memory"
	"financas/internal/core"
	applog "financas/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Nop()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case RemoteBackend:
		return f.createRemoteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	client, err := api.New(config.APIBaseURL,
		api.WithTimeout(config.APITimeout),
		api.WithLogger(f.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API client: %w", err)
	}
	revenues, err := api.NewTransactions(client, core.Revenue)
	if err != nil {
		return nil, err
	}
	expenses, err := api.NewTransactions(client, core.Expense)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Initialized remote backend",
		"base_url", client.BaseURL(),
		"timeout", config.APITimeout.String())

	return &BackendResult{
		Backend: &Backend{
			Categories: api.NewCategories(client),
			Revenues:   revenues,
			Expenses:   expenses,
			Health:     remoteHealth{client: client},
		},
	}, nil
}

// remoteHealth treats any HTTP answer from /categories as reachable.
type remoteHealth struct {
	client *api.Client
}

func (h remoteHealth) Ping(ctx context.Context) error {
	return h.client.Ping(ctx, "/categories")
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Backend: &Backend{
			Categories: store.Categories(),
			Revenues:   store.Transactions(core.Revenue),
			Expenses:   store.Transactions(core.Expense),
			Health:     store,
		},
	}, nil
}

