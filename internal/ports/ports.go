package ports

import (
	"context"

	"financas/internal/core"
)

// Ports for outbound adapters. The REST client and the memory store both
// satisfy the category and transaction ports.
type (
	CategoryReader interface {
		List(ctx context.Context) ([]core.Category, error)
	}

	CategoryWriter interface {
		Create(ctx context.Context, p core.CreateCategoryPayload) (core.Category, error)
	}

	CategoryStore interface {
		CategoryReader
		CategoryWriter
	}

	TransactionReader interface {
		List(ctx context.Context) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		Create(ctx context.Context, p core.CreateTransactionPayload) (core.Transaction, error)
	}

	// TransactionStore serves one kind of transaction (revenues or expenses).
	TransactionStore interface {
		TransactionReader
		TransactionWriter
	}

	// ReportExporter publishes a monthly report somewhere outside the app
	// and returns a reference to where it was written.
	ReportExporter interface {
		Export(ctx context.Context, r core.Report) (ref string, err error)
	}

	// HealthChecker reports whether a backend is reachable.
	HealthChecker interface {
		Ping(ctx context.Context) error
	}
)
