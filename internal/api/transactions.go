package api

import (
	"context"
	"fmt"
	"net/http"

	"financas/internal/core"
)

// Transactions is the /revenues or /expenses resource, depending on kind.
type Transactions struct {
	client *Client
	kind   core.Kind
	path   string
}

// PathFor returns the collection path for a transaction kind.
func PathFor(kind core.Kind) (string, error) {
	switch kind {
	case core.Revenue:
		return "/revenues", nil
	case core.Expense:
		return "/expenses", nil
	}
	return "", fmt.Errorf("%w: %d", core.ErrInvalidKind, int(kind))
}

func NewTransactions(c *Client, kind core.Kind) (*Transactions, error) {
	path, err := PathFor(kind)
	if err != nil {
		return nil, err
	}
	return &Transactions{client: c, kind: kind, path: path}, nil
}

func (r *Transactions) Kind() core.Kind { return r.kind }

// List returns the transactions of this kind in server order.
func (r *Transactions) List(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	if err := r.client.Do(ctx, http.MethodGet, r.path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}

// Create posts a new transaction and returns it with its server-assigned id.
func (r *Transactions) Create(ctx context.Context, p core.CreateTransactionPayload) (core.Transaction, error) {
	var out core.Transaction
	if err := r.client.Do(ctx, http.MethodPost, r.path, p, &out); err != nil {
		return core.Transaction{}, err
	}
	return out, nil
}
