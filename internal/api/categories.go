package api

import (
	"context"
	"net/http"

	"financas/internal/core"
)

const categoriesPath = "/categories"

// Categories is the /categories resource.
type Categories struct {
	client *Client
}

func NewCategories(c *Client) *Categories {
	return &Categories{client: c}
}

// List returns every category in server order.
func (r *Categories) List(ctx context.Context) ([]core.Category, error) {
	var out []core.Category
	if err := r.client.Do(ctx, http.MethodGet, categoriesPath, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Category{}
	}
	return out, nil
}

// Create posts a new category and returns it with its server-assigned id.
func (r *Categories) Create(ctx context.Context, p core.CreateCategoryPayload) (core.Category, error) {
	var out core.Category
	if err := r.client.Do(ctx, http.MethodPost, categoriesPath, p, &out); err != nil {
		return core.Category{}, err
	}
	return out, nil
}
