package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"financas/internal/core"
)

// Store keeps categories and transactions in process memory. IDs are
// assigned sequentially per collection, as a REST backend would.
type Store struct {
	mu      sync.Mutex
	cats    []core.Category
	txs     map[core.Kind][]core.Transaction
	nextCat int64
	nextTx  map[core.Kind]int64
}

func New(cats []core.Category) *Store {
	s := &Store{
		txs:    map[core.Kind][]core.Transaction{},
		nextTx: map[core.Kind]int64{},
	}
	for _, c := range dedupe(cats) {
		s.nextCat++
		c.ID = s.nextCat
		s.cats = append(s.cats, c)
	}
	return s
}

// NewFromFiles seeds the store from <base>/seed_categories.txt. Each line is
// "TYPE;Name" with TYPE REVENUE or EXPENSE; a bare name is an expense.
// Blank lines and lines starting with # are ignored.
func NewFromFiles(base string) *Store {
	cats := readSeed(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = []core.Category{
			{Name: "Salário", Kind: core.Revenue},
			{Name: "Moradia", Kind: core.Expense},
			{Name: "Alimentação", Kind: core.Expense},
			{Name: "Transporte", Kind: core.Expense},
		}
	}
	return New(cats)
}

// Categories returns the category collection view.
func (s *Store) Categories() *Categories { return &Categories{s: s} }

// Transactions returns the revenue or expense collection view.
func (s *Store) Transactions(kind core.Kind) *Transactions {
	return &Transactions{s: s, kind: kind}
}

func (s *Store) Ping(context.Context) error { return nil }

type Categories struct{ s *Store }

// List returns a copy of the categories in insertion order.
func (c *Categories) List(_ context.Context) ([]core.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return append([]core.Category{}, c.s.cats...), nil
}

func (c *Categories) Create(_ context.Context, p core.CreateCategoryPayload) (core.Category, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" || utf8.RuneCountInString(name) > core.MaxCategoryNameLength {
		return core.Category{}, fmt.Errorf("nome de categoria inválido")
	}
	kind, err := core.KindFromCode(p.CategoryType)
	if err != nil {
		return core.Category{}, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.nextCat++
	cat := core.Category{ID: c.s.nextCat, Name: name, Kind: kind}
	c.s.cats = append(c.s.cats, cat)
	return cat, nil
}

type Transactions struct {
	s    *Store
	kind core.Kind
}

func (t *Transactions) List(_ context.Context) ([]core.Transaction, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return append([]core.Transaction{}, t.s.txs[t.kind]...), nil
}

// Create stores the transaction with a snapshot of its category. The
// category must exist and be of the collection's kind.
func (t *Transactions) Create(_ context.Context, p core.CreateTransactionPayload) (core.Transaction, error) {
	if !p.Amount.IsPositive() {
		return core.Transaction{}, fmt.Errorf("valor deve ser positivo")
	}
	if err := p.Date.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var cat *core.Category
	for i := range t.s.cats {
		if t.s.cats[i].ID == p.CategoryID {
			c := t.s.cats[i]
			cat = &c
			break
		}
	}
	if cat == nil {
		return core.Transaction{}, fmt.Errorf("categoria %d não encontrada", p.CategoryID)
	}
	if cat.Kind != t.kind {
		return core.Transaction{}, fmt.Errorf("categoria %q não é do tipo %s", cat.Name, t.kind.Label())
	}

	t.s.nextTx[t.kind]++
	tx := core.Transaction{
		ID:          t.s.nextTx[t.kind],
		Description: strings.TrimSpace(p.Description),
		Amount:      p.Amount,
		Date:        p.Date,
		CategoryID:  cat.ID,
		Category:    cat,
	}
	t.s.txs[t.kind] = append(t.s.txs[t.kind], tx)
	return tx, nil
}

func readSeed(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Category
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		kind := core.Expense
		name := line
		if tag, rest, ok := strings.Cut(line, ";"); ok {
			k, err := core.ParseKind(tag)
			if err != nil {
				continue
			}
			kind, name = k, strings.TrimSpace(rest)
		}
		if name == "" {
			continue
		}
		out = append(out, core.Category{Name: name, Kind: kind})
	}
	return out
}

// dedupe drops repeated (kind, name) pairs, preserving input order.
func dedupe(in []core.Category) []core.Category {
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" || !c.Kind.Valid() {
			continue
		}
		key := c.Kind.String() + "/" + c.Name
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
