package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/middleware/trace"
)

// fakeBackend is an in-memory stand-in for the REST service.
type fakeBackend struct {
	mu         sync.Mutex
	categories []map[string]any
	revenues   []map[string]any
	nextID     int64
	posts      int
	lastHeader http.Header
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastHeader = r.Header.Clone()

	var list *[]map[string]any
	switch r.URL.Path {
	case "/categories":
		list = &f.categories
	case "/revenues":
		list = &f.revenues
	default:
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(*list)
	case http.MethodPost:
		f.posts++
		var in map[string]any
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		f.nextID++
		in["id"] = f.nextID
		if ct, ok := in["categoryType"]; ok {
			in["type"] = ct
			delete(in, "categoryType")
		}
		*list = append(*list, in)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(in)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL + "/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, u := range []string{"localhost:8080", "ftp://x", "://"} {
		if _, err := New(u); err == nil {
			t.Fatalf("%q: expected error", u)
		}
	}
}

func TestCategoryCreateThenListRoundTrip(t *testing.T) {
	backend := &fakeBackend{}
	cats := NewCategories(newTestClient(t, backend))
	ctx := context.Background()

	created, err := cats.Create(ctx, core.CreateCategoryPayload{Name: "Salário", CategoryType: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 1 || created.Name != "Salário" || created.Kind != core.Revenue {
		t.Fatalf("unexpected created category: %+v", created)
	}
	if got := backend.lastHeader.Get("Content-Type"); got != "application/json" {
		t.Fatalf("content type = %q", got)
	}

	list, err := cats.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0] != created {
		t.Fatalf("list does not contain created category: %+v", list)
	}
}

func TestTransactionCreateThenList(t *testing.T) {
	backend := &fakeBackend{}
	revs, err := NewTransactions(newTestClient(t, backend), core.Revenue)
	if err != nil {
		t.Fatalf("NewTransactions: %v", err)
	}
	ctx := context.Background()

	p := core.CreateTransactionPayload{
		Description: "Salário março",
		Amount:      decimal.RequireFromString("5000.25"),
		CategoryID:  1,
		Date:        core.NewDate(2025, 3, 5),
	}
	created, err := revs.Create(ctx, p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 || !created.Amount.Equal(p.Amount) || created.Date.String() != "2025-03-05" {
		t.Fatalf("unexpected created transaction: %+v", created)
	}

	list, err := revs.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID || list[0].Description != "Salário março" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestNewTransactionsRejectsUnknownKind(t *testing.T) {
	if _, err := NewTransactions(nil, core.KindUnknown); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestListPreservesServerOrderAndIsStable(t *testing.T) {
	backend := &fakeBackend{categories: []map[string]any{
		{"id": 9, "name": "Z", "type": "EXPENSE"},
		{"id": 2, "name": "A", "type": 1},
	}}
	cats := NewCategories(newTestClient(t, backend))

	first, err := cats.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	second, err := cats.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 2 || first[0].ID != 9 || first[1].ID != 2 {
		t.Fatalf("order not preserved: %+v", first)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("reads differ at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestNullListDecodesToEmpty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "null")
	}))
	list, err := NewCategories(c).List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", list)
	}
}

func TestRequestFailedCarriesStatusAndBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "boom")
	}))
	_, err := NewCategories(c).Create(context.Background(), core.CreateCategoryPayload{Name: "x", CategoryType: 2})

	var rf *RequestFailedError
	if !errors.As(err, &rf) {
		t.Fatalf("expected RequestFailedError, got %T %v", err, err)
	}
	if rf.Status != 500 || rf.Message != "boom" {
		t.Fatalf("unexpected error fields: %+v", rf)
	}
	if err.Error() != "Erro 500: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestRequestFailedEmptyBodyUsesGenericMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	_, err := NewCategories(c).List(context.Background())
	if err == nil || err.Error() != "Erro 502: "+UnknownErrorMessage {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestMalformedJSONIsDecodeError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1,"name":"x","type":"REVENUE"`)
	}))
	_, err := NewCategories(c).List(context.Background())
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %T %v", err, err)
	}
}

func TestUnknownKindIsDecodeError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1,"name":"x","type":null}]`)
	}))
	_, err := NewCategories(c).List(context.Background())
	var de *DecodeError
	if !errors.As(err, &de) || !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected DecodeError wrapping ErrInvalidKind, got %v", err)
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = NewCategories(c).List(context.Background())
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %T %v", err, err)
	}
	if errors.Unwrap(err) == nil {
		t.Fatal("NetworkError should unwrap to its cause")
	}
}

func TestTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, WithTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = NewCategories(c).List(context.Background())
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %T %v", err, err)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend)
	ctx := context.WithValue(context.Background(), trace.RequestIDKey, "req-abc")
	if _, err := NewCategories(c).List(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := backend.lastHeader.Get(trace.HeaderRequestID); got != "req-abc" {
		t.Fatalf("request id header = %q", got)
	}
}

func TestPingOnlyFailsOnTransport(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	if err := c.Ping(context.Background(), "/categories"); err != nil {
		t.Fatalf("ping should succeed on any HTTP response: %v", err)
	}
	if !strings.HasPrefix(c.BaseURL(), "http://") || strings.HasSuffix(c.BaseURL(), "/") {
		t.Fatalf("unexpected base URL %q", c.BaseURL())
	}
}
