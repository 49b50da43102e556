package repositorycache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-book-catalog/cache"
	"github.com/goliatone/go-book-catalog/store"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// widget is a minimal entity for decorator tests.
type widget struct {
	ID   int64
	Name string
}

func (w *widget) EntityID() int64 { return w.ID }

type shelfLabel struct{ ID int64 }

func (s shelfLabel) EntityID() int64 { return s.ID }

type nameFilterAdapter struct{ Name *string }

func (f nameFilterAdapter) Criteria() []repository.SelectCriteria {
	if f.Name == nil {
		return nil
	}
	name := *f.Name
	return []repository.SelectCriteria{func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("name = ?", name)
	}}
}

// mockRepository is an in-memory store.Repository that records the calls it receives.
type mockRepository struct {
	mu     sync.Mutex
	calls  []string
	rows   map[int64]*widget
	nextID int64
	err    error
}

func newMockRepository(rows ...*widget) *mockRepository {
	m := &mockRepository{rows: map[int64]*widget{}, nextID: 1}
	for _, r := range rows {
		m.rows[r.ID] = r
		if r.ID >= m.nextID {
			m.nextID = r.ID + 1
		}
	}
	return m
}

func (m *mockRepository) recordCall(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
}

func (m *mockRepository) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockRepository) clearCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *mockRepository) GetByID(ctx context.Context, id int64) (*widget, error) {
	m.recordCall("GetByID")
	if m.err != nil {
		return nil, m.err
	}
	w, ok := m.rows[id]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	out := *w
	return &out, nil
}

func (m *mockRepository) List(ctx context.Context, q store.Query) ([]*widget, error) {
	m.recordCall("List")
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*widget, 0, len(m.rows))
	for id := int64(1); id < m.nextID; id++ {
		if w, ok := m.rows[id]; ok {
			c := *w
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *mockRepository) Count(ctx context.Context, f store.Filter) (int, error) {
	m.recordCall("Count")
	if m.err != nil {
		return 0, m.err
	}
	return len(m.rows), nil
}

func (m *mockRepository) Create(ctx context.Context, w *widget) (*widget, error) {
	m.recordCall("Create")
	if m.err != nil {
		return nil, m.err
	}
	w.ID = m.nextID
	m.nextID++
	c := *w
	m.rows[w.ID] = &c
	return w, nil
}

func (m *mockRepository) Update(ctx context.Context, w *widget) (*widget, error) {
	m.recordCall("Update")
	if m.err != nil {
		return nil, m.err
	}
	c := *w
	m.rows[w.ID] = &c
	return w, nil
}

func (m *mockRepository) Delete(ctx context.Context, w *widget) error {
	m.recordCall("Delete")
	if m.err != nil {
		return m.err
	}
	delete(m.rows, w.ID)
	return nil
}

// mockCacheService stores fetched values in a map and can be told to fail.
type mockCacheService struct {
	mu              sync.Mutex
	calls           []string
	storage         map[string]any
	getErr          error
	invalidateErr   error
	invalidatedKeys []string
}

func newMockCacheService() *mockCacheService {
	return &mockCacheService{storage: make(map[string]any)}
}

func (m *mockCacheService) recordCall(method string) {
	m.calls = append(m.calls, method)
}

func (m *mockCacheService) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockCacheService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("GetOrFetch:" + key)

	if m.getErr != nil {
		return nil, m.getErr
	}
	if value, exists := m.storage[key]; exists {
		return value, nil
	}

	result := reflect.ValueOf(fetchFn).Call([]reflect.Value{reflect.ValueOf(ctx)})
	if !result[1].IsNil() {
		return nil, result[1].Interface().(error)
	}
	value := result[0].Interface()
	m.storage[key] = value
	return value, nil
}

func (m *mockCacheService) Delete(ctx context.Context, key string) error {
	return m.InvalidateKeys(ctx, []string{key})
}

func (m *mockCacheService) DeleteByPrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("DeleteByPrefix:" + prefix)
	for key := range m.storage {
		if strings.HasPrefix(key, prefix) {
			delete(m.storage, key)
		}
	}
	return nil
}

func (m *mockCacheService) InvalidateKeys(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall(fmt.Sprintf("InvalidateKeys:%d", len(keys)))
	if m.invalidateErr != nil {
		return m.invalidateErr
	}
	for _, key := range keys {
		delete(m.storage, key)
		m.invalidatedKeys = append(m.invalidatedKeys, key)
	}
	return nil
}

func (m *mockCacheService) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.storage[key]
	return ok
}

func countCalls(calls []string, method string) int {
	n := 0
	for _, c := range calls {
		if c == method {
			n++
		}
	}
	return n
}

func newTestRepo(rows ...*widget) (*CachedRepository[*widget], *mockRepository, *mockCacheService) {
	base := newMockRepository(rows...)
	svc := newMockCacheService()
	return New[*widget](base, svc, cache.NewDefaultKeySerializer()), base, svc
}

func TestNew_Namespace(t *testing.T) {
	cached, _, _ := newTestRepo()
	if cached.Namespace() != "widget" {
		t.Errorf("expected namespace widget, got %q", cached.Namespace())
	}

	labels := New[shelfLabel](nil, newMockCacheService(), cache.NewDefaultKeySerializer())
	if labels.Namespace() != "shelf_label" {
		t.Errorf("expected namespace shelf_label, got %q", labels.Namespace())
	}

	custom := New[*widget](nil, newMockCacheService(), cache.NewDefaultKeySerializer(), WithNamespace("gadgets"))
	if custom.Namespace() != "gadgets" {
		t.Errorf("expected namespace gadgets, got %q", custom.Namespace())
	}
}

func TestCachedReads_HitAfterMiss(t *testing.T) {
	cached, base, _ := newTestRepo(&widget{ID: 1, Name: "one"}, &widget{ID: 2, Name: "two"})
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		read   func() error
	}{
		{name: "GetByID", method: "GetByID", read: func() error {
			w, err := cached.GetByID(ctx, 1)
			if err == nil && w.Name != "one" {
				return fmt.Errorf("unexpected widget %+v", w)
			}
			return err
		}},
		{name: "List", method: "List", read: func() error {
			ws, err := cached.List(ctx, store.Query{Limit: 10})
			if err == nil && len(ws) != 2 {
				return fmt.Errorf("expected 2 widgets, got %d", len(ws))
			}
			return err
		}},
		{name: "Count", method: "Count", read: func() error {
			n, err := cached.Count(ctx, nil)
			if err == nil && n != 2 {
				return fmt.Errorf("expected 2, got %d", n)
			}
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base.clearCalls()
			for i := 0; i < 3; i++ {
				if err := tt.read(); err != nil {
					t.Fatalf("read %d: %v", i, err)
				}
			}
			if got := countCalls(base.getCalls(), tt.method); got != 1 {
				t.Errorf("expected 1 storage call, got %d", got)
			}
		})
	}
}

func TestCachedReads_KeyIncludesQueryShape(t *testing.T) {
	cached, base, svc := newTestRepo(&widget{ID: 1})
	ctx := context.Background()
	a, b := "a", "b"

	queries := []store.Query{
		{Limit: 10},
		{Limit: 10, Offset: 10},
		{Limit: 10, Filter: nameFilterAdapter{Name: &a}},
		{Limit: 10, Filter: nameFilterAdapter{Name: &b}},
	}
	for _, q := range queries {
		if _, err := cached.List(ctx, q); err != nil {
			t.Fatalf("list failed: %v", err)
		}
	}

	if got := countCalls(base.getCalls(), "List"); got != len(queries) {
		t.Errorf("expected %d storage calls for distinct shapes, got %d", len(queries), got)
	}
	for _, call := range svc.getCalls() {
		if strings.HasPrefix(call, "GetOrFetch:") && !strings.HasPrefix(call, "GetOrFetch:widget::List::") {
			t.Errorf("unexpected key %q", call)
		}
	}
}

// pairFilter has two string fields, so a separator inside one value could
// otherwise spill into the next.
type pairFilter struct {
	Title *string
	ISBN  *string
}

func (pairFilter) Criteria() []repository.SelectCriteria { return nil }

func TestCachedReads_SeparatorsInFilterValuesGetTheirOwnKeys(t *testing.T) {
	ctx := context.Background()
	str := func(s string) *string { return &s }

	serializers := map[string]cache.KeySerializer{
		"default": cache.NewDefaultKeySerializer(),
		"hashed":  cache.NewHashedKeySerializer(),
	}
	for name, keys := range serializers {
		t.Run(name, func(t *testing.T) {
			base := newMockRepository(&widget{ID: 1})
			cached := New[*widget](base, newMockCacheService(), keys)

			queries := []store.Query{
				{Limit: 10, Filter: pairFilter{Title: str("a,ISBN:b")}},
				{Limit: 10, Filter: pairFilter{Title: str("a"), ISBN: str("b,ISBN:nil")}},
				{Limit: 10, Filter: pairFilter{Title: str("a},ISBN:nil")}},
				{Limit: 10, Filter: pairFilter{Title: str("a")}},
			}
			for _, q := range queries {
				if _, err := cached.List(ctx, q); err != nil {
					t.Fatalf("list failed: %v", err)
				}
			}

			if got := countCalls(base.getCalls(), "List"); got != len(queries) {
				t.Errorf("expected %d storage calls, got %d: filters shared a cache entry", len(queries), got)
			}
		})
	}
}

func TestCachedReads_ErrorsPropagateAndAreNotCached(t *testing.T) {
	cached, base, svc := newTestRepo()
	ctx := context.Background()

	_, err := cached.GetByID(ctx, 9)
	if !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if cache.IsUnavailable(err) {
		t.Error("storage error must not be classified as cache unavailability")
	}
	if svc.has(cached.key("GetByID", int64(9))) {
		t.Error("error result was cached")
	}

	_, _ = cached.GetByID(ctx, 9)
	if got := countCalls(base.getCalls(), "GetByID"); got != 2 {
		t.Errorf("expected storage to be asked twice, got %d", got)
	}
}

func TestCachedReads_FallbackWhenCacheUnavailable(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	base := newMockRepository(&widget{ID: 1, Name: "one"})
	svc := newMockCacheService()
	svc.getErr = errors.New("dial tcp: connection refused")
	cached := New[*widget](base, svc, cache.NewDefaultKeySerializer(), WithMeter(mp.Meter("test")))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		w, err := cached.GetByID(ctx, 1)
		if err != nil {
			t.Fatalf("read %d: expected fallback, got %v", i, err)
		}
		if w.Name != "one" {
			t.Errorf("unexpected widget %+v", w)
		}
	}
	if _, err := cached.Count(ctx, nil); err != nil {
		t.Fatalf("count: expected fallback, got %v", err)
	}

	if got := countCalls(base.getCalls(), "GetByID"); got != 3 {
		t.Errorf("expected storage on every read, got %d calls", got)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "repositorycache.fallbacks" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 4 {
		t.Errorf("expected 4 fallbacks recorded, got %d", total)
	}
}

func TestCachedReads_FallbackOnInvalidResultType(t *testing.T) {
	cached, base, svc := newTestRepo(&widget{ID: 1, Name: "one"})
	svc.storage[cached.key("GetByID", int64(1))] = "not a widget"

	w, err := cached.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected fallback, got %v", err)
	}
	if w.Name != "one" || countCalls(base.getCalls(), "GetByID") != 1 {
		t.Errorf("expected storage read, got %+v", w)
	}
}

func TestCachedReads_Bypass(t *testing.T) {
	cached, base, svc := newTestRepo(&widget{ID: 1})
	ctx := WithoutCache(context.Background())

	for i := 0; i < 2; i++ {
		if _, err := cached.GetByID(ctx, 1); err != nil {
			t.Fatalf("read failed: %v", err)
		}
	}
	if got := countCalls(base.getCalls(), "GetByID"); got != 2 {
		t.Errorf("expected 2 storage calls, got %d", got)
	}
	if len(svc.getCalls()) != 0 {
		t.Errorf("cache should not be touched, got %v", svc.getCalls())
	}
}

func TestWrites_Invalidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		write       func(c *CachedRepository[*widget]) error
		wantDropped []string
		wantKept    []string
	}{
		{
			name: "create drops listings only",
			write: func(c *CachedRepository[*widget]) error {
				_, err := c.Create(ctx, &widget{Name: "new"})
				return err
			},
			wantDropped: []string{"List", "Count"},
			wantKept:    []string{"GetByID:1", "GetByID:2"},
		},
		{
			name: "update drops its record and listings",
			write: func(c *CachedRepository[*widget]) error {
				_, err := c.Update(ctx, &widget{ID: 1, Name: "changed"})
				return err
			},
			wantDropped: []string{"List", "Count", "GetByID:1"},
			wantKept:    []string{"GetByID:2"},
		},
		{
			name: "delete drops its record and listings",
			write: func(c *CachedRepository[*widget]) error {
				return c.Delete(ctx, &widget{ID: 2})
			},
			wantDropped: []string{"List", "Count", "GetByID:2"},
			wantKept:    []string{"GetByID:1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cached, _, svc := newTestRepo(&widget{ID: 1, Name: "one"}, &widget{ID: 2, Name: "two"})

			keys := map[string]string{
				"List":      cached.key("List", store.Query{Limit: 25}),
				"Count":     cached.key("Count", nil),
				"GetByID:1": cached.key("GetByID", int64(1)),
				"GetByID:2": cached.key("GetByID", int64(2)),
			}
			_, _ = cached.List(ctx, store.Query{Limit: 25})
			_, _ = cached.Count(ctx, nil)
			_, _ = cached.GetByID(ctx, 1)
			_, _ = cached.GetByID(ctx, 2)

			if err := tt.write(cached); err != nil {
				t.Fatalf("write failed: %v", err)
			}

			for _, name := range tt.wantDropped {
				if svc.has(keys[name]) {
					t.Errorf("%s should have been invalidated", name)
				}
			}
			for _, name := range tt.wantKept {
				if !svc.has(keys[name]) {
					t.Errorf("%s should still be cached", name)
				}
			}
		})
	}
}

func TestWrites_ReadAfterWrite(t *testing.T) {
	cached, _, _ := newTestRepo(&widget{ID: 1, Name: "before"})
	ctx := context.Background()

	if _, err := cached.GetByID(ctx, 1); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if _, err := cached.Update(ctx, &widget{ID: 1, Name: "after"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	w, err := cached.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if w.Name != "after" {
		t.Errorf("stale read after update: %q", w.Name)
	}
}

func TestWrites_FailedWriteKeepsCache(t *testing.T) {
	cached, base, svc := newTestRepo(&widget{ID: 1})
	ctx := context.Background()
	_, _ = cached.List(ctx, store.Query{})

	base.err = errors.New("constraint failed")
	if _, err := cached.Create(ctx, &widget{}); err == nil {
		t.Fatal("expected write error")
	}
	if !svc.has(cached.key("List", store.Query{})) {
		t.Error("failed write must not invalidate")
	}
}

func TestWrites_InvalidationErrorIsNotReturned(t *testing.T) {
	cached, _, svc := newTestRepo(&widget{ID: 1})
	ctx := context.Background()
	_, _ = cached.GetByID(ctx, 1)

	svc.invalidateErr = errors.New("redis: i/o timeout")
	if _, err := cached.Update(ctx, &widget{ID: 1, Name: "x"}); err != nil {
		t.Fatalf("invalidation failure leaked into write: %v", err)
	}
	if _, ok := cached.keyRegistry.Load(cached.key("GetByID", int64(1))); !ok {
		t.Error("key should stay tracked for a later retry")
	}

	svc.invalidateErr = nil
	if _, err := cached.Update(ctx, &widget{ID: 1, Name: "y"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if svc.has(cached.key("GetByID", int64(1))) {
		t.Error("retry should have removed the key")
	}
}

func TestInvalidate_PrefixBoundary(t *testing.T) {
	cached, _, svc := newTestRepo()
	ctx := context.Background()

	listKey := cached.key("List", store.Query{})
	lookalike := cached.namespace + cache.KeySeparator + "Listing"
	cached.trackKey(listKey)
	cached.trackKey(lookalike)

	cached.invalidateAfterCreate(ctx)

	for _, k := range svc.invalidatedKeys {
		if k == lookalike {
			t.Errorf("%q must not match the List prefix", lookalike)
		}
	}
	if _, ok := cached.keyRegistry.Load(lookalike); !ok {
		t.Error("lookalike key should remain tracked")
	}
}

func TestPurge(t *testing.T) {
	cached, _, svc := newTestRepo(&widget{ID: 1})
	ctx := context.Background()
	_, _ = cached.GetByID(ctx, 1)
	svc.storage["other::GetByID::1"] = "x"

	if err := cached.Purge(ctx); err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if svc.has(cached.key("GetByID", int64(1))) {
		t.Error("namespace key survived purge")
	}
	if !svc.has("other::GetByID::1") {
		t.Error("purge removed another namespace")
	}
	if cached.keyRegistry.Size() != 0 {
		t.Error("registry should be empty after purge")
	}
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	cached, _, _ := newTestRepo(&widget{ID: 1})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = cached.List(ctx, store.Query{Limit: j})
				cached.invalidateAfterCreate(ctx)
			}
		}(i)
	}
	wg.Wait()
}
