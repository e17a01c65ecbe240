package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/smart-zaiko/internal/model"
	"github.com/iliyamo/smart-zaiko/internal/queue"
	"github.com/iliyamo/smart-zaiko/internal/repository"
)

// memState is the data a memStore transaction works on.
type memState struct {
	products  map[string]*model.Product
	seq       map[string]int64
	sales     []model.Sale
	movements []model.InventoryMovement
}

// copyProduct deep-copies p so callers cannot alias stored stock.
func copyProduct(p *model.Product) *model.Product {
	cp := *p
	cp.Variants = make([]model.Variant, len(p.Variants))
	for i, v := range p.Variants {
		if v.Inventory != nil {
			n := *v.Inventory
			v.Inventory = &n
		}
		cp.Variants[i] = v
	}
	return &cp
}

func (s *memState) clone() *memState {
	out := &memState{
		products:  make(map[string]*model.Product, len(s.products)),
		seq:       make(map[string]int64, len(s.seq)),
		sales:     append([]model.Sale(nil), s.sales...),
		movements: append([]model.InventoryMovement(nil), s.movements...),
	}
	for id, p := range s.products {
		out.products[id] = copyProduct(p)
	}
	for k, v := range s.seq {
		out.seq[k] = v
	}
	return out
}

// memStore is an in-memory StockStore, SaleStore and InventoryStore.  A
// transaction works on a copy that replaces the state only on success.
type memStore struct {
	mu    sync.Mutex
	state *memState
	// failInsert makes InsertSale fail after n successful inserts.
	failInsert int
}

func newMemStore(products ...*model.Product) *memStore {
	st := &memState{products: map[string]*model.Product{}, seq: map[string]int64{}}
	for _, p := range products {
		st.products[p.ID] = p
	}
	return &memStore{state: st, failInsert: -1}
}

func (m *memStore) InTx(ctx context.Context, fn func(repository.StockTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(&memTx{st: work, store: m}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) product(id string) *model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.state.products[id]; ok {
		return copyProduct(p)
	}
	return nil
}

func (m *memStore) inventory(productID string, idx int) *int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.products[productID].Variants[idx].Inventory
}

func (m *memStore) ListByUser(ctx context.Context, userID string) ([]model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Sale
	for _, s := range m.state.sales {
		if s.UserID == userID {
			if p, ok := m.state.products[s.ProductID]; ok {
				s.Image = p.Image
			}
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SaleID > out[j].SaleID })
	return out, nil
}

func (m *memStore) GetByID(ctx context.Context, userID, id string) (*model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.state.sales {
		if s.ID == id && s.UserID == userID {
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.state.sales {
		if s.ID == id && s.UserID == userID {
			m.state.sales = append(m.state.sales[:i], m.state.sales[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) ListInventory(ctx context.Context, userID string) ([]model.InventoryRow, error) {
	return nil, nil
}

func (m *memStore) ListMovements(ctx context.Context, userID, productID string) ([]model.InventoryMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.state.products[productID]; !ok || p.UserID != userID {
		return nil, repository.ErrNotFound
	}
	var out []model.InventoryMovement
	for _, mv := range m.state.movements {
		if mv.UserID == userID && mv.ProductID == productID {
			out = append(out, mv)
		}
	}
	return out, nil
}

type memTx struct {
	st    *memState
	store *memStore
}

func (t *memTx) LockProduct(ctx context.Context, userID, productID string) (*model.Product, error) {
	p, ok := t.st.products[productID]
	if !ok || p.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return copyProduct(p), nil
}

// storeProduct enforces per-user unique names and fills missing variant ids.
func (t *memTx) storeProduct(p *model.Product) error {
	for _, o := range t.st.products {
		if o.UserID == p.UserID && o.Name == p.Name && o.ID != p.ID {
			return repository.ErrDuplicate
		}
	}
	for i := range p.Variants {
		if p.Variants[i].ID == "" {
			p.Variants[i].ID = uuid.NewString()
		}
		p.Variants[i].ProductID, p.Variants[i].Position = p.ID, i
	}
	t.st.products[p.ID] = copyProduct(p)
	return nil
}

func (t *memTx) InsertProduct(ctx context.Context, p *model.Product) error {
	return t.storeProduct(p)
}

func (t *memTx) ReplaceProduct(ctx context.Context, p *model.Product) error {
	if o, ok := t.st.products[p.ID]; !ok || o.UserID != p.UserID {
		return repository.ErrNotFound
	}
	return t.storeProduct(p)
}

func (t *memTx) ReserveSaleIDs(ctx context.Context, userID string, n int) (int64, error) {
	first := t.st.seq[userID] + 1
	t.st.seq[userID] += int64(n)
	return first, nil
}

func (t *memTx) InsertSale(ctx context.Context, s *model.Sale) error {
	if t.store.failInsert == 0 {
		return errors.New("insert failed")
	}
	if t.store.failInsert > 0 {
		t.store.failInsert--
	}
	t.st.sales = append(t.st.sales, *s)
	return nil
}

func (t *memTx) variant(id string) *model.Variant {
	for _, p := range t.st.products {
		for i := range p.Variants {
			if p.Variants[i].ID == id {
				return &p.Variants[i]
			}
		}
	}
	return nil
}

func (t *memTx) AdjustInventory(ctx context.Context, variantID string, delta int) error {
	v := t.variant(variantID)
	if v == nil || v.Inventory == nil || *v.Inventory+delta < 0 {
		return repository.ErrStockConflict
	}
	*v.Inventory += delta
	return nil
}

func (t *memTx) SetInventory(ctx context.Context, variantID string, qty int) error {
	v := t.variant(variantID)
	if v == nil {
		return repository.ErrNotFound
	}
	v.Inventory = &qty
	return nil
}

func (t *memTx) InsertMovement(ctx context.Context, mv *model.InventoryMovement) error {
	t.st.movements = append(t.st.movements, *mv)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.SaleEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev queue.SaleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func intPtr(n int) *int { return &n }

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }
