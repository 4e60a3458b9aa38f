package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
)

type memRepo struct {
	products map[int64]Product
	nextID   int64
}

func newMemRepo(products ...Product) *memRepo {
	m := &memRepo{products: make(map[int64]Product), nextID: 1}
	for _, p := range products {
		m.products[p.ID] = p
		if p.ID >= m.nextID {
			m.nextID = p.ID + 1
		}
	}
	return m
}

func (m *memRepo) List(ctx context.Context, filters ListFilters, lowStock int) ([]Product, int, error) {
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memRepo) SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	for _, p := range m.products {
		if p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) Create(ctx context.Context, p Product) (Product, error) {
	for _, existing := range m.products {
		if existing.Slug == p.Slug || existing.SKU == p.SKU {
			return Product{}, ErrDuplicateSlug
		}
	}
	p.ID = m.nextID
	m.nextID++
	m.products[p.ID] = p
	return p, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, p Product) error {
	if _, ok := m.products[id]; !ok {
		return shared.ErrNotFound
	}
	p.ID = id
	m.products[id] = p
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memRepo) BulkSetStock(ctx context.Context, ids []int64, level int) (int64, error) {
	var n int64
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			p.Stock = level
			m.products[id] = p
			n++
		}
	}
	return n, nil
}

func (m *memRepo) BulkAddStock(ctx context.Context, ids []int64, delta int) (int64, error) {
	var n int64
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			p.Stock += delta
			if p.Stock < 0 {
				p.Stock = 0
			}
			m.products[id] = p
			n++
		}
	}
	return n, nil
}

func (m *memRepo) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := m.products[id]; ok {
			delete(m.products, id)
			n++
		}
	}
	return n, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, nil, ServiceConfig{LowStockThreshold: 5})
}

func TestStockStatusDerivation(t *testing.T) {
	repo := newMemRepo(
		Product{ID: 1, Name: "A5 dotted notebook", Stock: 40},
		Product{ID: 2, Name: "Brush pen set", Stock: 3},
		Product{ID: 3, Name: "Wax seal kit", Stock: 0},
	)
	svc := newTestService(repo)

	for id, want := range map[int64]string{
		1: StockStatusIn,
		2: StockStatusLow,
		3: StockStatusOut,
	} {
		p, err := svc.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, p.StockStatus, "product %d", id)
	}
}

func TestCreateRejectsDuplicateSlug(t *testing.T) {
	repo := newMemRepo(Product{ID: 1, SKU: "NB-001", Slug: "a5-dotted-notebook"})
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), 1, Product{SKU: "NB-002", Slug: "a5-dotted-notebook"})
	require.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestSlugAvailableExcludesSelf(t *testing.T) {
	repo := newMemRepo(Product{ID: 1, Slug: "a5-dotted-notebook"})
	svc := newTestService(repo)

	available, err := svc.SlugAvailable(context.Background(), "a5-dotted-notebook", 0)
	require.NoError(t, err)
	assert.False(t, available)

	// Editing product 1 may keep its own slug.
	available, err = svc.SlugAvailable(context.Background(), "a5-dotted-notebook", 1)
	require.NoError(t, err)
	assert.True(t, available)
}

func TestBulkRestockSetsLevel(t *testing.T) {
	repo := newMemRepo(
		Product{ID: 1, Stock: 0},
		Product{ID: 2, Stock: 2},
	)
	svc := newTestService(repo)

	n, err := svc.BulkRestock(context.Background(), 1, []int64{1, 2, 99}, 25)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "missing ids are skipped, not errors")

	for _, id := range []int64{1, 2} {
		p, err := repo.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, 25, p.Stock)
	}
}

func TestBulkRestockValidation(t *testing.T) {
	svc := newTestService(newMemRepo())

	_, err := svc.BulkRestock(context.Background(), 1, nil, 10)
	require.Error(t, err)

	_, err = svc.BulkRestock(context.Background(), 1, []int64{1}, -1)
	require.Error(t, err)
}

func TestBulkAddStockClampsAtZero(t *testing.T) {
	repo := newMemRepo(Product{ID: 1, Stock: 3})
	svc := newTestService(repo)

	_, err := svc.BulkAddStock(context.Background(), 1, []int64{1}, -10)
	require.NoError(t, err)

	p, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestProductFormToProduct(t *testing.T) {
	form := ProductForm{
		Name:  "  Brush pen set  ",
		SKU:   " PEN-010 ",
		Slug:  "brush-pen-set",
		Tags:  "pens, calligraphy, , gifting",
		Stock: 12,
	}
	p := form.ToProduct()
	assert.Equal(t, "Brush pen set", p.Name)
	assert.Equal(t, "PEN-010", p.SKU)
	assert.Equal(t, []string{"pens", "calligraphy", "gifting"}, p.Tags)
}
