package garden

import (
	"context"
	"strings"

	"github.com/uptrace/bun"
)

// Catalog gives read access to plants and tours
type Catalog interface {
	ListPlants(ctx context.Context, limit int) ([]Plant, error)
	SearchPlants(ctx context.Context, query string) ([]Plant, error)
	GetPlant(ctx context.Context, id int64) (*Plant, error)
	ListTours(ctx context.Context, limit int) ([]Tour, error)
	GetTour(ctx context.Context, id int64) (*Tour, error)
}

type catalog struct {
	db *bun.DB
}

var _ Catalog = (*catalog)(nil)

// NewCatalogRepository returns a bun backed Catalog
func NewCatalogRepository(db *bun.DB) Catalog {
	return &catalog{db: db}
}

// ListPlants returns plants ordered by name, limit <= 0 means all
func (c *catalog) ListPlants(ctx context.Context, limit int) ([]Plant, error) {
	plants := make([]Plant, 0)
	q := c.db.NewSelect().Model(&plants).Order("common_name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return plants, nil
}

// SearchPlants matches query against common name, scientific name and family
func (c *catalog) SearchPlants(ctx context.Context, query string) ([]Plant, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return c.ListPlants(ctx, 0)
	}

	like := "%" + query + "%"
	plants := make([]Plant, 0)
	err := c.db.NewSelect().
		Model(&plants).
		Where("LOWER(common_name) LIKE ?", like).
		WhereOr("LOWER(scientific_name) LIKE ?", like).
		WhereOr("LOWER(family) LIKE ?", like).
		Order("common_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return plants, nil
}

func (c *catalog) GetPlant(ctx context.Context, id int64) (*Plant, error) {
	plant := new(Plant)
	if err := c.db.NewSelect().Model(plant).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, ErrPlantNotFound)
	}
	return plant, nil
}

func (c *catalog) ListTours(ctx context.Context, limit int) ([]Tour, error) {
	tours := make([]Tour, 0)
	q := c.db.NewSelect().Model(&tours).Order("title ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return tours, nil
}

func (c *catalog) GetTour(ctx context.Context, id int64) (*Tour, error) {
	tour := new(Tour)
	if err := c.db.NewSelect().Model(tour).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, ErrTourNotFound)
	}
	return tour, nil
}
