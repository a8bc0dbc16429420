package garden

import (
	"context"
	"embed"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dbfixture"
)

//go:embed data/fixtures/*.yml
var fixturesFS embed.FS

// CatalogFixture is the embedded plants and tours seed file
const CatalogFixture = "data/fixtures/catalog.yml"

// SeedCatalog replaces plants and tours with the embedded fixtures. Tables
// must exist, see RepositoryManager.Migrate.
func SeedCatalog(ctx context.Context, db *bun.DB) error {
	db.RegisterModel((*Plant)(nil), (*Tour)(nil))

	fixture := dbfixture.New(db, dbfixture.WithTruncateTables())
	if err := fixture.Load(ctx, fixturesFS, CatalogFixture); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "load catalog fixtures")
	}
	return nil
}
