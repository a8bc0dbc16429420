package garden

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Migrate(ctx context.Context) error
	DB() *bun.DB
	Users() Users
	Catalog() Catalog
	Gardens() Gardens
}

type mngr struct {
	db      *bun.DB
	users   Users
	catalog Catalog
	gardens Gardens
}

// NewRepositoryManager wires every repository on top of db
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	db.RegisterModel((*User)(nil), (*Plant)(nil), (*Tour)(nil), (*GardenPlant)(nil))
	return &mngr{
		db:      db,
		users:   NewUsersRepository(db),
		catalog: NewCatalogRepository(db),
		gardens: NewGardensRepository(db),
	}
}

// OpenDB opens a sqlite database through sqliteshim. debug enables the
// bundebug query hook, BUNDEBUG in the environment overrides it.
func OpenDB(dsn string, debug bool) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "open database")
	}
	// sqlite in-memory databases live per connection
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(debug),
		bundebug.WithVerbose(debug),
		bundebug.FromEnv("BUNDEBUG"),
	))
	return db, nil
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized", errors.CategoryInternal)
	}
	if m.catalog == nil {
		return errors.New("repository catalog should be initialized", errors.CategoryInternal)
	}
	if m.gardens == nil {
		return errors.New("repository gardens should be initialized", errors.CategoryInternal)
	}
	return nil
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Migrate creates the tables and indexes if missing
func (m mngr) Migrate(ctx context.Context) error {
	models := []any{
		(*User)(nil),
		(*Plant)(nil),
		(*Tour)(nil),
		(*GardenPlant)(nil),
	}
	for _, model := range models {
		if _, err := m.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, fmt.Sprintf("create table for %T", model))
		}
	}

	_, err := m.db.NewCreateIndex().
		Model((*GardenPlant)(nil)).
		Index("garden_plants_user_plant_idx").
		Column("user_id", "plant_id").
		Unique().
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "create garden index")
	}
	return nil
}

func (m mngr) DB() *bun.DB {
	return m.db
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Catalog() Catalog {
	return m.catalog
}

func (m mngr) Gardens() Gardens {
	return m.gardens
}
