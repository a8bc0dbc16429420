package garden

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Gardens keeps the plants each user tracks
type Gardens interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]GardenPlant, error)
	Add(ctx context.Context, userID uuid.UUID, plantID int64, nickname string) (*GardenPlant, error)
	Remove(ctx context.Context, userID, entryID uuid.UUID) error
}

type gardens struct {
	db  *bun.DB
	now func() time.Time
}

var _ Gardens = (*gardens)(nil)

// NewGardensRepository returns a bun backed Gardens store
func NewGardensRepository(db *bun.DB) Gardens {
	return &gardens{db: db, now: time.Now}
}

func (g *gardens) ListForUser(ctx context.Context, userID uuid.UUID) ([]GardenPlant, error) {
	entries := make([]GardenPlant, 0)
	err := g.db.NewSelect().
		Model(&entries).
		Relation("Plant").
		Where("gp.user_id = ?", userID).
		Order("gp.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Add puts plantID in the user's garden. A plant can be added once.
func (g *gardens) Add(ctx context.Context, userID uuid.UUID, plantID int64, nickname string) (*GardenPlant, error) {
	var entry *GardenPlant

	err := g.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*Plant)(nil)).Where("id = ?", plantID).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return ErrPlantNotFound
		}

		dup, err := tx.NewSelect().
			Model((*GardenPlant)(nil)).
			Where("user_id = ?", userID).
			Where("plant_id = ?", plantID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if dup {
			return ErrAlreadyInGarden
		}

		now := g.now()
		entry = &GardenPlant{
			ID:        uuid.New(),
			UserID:    userID,
			PlantID:   plantID,
			Nickname:  strings.TrimSpace(nickname),
			CreatedAt: &now,
		}
		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return wrapSentinel(ErrAlreadyInGarden, err, nil)
			}
			return errors.Wrap(err, errors.CategoryInternal, "insert garden plant")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Remove deletes an entry owned by userID
func (g *gardens) Remove(ctx context.Context, userID, entryID uuid.UUID) error {
	res, err := g.db.NewDelete().
		Model((*GardenPlant)(nil)).
		Where("id = ?", entryID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrGardenNotFound
	}
	return nil
}
