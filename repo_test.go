package garden_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-garden"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plantNames(plants []garden.Plant) []string {
	out := make([]string, 0, len(plants))
	for _, p := range plants {
		out = append(out, p.CommonName)
	}
	return out
}

func TestCatalog_Plants(t *testing.T) {
	ctx := context.Background()
	catalog := newTestRepo(t).Catalog()

	all, err := catalog.ListPlants(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Aloe Vera", "Bird of Paradise", "Boston Fern", "English Lavender",
		"Fiddle Leaf Fig", "Prayer Plant", "Swiss Cheese Plant",
	}, plantNames(all))

	some, err := catalog.ListPlants(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, some, 3)

	found, err := catalog.SearchPlants(ctx, " FERN ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Boston Fern"}, plantNames(found))

	byFamily, err := catalog.SearchPlants(ctx, "aceae")
	require.NoError(t, err)
	assert.Len(t, byFamily, len(all))

	none, err := catalog.SearchPlants(ctx, "cactus-that-does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, none)

	empty, err := catalog.SearchPlants(ctx, "")
	require.NoError(t, err)
	assert.Len(t, empty, len(all))

	plant, err := catalog.GetPlant(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "strelitzia-reginae", plant.Slug)

	_, err = catalog.GetPlant(ctx, 9999)
	assert.ErrorIs(t, err, garden.ErrPlantNotFound)
}

func TestCatalog_Tours(t *testing.T) {
	ctx := context.Background()
	catalog := newTestRepo(t).Catalog()

	tours, err := catalog.ListTours(ctx, 0)
	require.NoError(t, err)
	require.Len(t, tours, 3)
	assert.Equal(t, "Fern Gully", tours[0].Title)

	limited, err := catalog.ListTours(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	tour, err := catalog.GetTour(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "The Tropical Glasshouse", tour.Title)
	assert.Equal(t, 18, tour.DurationMinutes)

	_, err = catalog.GetTour(ctx, 77)
	assert.ErrorIs(t, err, garden.ErrTourNotFound)
}

func TestSeedCatalog_IsRepeatable(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, garden.SeedCatalog(ctx, repo.DB()))

	plants, err := repo.Catalog().ListPlants(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, plants, 7)
}

func TestUsers_Repository(t *testing.T) {
	ctx := context.Background()
	users := newTestRepo(t).Users()

	created, err := users.Create(ctx, &garden.User{Username: "rosa", Email: " Rosa@Example.com "})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, garden.RoleMember, created.Role)
	assert.Equal(t, "rosa@example.com", created.Email)

	byID, err := users.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "rosa", byID.Username)

	for _, identifier := range []string{"rosa", "ROSA", "rosa@example.com", " Rosa@example.COM "} {
		u, err := users.GetByIdentifier(ctx, identifier)
		require.NoError(t, err, identifier)
		assert.Equal(t, created.ID, u.ID)
	}

	_, err = users.GetByIdentifier(ctx, "")
	assert.ErrorIs(t, err, garden.ErrIdentityNotFound)
	_, err = users.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, garden.ErrIdentityNotFound)

	_, err = users.Create(ctx, &garden.User{Username: "rosa", Email: "another@example.com"})
	assert.Error(t, err)
}

func TestUsers_TrackLogins(t *testing.T) {
	ctx := context.Background()
	users := newTestRepo(t).Users()

	user, err := users.Create(ctx, &garden.User{Username: "rosa", Email: "rosa@example.com"})
	require.NoError(t, err)

	require.NoError(t, users.TrackAttemptedLogin(ctx, user))
	require.NoError(t, users.TrackAttemptedLogin(ctx, user))

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.LoginAttempts)
	assert.NotNil(t, stored.LoginAttemptAt)

	require.NoError(t, users.TrackSuccessfulLogin(ctx, stored))

	stored, err = users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.LoginAttempts)
	assert.Nil(t, stored.LoginAttemptAt)
	assert.NotNil(t, stored.LoggedInAt)
}

func TestGardens_Repository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	gardens := repo.Gardens()

	owner, other := uuid.New(), uuid.New()

	first, err := gardens.Add(ctx, owner, 1, "  Monty ")
	require.NoError(t, err)
	assert.Equal(t, "Monty", first.Nickname)

	_, err = gardens.Add(ctx, owner, 1, "")
	assert.ErrorIs(t, err, garden.ErrAlreadyInGarden)

	_, err = gardens.Add(ctx, owner, 9999, "")
	assert.ErrorIs(t, err, garden.ErrPlantNotFound)

	_, err = gardens.Add(ctx, other, 1, "")
	require.NoError(t, err, "another user may keep the same plant")

	entries, err := gardens.ListForUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Plant)
	assert.Equal(t, "Swiss Cheese Plant", entries[0].Plant.CommonName)

	assert.ErrorIs(t, gardens.Remove(ctx, other, first.ID), garden.ErrGardenNotFound)
	require.NoError(t, gardens.Remove(ctx, owner, first.ID))
	assert.ErrorIs(t, gardens.Remove(ctx, owner, first.ID), garden.ErrGardenNotFound)

	entries, err = gardens.ListForUser(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
