package products

import (
	"context"
	"testing"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/pkg/db/dbtest"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	"github.com/stretchr/testify/require"
)

func TestFindByIDsPreloadsRooms(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	room := dbtest.CreateRoom(t, db, "Kantine")
	a := dbtest.CreateProduct(t, db, dbtest.ProductOpts{Name: "A", Rooms: []models.Room{*room}})
	b := dbtest.CreateProduct(t, db, dbtest.ProductOpts{Name: "B"})

	found, err := repo.FindByIDs(ctx, []int64{a.ID, b.ID, a.ID, 999})
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Len(t, found[a.ID].Rooms, 1)
	require.Equal(t, room.ID, found[a.ID].Rooms[0].ID)
	require.Empty(t, found[b.ID].Rooms)

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestListPurchasableFiltersWindowAndRoom(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	kantine := dbtest.CreateRoom(t, db, "Kantine")
	annex := dbtest.CreateRoom(t, db, "Annex")

	everywhere := dbtest.CreateProduct(t, db, dbtest.ProductOpts{Name: "everywhere"})
	kantineOnly := dbtest.CreateProduct(t, db, dbtest.ProductOpts{Name: "kantine", Rooms: []models.Room{*kantine}})
	dbtest.CreateProduct(t, db, dbtest.ProductOpts{Name: "annex", Rooms: []models.Room{*annex}})
	dbtest.CreateProduct(t, db, dbtest.ProductOpts{Name: "inactive", Inactive: true})
	dbtest.CreateProduct(t, db, dbtest.ProductOpts{Name: "expired", DeactivateDate: &past})
	dbtest.CreateProduct(t, db, dbtest.ProductOpts{Name: "upcoming", StartDate: &future})
	windowed := dbtest.CreateProduct(t, db, dbtest.ProductOpts{Name: "windowed", StartDate: &past, DeactivateDate: &future})

	rows, err := repo.ListPurchasable(ctx, kantine.ID, now)
	require.NoError(t, err)

	var ids []int64
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	require.Equal(t, []int64{everywhere.ID, kantineOnly.ID, windowed.ID}, ids)
}

func TestDecrementStock(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	stocked := dbtest.CreateProduct(t, db, dbtest.ProductOpts{Stock: dbtest.Stock(3)})
	unlimited := dbtest.CreateProduct(t, db, dbtest.ProductOpts{})

	ok, err := repo.DecrementStock(ctx, stocked.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, *dbtest.ProductStock(t, db, stocked.ID))

	ok, err = repo.DecrementStock(ctx, stocked.ID, 2)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, *dbtest.ProductStock(t, db, stocked.ID))

	ok, err = repo.DecrementStock(ctx, unlimited.ID, 1)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, dbtest.ProductStock(t, db, unlimited.ID))
}

func TestAliasRepository(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewAliasRepository(db)
	ctx := context.Background()

	cola := dbtest.CreateProduct(t, db, dbtest.ProductOpts{Name: "Cola"})
	beer := dbtest.CreateProduct(t, db, dbtest.ProductOpts{Name: "Beer"})
	dbtest.CreateAlias(t, db, "cola", cola.ID)
	dbtest.CreateAlias(t, db, "øl", beer.ID)

	found, err := repo.LookupNames(ctx, []string{"cola", "øl", "fanta"})
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"cola": cola.ID, "øl": beer.ID}, found)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "cola", all[0].Name)
}

func TestFindRoom(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)

	room := dbtest.CreateRoom(t, db, "Kantine")
	found, err := repo.FindRoom(context.Background(), room.ID)
	require.NoError(t, err)
	require.Equal(t, "Kantine", found.Name)

	_, err = repo.FindRoom(context.Background(), room.ID+1)
	require.ErrorIs(t, err, ErrRoomNotFound)
}
