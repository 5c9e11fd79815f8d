package products

import (
	"context"
	"errors"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	pkgerrors "github.com/krestenlaust/micro-stregsystemet/pkg/errors"
	"gorm.io/gorm"
)

// ErrRoomNotFound is wrapped when a sale names a room that does not exist.
var ErrRoomNotFound = errors.New("room not found")

const roomVisibilityClause = `(NOT EXISTS (SELECT 1 FROM product_rooms pr WHERE pr.product_id = products.id)
  OR EXISTS (SELECT 1 FROM product_rooms pr WHERE pr.product_id = products.id AND pr.room_id = ?))`

// Repository reads products and applies stock mutations.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByIDs loads the distinct products with their room restrictions.
// Missing ids are absent from the result.
func (r *Repository) FindByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	out := make(map[int64]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Preload("Rooms").
		Where("id IN ?", distinct(ids)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// ListPurchasable returns the products on sale in roomID at now, ordered by id.
func (r *Repository) ListPurchasable(ctx context.Context, roomID int64, now time.Time) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Rooms").
		Where("active = ?", true).
		Where("(start_date IS NULL OR start_date <= ?)", now).
		Where("(deactivate_date IS NULL OR deactivate_date >= ?)", now).
		Where(roomVisibilityClause, roomID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DecrementStock takes n units from a stocked product. It reports false when
// the product is unlimited or holds fewer than n units; the row is locked by
// the update until the surrounding transaction ends.
func (r *Repository) DecrementStock(ctx context.Context, id int64, n int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock IS NOT NULL AND stock >= ?", id, n).
		UpdateColumn("stock", gorm.Expr("stock - ?", n))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindRoom loads a room by id.
func (r *Repository) FindRoom(ctx context.Context, id int64) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrRoomNotFound, "room not found")
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
