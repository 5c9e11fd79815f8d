package sales

import (
	"context"
	"errors"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/internal/members"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	"gorm.io/gorm"
)

// Totals summarises a member's purchase history.
type Totals struct {
	Amount int64 `json:"total_amount"`
	Count  int64 `json:"total_purchases"`
}

// Repository appends and queries the sale history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, sales []models.Sale) error
	ListByMemberBetween(ctx context.Context, memberID int64, since, until time.Time) ([]models.Sale, error)
	ListRecentByMember(ctx context.Context, memberID int64, limit int) ([]models.Sale, error)
	Totals(ctx context.Context, memberID int64) (Totals, error)
	TopCaffeineBuyer(ctx context.Context, since time.Time) (int64, bool, error)
	ListConsumptionSince(ctx context.Context, memberID int64, since time.Time) ([]members.Consumption, error)
}

// createBatchSize keeps one INSERT well below the bind parameter limits of
// postgres (65535) and sqlite (32766) for a large order.
const createBatchSize = 1000

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sales repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, sales []models.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&sales, createBatchSize).Error
}

// ListByMemberBetween returns sales in (since, until], newest first.
func (r *repository) ListByMemberBetween(ctx context.Context, memberID int64, since, until time.Time) ([]models.Sale, error) {
	var rows []models.Sale
	if err := r.db.WithContext(ctx).
		Where("member_id = ? AND timestamp > ? AND timestamp <= ?", memberID, since, until).
		Order("timestamp DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListRecentByMember(ctx context.Context, memberID int64, limit int) ([]models.Sale, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	var rows []models.Sale
	if err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Totals(ctx context.Context, memberID int64) (Totals, error) {
	var totals Totals
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("COALESCE(SUM(price), 0) AS amount, COUNT(*) AS count").
		Where("member_id = ?", memberID).
		Scan(&totals).Error
	return totals, err
}

// TopCaffeineBuyer returns the member with the most caffeinated purchases
// after since. Ties go to the lowest member id.
func (r *repository) TopCaffeineBuyer(ctx context.Context, since time.Time) (int64, bool, error) {
	var rows []struct {
		MemberID  int64
		Purchases int64
	}
	err := r.db.WithContext(ctx).
		Table("sales").
		Select("sales.member_id AS member_id, COUNT(*) AS purchases").
		Joins("JOIN products ON products.id = sales.product_id").
		Where("products.caffeine_content_mg > 0 AND sales.timestamp > ?", since).
		Group("sales.member_id").
		Order("purchases DESC").
		Order("sales.member_id ASC").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].MemberID, true, nil
}

// ListConsumptionSince feeds the intake estimator.
func (r *repository) ListConsumptionSince(ctx context.Context, memberID int64, since time.Time) ([]members.Consumption, error) {
	var rows []struct {
		Timestamp         time.Time
		AlcoholContentML  float64
		CaffeineContentMg int
	}
	err := r.db.WithContext(ctx).
		Table("sales").
		Select("sales.timestamp AS timestamp, products.alcohol_content_ml AS alcohol_content_ml, products.caffeine_content_mg AS caffeine_content_mg").
		Joins("JOIN products ON products.id = sales.product_id").
		Where("sales.member_id = ? AND sales.timestamp > ?", memberID, since).
		Where("(products.alcohol_content_ml > 0 OR products.caffeine_content_mg > 0)").
		Order("sales.timestamp ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]members.Consumption, 0, len(rows))
	for _, row := range rows {
		out = append(out, members.Consumption{
			Timestamp:  row.Timestamp,
			AlcoholML:  row.AlcoholContentML,
			CaffeineMg: row.CaffeineContentMg,
		})
	}
	return out, nil
}
