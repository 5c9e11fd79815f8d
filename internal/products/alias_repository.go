package products

import (
	"context"

	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	"gorm.io/gorm"
)

// AliasRepository reads the named product table.
type AliasRepository struct {
	db *gorm.DB
}

func NewAliasRepository(db *gorm.DB) *AliasRepository {
	return &AliasRepository{db: db}
}

// LookupNames maps each known lower-case name to its product id.
func (r *AliasRepository) LookupNames(ctx context.Context, names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	if len(names) == 0 {
		return out, nil
	}
	var rows []models.NamedProduct
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.Name] = row.ProductID
	}
	return out, nil
}

// List returns every alias ordered by name.
func (r *AliasRepository) List(ctx context.Context) ([]models.NamedProduct, error) {
	var rows []models.NamedProduct
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
