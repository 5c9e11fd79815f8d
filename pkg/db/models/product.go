package models

import "time"

// Product is a sellable item. A nil Stock means unlimited.
type Product struct {
	ID                int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Name              string     `gorm:"column:name;not null"`
	Price             int64      `gorm:"column:price;not null"`
	Stock             *int       `gorm:"column:stock"`
	Active            bool       `gorm:"column:active;not null"`
	StartDate         *time.Time `gorm:"column:start_date"`
	DeactivateDate    *time.Time `gorm:"column:deactivate_date"`
	AlcoholContentML  float64    `gorm:"column:alcohol_content_ml;not null"`
	CaffeineContentMg int        `gorm:"column:caffeine_content_mg;not null"`
	Rooms             []Room     `gorm:"many2many:product_rooms;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Stocked reports whether sales of the product are bounded by a counter.
func (p Product) Stocked() bool {
	return p.Stock != nil
}
