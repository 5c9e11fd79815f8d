package models

// NamedProduct maps a lower-case alias to a product id.
type NamedProduct struct {
	Name      string `gorm:"column:name;primaryKey"`
	ProductID int64  `gorm:"column:product_id;not null;index"`
}
