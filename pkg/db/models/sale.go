package models

import "time"

// Sale is an append-only record of one sold unit at the price charged.
type Sale struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	MemberID  int64     `gorm:"column:member_id;not null;index:idx_sales_member_timestamp,priority:1"`
	ProductID int64     `gorm:"column:product_id;not null"`
	RoomID    int64     `gorm:"column:room_id;not null"`
	Price     int64     `gorm:"column:price;not null"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_sales_member_timestamp,priority:2"`
}
