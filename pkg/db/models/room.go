package models

// Room is a purchasing location; products may be restricted to a set of rooms.
type Room struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string `gorm:"column:name;not null"`
	Description string `gorm:"column:description;not null"`
}
