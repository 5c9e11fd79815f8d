package models

import (
	"strings"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/pkg/enums"
)

// Member is a kiosk account with a prepaid balance in øre.
type Member struct {
	ID            int64        `gorm:"column:id;primaryKey;autoIncrement"`
	Username      string       `gorm:"column:username;not null;uniqueIndex"`
	PhoneNumber   string       `gorm:"column:phone_number;not null;index"`
	FirstName     string       `gorm:"column:first_name;not null"`
	LastName      string       `gorm:"column:last_name;not null"`
	Email         string       `gorm:"column:email;not null"`
	Gender        enums.Gender `gorm:"column:gender;type:varchar(1);not null"`
	WeightKg      float64      `gorm:"column:weight_kg;not null"`
	Balance       int64        `gorm:"column:balance;not null"`
	Active        bool         `gorm:"column:active;not null"`
	CreditBlocked bool         `gorm:"column:credit_blocked;not null"`
	CreatedAt     time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

// DisplayName is the name shown on terminals; username when no real name is set.
func (m Member) DisplayName() string {
	name := strings.TrimSpace(m.FirstName + " " + m.LastName)
	if name == "" {
		return m.Username
	}
	return name
}
