// Package dbtest opens throwaway sqlite databases with the full schema and
// seeds fixtures for repository and engine tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	"github.com/krestenlaust/micro-stregsystemet/pkg/enums"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns an isolated in-memory database. A single connection keeps
// concurrent transactions serialised the way sqlite requires.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:streg_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// MemberOpts tweaks the member fixture.
type MemberOpts struct {
	Username      string
	PhoneNumber   string
	Balance       int64
	Inactive      bool
	CreditBlocked bool
	Gender        enums.Gender
	WeightKg      float64
}

func CreateMember(t *testing.T, db *gorm.DB, opts MemberOpts) *models.Member {
	t.Helper()
	if opts.Username == "" {
		opts.Username = "member_" + uuid.NewString()[:8]
	}
	if opts.Gender == "" {
		opts.Gender = enums.GenderUnknown
	}
	member := &models.Member{
		Username:      opts.Username,
		PhoneNumber:   opts.PhoneNumber,
		FirstName:     "Test",
		LastName:      "Member",
		Gender:        opts.Gender,
		WeightKg:      opts.WeightKg,
		Balance:       opts.Balance,
		Active:        !opts.Inactive,
		CreditBlocked: opts.CreditBlocked,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("create member: %v", err)
	}
	return member
}

// ProductOpts tweaks the product fixture. A nil Stock is unlimited.
type ProductOpts struct {
	ID             int64
	Name           string
	Price          int64
	Stock          *int
	Inactive       bool
	StartDate      *time.Time
	DeactivateDate *time.Time
	AlcoholML      float64
	CaffeineMg     int
	Rooms          []models.Room
}

func CreateProduct(t *testing.T, db *gorm.DB, opts ProductOpts) *models.Product {
	t.Helper()
	if opts.Name == "" {
		opts.Name = "product"
	}
	if opts.Price == 0 {
		opts.Price = 1000
	}
	product := &models.Product{
		ID:                opts.ID,
		Name:              opts.Name,
		Price:             opts.Price,
		Stock:             opts.Stock,
		Active:            !opts.Inactive,
		StartDate:         opts.StartDate,
		DeactivateDate:    opts.DeactivateDate,
		AlcoholContentML:  opts.AlcoholML,
		CaffeineContentMg: opts.CaffeineMg,
		Rooms:             opts.Rooms,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func CreateRoom(t *testing.T, db *gorm.DB, name string) *models.Room {
	t.Helper()
	room := &models.Room{Name: name}
	if err := db.Create(room).Error; err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func CreateAlias(t *testing.T, db *gorm.DB, name string, productID int64) {
	t.Helper()
	if err := db.Create(&models.NamedProduct{Name: name, ProductID: productID}).Error; err != nil {
		t.Fatalf("create alias: %v", err)
	}
}

func CreateSale(t *testing.T, db *gorm.DB, sale models.Sale) *models.Sale {
	t.Helper()
	if err := db.Create(&sale).Error; err != nil {
		t.Fatalf("create sale: %v", err)
	}
	return &sale
}

// Stock returns a pointer for ProductOpts.Stock.
func Stock(n int) *int {
	return &n
}

// ProductStock reads the current stock back; nil means unlimited.
func ProductStock(t *testing.T, db *gorm.DB, id int64) *int {
	t.Helper()
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product.Stock
}

func MemberBalance(t *testing.T, db *gorm.DB, id int64) int64 {
	t.Helper()
	var member models.Member
	if err := db.First(&member, id).Error; err != nil {
		t.Fatalf("reload member: %v", err)
	}
	return member.Balance
}

func CountSales(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.Sale{}).Count(&count).Error; err != nil {
		t.Fatalf("count sales: %v", err)
	}
	return count
}
