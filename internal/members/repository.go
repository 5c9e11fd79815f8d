package members

import (
	"context"
	"errors"

	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	pkgerrors "github.com/krestenlaust/micro-stregsystemet/pkg/errors"
	"gorm.io/gorm"
)

// ErrMemberNotFound is wrapped by every lookup that finds no matching member.
var ErrMemberNotFound = errors.New("member not found")

// Repository manages member reads and the balance debit.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByIdentity(ctx context.Context, identity string) (*models.Member, error)
	FindActiveByID(ctx context.Context, id int64) (*models.Member, error)
	FindByID(ctx context.Context, id int64) (*models.Member, error)
	FindByUsername(ctx context.Context, username string) (*models.Member, error)
	Debit(ctx context.Context, id int64, amount int64) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a member repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindActiveByIdentity resolves the identity token of a buy string: a phone
// number first, then a username.
func (r *repository) FindActiveByIdentity(ctx context.Context, identity string) (*models.Member, error) {
	member, err := r.first(ctx, "phone_number = ? AND active = ?", identity, true)
	if err == nil || !errors.Is(err, ErrMemberNotFound) {
		return member, err
	}
	return r.first(ctx, "username = ? AND active = ?", identity, true)
}

func (r *repository) FindActiveByID(ctx context.Context, id int64) (*models.Member, error) {
	return r.first(ctx, "id = ? AND active = ?", id, true)
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Member, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) FindByUsername(ctx context.Context, username string) (*models.Member, error) {
	return r.first(ctx, "username = ?", username)
}

// Debit subtracts amount from the balance of a member who is not credit
// blocked. It reports false when no such member exists.
func (r *repository) Debit(ctx context.Context, id int64, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ? AND credit_blocked = ?", id, false).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) first(ctx context.Context, query string, args ...any) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).Where(query, args...).Order("id").First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrMemberNotFound, "member not found")
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}
