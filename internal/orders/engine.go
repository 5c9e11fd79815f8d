package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/internal/members"
	"github.com/krestenlaust/micro-stregsystemet/internal/products"
	"github.com/krestenlaust/micro-stregsystemet/internal/sales"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	pkgerrors "github.com/krestenlaust/micro-stregsystemet/pkg/errors"
	"github.com/krestenlaust/micro-stregsystemet/pkg/logger"
	"github.com/krestenlaust/micro-stregsystemet/pkg/metrics"
	"github.com/krestenlaust/micro-stregsystemet/pkg/visibility"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Engine validates and commits orders. Every step of one order runs in a
// single transaction; a rejection or error rolls all of it back.
type Engine struct {
	tx       txRunner
	members  members.Repository
	products *products.Repository
	sales    sales.Repository
	metrics  *metrics.SaleMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// EngineParams wires the engine collaborators. Metrics, Logger and Clock are optional.
type EngineParams struct {
	Tx       txRunner
	Members  members.Repository
	Products *products.Repository
	Sales    sales.Repository
	Metrics  *metrics.SaleMetrics
	Logger   *logger.Logger
	Clock    func() time.Time
}

func NewEngine(p EngineParams) (*Engine, error) {
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Members == nil {
		return nil, fmt.Errorf("members repository required")
	}
	if p.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if p.Sales == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	return &Engine{
		tx:       p.Tx,
		members:  p.Members,
		products: p.Products,
		sales:    p.Sales,
		metrics:  p.Metrics,
		logg:     p.Logger,
		now:      p.Clock,
	}, nil
}

// Execute builds an order for member in roomID from the product ids and
// commits it. It returns a *Rejection when the order is refused.
func (e *Engine) Execute(ctx context.Context, member *models.Member, roomID int64, ids []int64) (*Receipt, error) {
	if member == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member required")
	}
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no products")
	}

	started := e.now()
	ctx = e.logg.WithRoomID(e.logg.WithMemberID(ctx, member.ID), roomID)

	var receipt *Receipt
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		memberRepo := e.members.WithTx(tx)
		productRepo := e.products.WithTx(tx)

		order, err := e.build(ctx, productRepo, member, roomID, ids, started.UTC())
		if err != nil {
			return err
		}

		current, err := memberRepo.FindActiveByID(ctx, member.ID)
		if err != nil {
			return err
		}
		if current.CreditBlocked {
			return creditBlocked()
		}
		order.Member = current

		for _, demand := range order.StockDemands() {
			ok, err := productRepo.DecrementStock(ctx, demand.ProductID, demand.Units)
			if err != nil {
				return fmt.Errorf("decrementing stock of product %d: %w", demand.ProductID, err)
			}
			if !ok {
				return outOfStock(demand.ProductID)
			}
		}

		// The debit re-checks the block so one set after the read above still wins.
		ok, err := memberRepo.Debit(ctx, current.ID, order.Total())
		if err != nil {
			return fmt.Errorf("debiting member: %w", err)
		}
		if !ok {
			return creditBlocked()
		}

		if err := e.sales.WithTx(tx).CreateBatch(ctx, order.Sales()); err != nil {
			return fmt.Errorf("recording sales: %w", err)
		}

		after, err := memberRepo.FindByID(ctx, current.ID)
		if err != nil {
			return err
		}
		receipt = newReceipt(order, after.Balance)
		return nil
	})

	took := e.now().Sub(started)
	if err != nil {
		return nil, e.fail(ctx, err, took)
	}

	e.metrics.ObserveCommit(receipt.Total, took)
	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"total":       receipt.Total,
		"units":       len(receipt.Items),
		"new_balance": receipt.NewBalance,
	}), "order committed")
	return receipt, nil
}

// build resolves every id to a purchasable product. The first id that does
// not resolve rejects the whole order.
func (e *Engine) build(ctx context.Context, repo *products.Repository, member *models.Member, roomID int64, ids []int64, now time.Time) (*Order, error) {
	found, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}
	order := &Order{Member: member, RoomID: roomID, CreatedAt: now, Lines: make([]*models.Product, 0, len(ids))}
	for _, id := range ids {
		product, ok := found[id]
		if !ok {
			return nil, invalidProduct(id, "product not found")
		}
		if err := visibility.EnsureProductPurchasable(product, roomID, now); err != nil {
			return nil, invalidProduct(id, pkgerrors.As(err).Message())
		}
		order.Lines = append(order.Lines, product)
	}
	return order, nil
}

func (e *Engine) fail(ctx context.Context, err error, took time.Duration) error {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		e.metrics.ObserveRejection(string(rejection.Kind), took)
		e.logg.Info(e.logg.WithFields(ctx, map[string]any{
			"kind":       rejection.Kind,
			"product_id": rejection.ProductID,
		}), "order rejected")
		return rejection
	}
	e.metrics.ObserveRejection("error", took)
	if pkgerrors.As(err) != nil {
		return err
	}
	e.logg.Error(ctx, "order failed", err)
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order could not be completed")
}
