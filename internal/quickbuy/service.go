package quickbuy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/internal/buystring"
	"github.com/krestenlaust/micro-stregsystemet/internal/feedback"
	"github.com/krestenlaust/micro-stregsystemet/internal/members"
	"github.com/krestenlaust/micro-stregsystemet/internal/orders"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	"github.com/krestenlaust/micro-stregsystemet/pkg/enums"
	pkgerrors "github.com/krestenlaust/micro-stregsystemet/pkg/errors"
	"github.com/krestenlaust/micro-stregsystemet/pkg/logger"
	"github.com/krestenlaust/micro-stregsystemet/pkg/metrics"
)

type aliasResolver interface {
	Resolve(ctx context.Context, raw string) (string, error)
}

type memberLoader interface {
	FindActiveByIdentity(ctx context.Context, identity string) (*models.Member, error)
	FindActiveByID(ctx context.Context, id int64) (*models.Member, error)
	FindByID(ctx context.Context, id int64) (*models.Member, error)
}

type roomLoader interface {
	FindRoom(ctx context.Context, id int64) (*models.Room, error)
}

type saleHistory interface {
	ListByMemberBetween(ctx context.Context, memberID int64, since, until time.Time) ([]models.Sale, error)
	TopCaffeineBuyer(ctx context.Context, since time.Time) (int64, bool, error)
}

type orderExecutor interface {
	Execute(ctx context.Context, member *models.Member, roomID int64, ids []int64) (*orders.Receipt, error)
}

// Service runs the terminal flow: buy string in, menu or committed sale out.
type Service interface {
	ResolveAndParse(ctx context.Context, raw string) (buystring.Result, error)
	ExecuteOrder(ctx context.Context, member *models.Member, roomID int64, ids []int64) (*orders.Receipt, error)
	ComputeFeedback(ctx context.Context, member *models.Member, justPurchased []*models.Product, fromSale bool, now time.Time) (*feedback.Feedback, error)
	Sell(ctx context.Context, roomID int64, raw string) (*Outcome, error)
	SellForMember(ctx context.Context, roomID, memberID int64, raw string) (*Outcome, error)
}

// Outcome is what the terminal renders after a buy string. Receipt is nil for
// a menu outcome; a none outcome carries nothing else.
type Outcome struct {
	Kind     enums.OutcomeKind  `json:"kind"`
	Member   *models.Member     `json:"-"`
	Receipt  *orders.Receipt    `json:"order,omitempty"`
	Feedback *feedback.Feedback `json:"feedback"`
}

// Params wires the service. Metrics, Logger and Clock are optional.
type Params struct {
	Resolver           aliasResolver
	Parser             buystring.Parser
	Members            memberLoader
	Rooms              roomLoader
	Sales              saleHistory
	Engine             orderExecutor
	Estimator          members.IntakeEstimator
	Calculator         *feedback.Calculator
	CoffeeMasterWindow time.Duration
	Metrics            *metrics.SaleMetrics
	Logger             *logger.Logger
	Clock              func() time.Time
}

type service struct {
	resolver           aliasResolver
	parser             buystring.Parser
	members            memberLoader
	rooms              roomLoader
	sales              saleHistory
	engine             orderExecutor
	estimator          members.IntakeEstimator
	calculator         *feedback.Calculator
	coffeeMasterWindow time.Duration
	metrics            *metrics.SaleMetrics
	logg               *logger.Logger
	now                func() time.Time
}

func NewService(p Params) (Service, error) {
	if p.Resolver == nil {
		return nil, fmt.Errorf("alias resolver required")
	}
	if p.Members == nil {
		return nil, fmt.Errorf("members repository required")
	}
	if p.Rooms == nil {
		return nil, fmt.Errorf("rooms repository required")
	}
	if p.Sales == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if p.Engine == nil {
		return nil, fmt.Errorf("order engine required")
	}
	if p.Estimator == nil {
		return nil, fmt.Errorf("intake estimator required")
	}
	if p.Calculator == nil {
		p.Calculator = feedback.NewCalculator(feedback.DefaultLowBalanceThreshold, feedback.DefaultMultibuyWindow)
	}
	if p.CoffeeMasterWindow <= 0 {
		p.CoffeeMasterWindow = 7 * 24 * time.Hour
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	return &service{
		resolver:           p.Resolver,
		parser:             p.Parser,
		members:            p.Members,
		rooms:              p.Rooms,
		sales:              p.Sales,
		engine:             p.Engine,
		estimator:          p.Estimator,
		calculator:         p.Calculator,
		coffeeMasterWindow: p.CoffeeMasterWindow,
		metrics:            p.Metrics,
		logg:               p.Logger,
		now:                p.Clock,
	}, nil
}

// ResolveAndParse rewrites aliases and parses the result. Parse errors point
// into raw as typed. A blank buy string yields an empty Result.
func (s *service) ResolveAndParse(ctx context.Context, raw string) (buystring.Result, error) {
	if strings.TrimSpace(raw) == "" {
		return buystring.Result{}, nil
	}
	resolved, err := s.resolver.Resolve(ctx, raw)
	if err != nil {
		return buystring.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving product aliases")
	}
	result, err := s.parser.ParseResolved(raw, resolved)
	if err != nil {
		s.metrics.IncParseError()
		return buystring.Result{}, err
	}
	return result, nil
}

func (s *service) ExecuteOrder(ctx context.Context, member *models.Member, roomID int64, ids []int64) (*orders.Receipt, error) {
	return s.engine.Execute(ctx, member, roomID, ids)
}

func (s *service) ComputeFeedback(ctx context.Context, member *models.Member, justPurchased []*models.Product, fromSale bool, now time.Time) (*feedback.Feedback, error) {
	if member == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member required")
	}
	current, err := s.members.FindByID(ctx, member.ID)
	if err != nil {
		return nil, err
	}

	promille, err := s.estimator.AlcoholPromille(ctx, current, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "estimating promille")
	}
	caffeine, err := s.estimator.CaffeineInBody(ctx, current, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "estimating caffeine")
	}

	var recent []models.Sale
	if fromSale {
		recent, err = s.sales.ListByMemberBetween(ctx, current.ID, now.Add(-s.calculator.MultibuyWindow()), now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading recent sales")
		}
	}

	leader, found, err := s.sales.TopCaffeineBuyer(ctx, now.Add(-s.coffeeMasterWindow))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading caffeine ranking")
	}

	return s.calculator.Compute(feedback.Input{
		Member:        current,
		Balance:       current.Balance,
		Promille:      promille,
		CaffeineMg:    caffeine,
		JustPurchased: justPurchased,
		RecentSales:   recent,
		CoffeeMaster:  found && leader == current.ID,
		FromSale:      fromSale,
		Now:           now,
	}), nil
}

// Sell runs a buy string typed at a terminal in roomID.
func (s *service) Sell(ctx context.Context, roomID int64, raw string) (*Outcome, error) {
	if _, err := s.rooms.FindRoom(ctx, roomID); err != nil {
		return nil, err
	}
	result, err := s.ResolveAndParse(ctx, raw)
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return &Outcome{Kind: enums.OutcomeNone}, nil
	}
	member, err := s.members.FindActiveByIdentity(ctx, result.Identity)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, member, roomID, result.ProductIDs)
}

// SellForMember runs a buy string on behalf of a known member. The buy
// string's identity must be that member's phone number.
func (s *service) SellForMember(ctx context.Context, roomID, memberID int64, raw string) (*Outcome, error) {
	if _, err := s.rooms.FindRoom(ctx, roomID); err != nil {
		return nil, err
	}
	result, err := s.ResolveAndParse(ctx, raw)
	if err != nil {
		return nil, err
	}
	member, err := s.members.FindActiveByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if result.Identity != member.PhoneNumber {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number does not match member").
			WithDetails(map[string]any{"member_id": memberID})
	}
	return s.complete(ctx, member, roomID, result.ProductIDs)
}

func (s *service) complete(ctx context.Context, member *models.Member, roomID int64, ids []int64) (*Outcome, error) {
	ctx = s.logg.WithRoomID(s.logg.WithMemberID(ctx, member.ID), roomID)

	if len(ids) == 0 {
		fb, err := s.ComputeFeedback(ctx, member, nil, false, s.now().UTC())
		if err != nil {
			return nil, err
		}
		return &Outcome{Kind: enums.OutcomeMenu, Member: member, Feedback: fb}, nil
	}

	receipt, err := s.ExecuteOrder(ctx, member, roomID, ids)
	if err != nil {
		return nil, err
	}
	fb, err := s.ComputeFeedback(ctx, member, receipt.Products, true, receipt.CreatedAt)
	if err != nil {
		// The order is committed; a receipt without feedback still goes out.
		s.logg.Error(ctx, "computing sale feedback", err)
		return &Outcome{Kind: enums.OutcomeSale, Member: member, Receipt: receipt}, nil
	}
	return &Outcome{Kind: enums.OutcomeSale, Member: member, Receipt: receipt, Feedback: fb}, nil
}
