package quickbuy

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/internal/buystring"
	"github.com/krestenlaust/micro-stregsystemet/internal/feedback"
	"github.com/krestenlaust/micro-stregsystemet/internal/members"
	"github.com/krestenlaust/micro-stregsystemet/internal/orders"
	"github.com/krestenlaust/micro-stregsystemet/internal/products"
	"github.com/krestenlaust/micro-stregsystemet/internal/sales"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db/dbtest"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	"github.com/krestenlaust/micro-stregsystemet/pkg/enums"
	pkgerrors "github.com/krestenlaust/micro-stregsystemet/pkg/errors"
	"github.com/krestenlaust/micro-stregsystemet/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc  Service
	db   *gorm.DB
	reg  *prometheus.Registry
	room *models.Room
}

// tickingClock advances one second per call so separate orders get
// separate timestamps.
func tickingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	reg := prometheus.NewRegistry()
	saleMetrics := metrics.NewSaleMetrics(reg)
	clock := tickingClock(time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC))

	memberRepo := members.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	saleRepo := sales.NewRepository(conn)

	resolver, err := buystring.NewResolver(products.NewAliasRepository(conn))
	require.NoError(t, err)
	estimator, err := members.NewIntakeEstimator(saleRepo)
	require.NoError(t, err)
	engine, err := orders.NewEngine(orders.EngineParams{
		Tx:       db.Wrap(conn),
		Members:  memberRepo,
		Products: productRepo,
		Sales:    saleRepo,
		Metrics:  saleMetrics,
		Clock:    clock,
	})
	require.NoError(t, err)

	svc, err := NewService(Params{
		Resolver:   resolver,
		Parser:     buystring.Parser{MaxQuantity: 100},
		Members:    memberRepo,
		Rooms:      productRepo,
		Sales:      saleRepo,
		Engine:     engine,
		Estimator:  estimator,
		Calculator: feedback.NewCalculator(5000, time.Minute),
		Metrics:    saleMetrics,
		Clock:      clock,
	})
	require.NoError(t, err)

	return &fixture{svc: svc, db: conn, reg: reg, room: dbtest.CreateRoom(t, conn, "Kantine")}
}

func (f *fixture) parseErrors(t *testing.T) float64 {
	t.Helper()
	mfs, err := f.reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "streg_buy_string_parse_errors_total" {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestSellWorkedExample(t *testing.T) {
	f := newFixture(t)
	member := dbtest.CreateMember(t, f.db, dbtest.MemberOpts{Username: "kresten", PhoneNumber: "12345678", Balance: 10000})
	dbtest.CreateProduct(t, f.db, dbtest.ProductOpts{ID: 7, Name: "A", Price: 2000, Stock: dbtest.Stock(1)})
	dbtest.CreateProduct(t, f.db, dbtest.ProductOpts{ID: 9, Name: "B", Price: 1500})

	outcome, err := f.svc.Sell(context.Background(), f.room.ID, "12345678 7 9")
	require.NoError(t, err)

	assert.Equal(t, enums.OutcomeSale, outcome.Kind)
	require.NotNil(t, outcome.Receipt)
	assert.EqualValues(t, 3500, outcome.Receipt.Total)
	assert.EqualValues(t, 6500, outcome.Receipt.NewBalance)
	require.NotNil(t, outcome.Feedback)
	assert.False(t, outcome.Feedback.MemberHasLowBalance)
	assert.Equal(t, "65.00", outcome.Feedback.MemberBalance)
	assert.False(t, outcome.Feedback.GiveMultibuyHint)
	assert.Equal(t, 0, *dbtest.ProductStock(t, f.db, 7))
	assert.EqualValues(t, 6500, dbtest.MemberBalance(t, f.db, member.ID))
}

func TestSellIdentityOnlyOpensMenu(t *testing.T) {
	f := newFixture(t)
	dbtest.CreateMember(t, f.db, dbtest.MemberOpts{PhoneNumber: "12345678", Balance: 4000})

	outcome, err := f.svc.Sell(context.Background(), f.room.ID, "  12345678  ")
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeMenu, outcome.Kind)
	assert.Nil(t, outcome.Receipt)
	assert.True(t, outcome.Feedback.MemberHasLowBalance)
	assert.Zero(t, dbtest.CountSales(t, f.db))
}

func TestSellResolvesAliases(t *testing.T) {
	f := newFixture(t)
	dbtest.CreateMember(t, f.db, dbtest.MemberOpts{PhoneNumber: "12345678", Balance: 10000})
	cola := dbtest.CreateProduct(t, f.db, dbtest.ProductOpts{Name: "Cola", Price: 600, CaffeineMg: 40})
	dbtest.CreateAlias(t, f.db, "cola", cola.ID)

	outcome, err := f.svc.Sell(context.Background(), f.room.ID, "12345678 COLA:2")
	require.NoError(t, err)
	assert.Equal(t, []int64{cola.ID, cola.ID}, outcome.Receipt.Items)
	assert.True(t, outcome.Feedback.ProductContainsCaffeine)
	assert.True(t, outcome.Feedback.IsCoffeeMaster)
}

func TestSellMultibuyHintAcrossOrders(t *testing.T) {
	f := newFixture(t)
	dbtest.CreateMember(t, f.db, dbtest.MemberOpts{Username: "kresten", PhoneNumber: "12345678", Balance: 10000})
	dbtest.CreateProduct(t, f.db, dbtest.ProductOpts{ID: 7, Price: 100})

	first, err := f.svc.Sell(context.Background(), f.room.ID, "12345678 7:3")
	require.NoError(t, err)
	assert.False(t, first.Feedback.GiveMultibuyHint, "one order with three items")

	second, err := f.svc.Sell(context.Background(), f.room.ID, "12345678 7")
	require.NoError(t, err)
	assert.True(t, second.Feedback.GiveMultibuyHint)
	assert.Equal(t, "kresten 7:4", second.Feedback.SaleHints)

	menu, err := f.svc.Sell(context.Background(), f.room.ID, "12345678")
	require.NoError(t, err)
	assert.False(t, menu.Feedback.GiveMultibuyHint)
	assert.EqualValues(t, 4, dbtest.CountSales(t, f.db))
}

func TestSellParseErrorCounts(t *testing.T) {
	f := newFixture(t)
	dbtest.CreateMember(t, f.db, dbtest.MemberOpts{PhoneNumber: "12345678"})

	_, err := f.svc.Sell(context.Background(), f.room.ID, "12345678 7 nosuch 9")
	var parseErr *buystring.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "12345678 7 ", parseErr.Parsed)
	assert.Equal(t, "nosuch 9", parseErr.Failed)
	assert.Equal(t, 1.0, f.parseErrors(t))

	_, err = f.svc.Sell(context.Background(), f.room.ID, "12345678 7:101")
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 2.0, f.parseErrors(t))
}

func TestSellParseErrorPointsIntoTypedInput(t *testing.T) {
	f := newFixture(t)
	dbtest.CreateMember(t, f.db, dbtest.MemberOpts{PhoneNumber: "12345678", Balance: 10000})
	beer := dbtest.CreateProduct(t, f.db, dbtest.ProductOpts{Name: "Beer", Price: 800})
	dbtest.CreateAlias(t, f.db, "beer", beer.ID)

	tests := []struct {
		input  string
		parsed string
		failed string
	}{
		{"12345678 Beer:2 xyz", "12345678 Beer:2 ", "xyz"},
		{"  12345678  beer   xyz 9 ", "12345678  beer   ", "xyz 9"},
		{"12345678 BEER:2 beer:x", "12345678 BEER:2 ", "beer:x"},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			_, err := f.svc.Sell(context.Background(), f.room.ID, tc.input)
			var parseErr *buystring.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tc.parsed, parseErr.Parsed)
			assert.Equal(t, tc.failed, parseErr.Failed)
			assert.Equal(t, strings.TrimSpace(tc.input), parseErr.Parsed+parseErr.Failed)
			assert.Equal(t, len(tc.parsed), parseErr.Column())
		})
	}
	assert.Zero(t, dbtest.CountSales(t, f.db))
}

func TestSellBlankBuyStringDoesNothing(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.ResolveAndParse(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, res.Empty())

	outcome, err := f.svc.Sell(context.Background(), f.room.ID, " \t ")
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeNone, outcome.Kind)
	assert.Nil(t, outcome.Member)
	assert.Nil(t, outcome.Receipt)
	assert.Zero(t, f.parseErrors(t))
}

func TestSellLookupFailures(t *testing.T) {
	f := newFixture(t)
	dbtest.CreateMember(t, f.db, dbtest.MemberOpts{PhoneNumber: "11111111", Inactive: true})

	_, err := f.svc.Sell(context.Background(), f.room.ID, "11111111 1")
	require.ErrorIs(t, err, members.ErrMemberNotFound)

	_, err = f.svc.Sell(context.Background(), f.room.ID+100, "11111111 1")
	require.ErrorIs(t, err, products.ErrRoomNotFound)
}

func TestSellRejectionPassesThrough(t *testing.T) {
	f := newFixture(t)
	dbtest.CreateMember(t, f.db, dbtest.MemberOpts{PhoneNumber: "12345678", CreditBlocked: true})
	p := dbtest.CreateProduct(t, f.db, dbtest.ProductOpts{})

	_, err := f.svc.Sell(context.Background(), f.room.ID, "12345678 "+itoa(p.ID))
	var rejection *orders.Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, orders.KindCreditBlocked, rejection.Kind)
}

func TestSellForMember(t *testing.T) {
	f := newFixture(t)
	member := dbtest.CreateMember(t, f.db, dbtest.MemberOpts{PhoneNumber: "12345678", Balance: 10000})
	p := dbtest.CreateProduct(t, f.db, dbtest.ProductOpts{Price: 250})

	_, err := f.svc.SellForMember(context.Background(), f.room.ID, member.ID, "87654321 "+itoa(p.ID))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Zero(t, dbtest.CountSales(t, f.db))

	outcome, err := f.svc.SellForMember(context.Background(), f.room.ID, member.ID, "12345678 "+itoa(p.ID))
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeSale, outcome.Kind)
	assert.EqualValues(t, 9750, outcome.Receipt.NewBalance)

	menu, err := f.svc.SellForMember(context.Background(), f.room.ID, member.ID, "12345678")
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeMenu, menu.Kind)
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(Params{})
	require.Error(t, err)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
