package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/api/responses"
	"github.com/krestenlaust/micro-stregsystemet/api/validators"
	"github.com/krestenlaust/micro-stregsystemet/internal/sales"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	"github.com/krestenlaust/micro-stregsystemet/pkg/logger"
	"github.com/krestenlaust/micro-stregsystemet/pkg/money"
)

const (
	defaultSalesCount = 10
	maxSalesCount     = 100
	maxUsernameLength = 64
)

type memberReader interface {
	FindByID(ctx context.Context, id int64) (*models.Member, error)
	FindByUsername(ctx context.Context, username string) (*models.Member, error)
}

type saleReader interface {
	ListRecentByMember(ctx context.Context, memberID int64, limit int) ([]models.Sale, error)
	Totals(ctx context.Context, memberID int64) (sales.Totals, error)
}

type productReader interface {
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
}

type memberInfo struct {
	Balance        int64  `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
	PhoneNumber    string `json:"phone_number"`
	Active         bool   `json:"active"`
	Name           string `json:"name"`
}

type saleView struct {
	Timestamp time.Time `json:"timestamp"`
	Product   string    `json:"product"`
	Price     int64     `json:"price"`
}

type memberSales struct {
	Sales  []saleView   `json:"sales"`
	Totals sales.Totals `json:"stats"`
}

func loadMember(r *http.Request, repo memberReader) (*models.Member, error) {
	id, err := validators.ParseQueryID(r, "member_id")
	if err != nil {
		return nil, err
	}
	return repo.FindByID(r.Context(), id)
}

// MemberActive handles GET /api/member/active?member_id=.
func MemberActive(repo memberReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := loadMember(r, repo)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"active": member.Active})
	}
}

// MemberBalance handles GET /api/member/balance?member_id=.
func MemberBalance(repo memberReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := loadMember(r, repo)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"balance":         member.Balance,
			"balance_display": money.Format(member.Balance),
		})
	}
}

// MemberInfo handles GET /api/member?member_id=.
func MemberInfo(repo memberReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := loadMember(r, repo)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, memberInfo{
			Balance:        member.Balance,
			BalanceDisplay: money.Format(member.Balance),
			PhoneNumber:    member.PhoneNumber,
			Active:         member.Active,
			Name:           member.DisplayName(),
		})
	}
}

// MemberID handles GET /api/member/get_id?username=.
func MemberID(repo memberReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, err := validators.RequireQueryString(r, "username", maxUsernameLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		member, err := repo.FindByUsername(r.Context(), username)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"member_id": member.ID})
	}
}

// MemberSales handles GET /api/member/sales?member_id=&count=, newest first,
// priced at what the member paid.
func MemberSales(saleRepo saleReader, productRepo productReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberID, err := validators.ParseQueryID(r, "member_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		count, err := validators.ParseQueryInt(r, "count", defaultSalesCount, 1, maxSalesCount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := saleRepo.ListRecentByMember(r.Context(), memberID, count)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ids := make([]int64, 0, len(rows))
		for _, s := range rows {
			ids = append(ids, s.ProductID)
		}
		products, err := productRepo.FindByIDs(r.Context(), ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		totals, err := saleRepo.Totals(r.Context(), memberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := memberSales{Sales: make([]saleView, 0, len(rows)), Totals: totals}
		for _, s := range rows {
			view := saleView{Timestamp: s.Timestamp, Price: s.Price}
			if p, ok := products[s.ProductID]; ok {
				view.Product = p.Name
			}
			out.Sales = append(out.Sales, view)
		}
		responses.WriteSuccess(w, out)
	}
}
