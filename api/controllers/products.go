package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/api/responses"
	"github.com/krestenlaust/micro-stregsystemet/api/validators"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	"github.com/krestenlaust/micro-stregsystemet/pkg/logger"
)

type purchasableLister interface {
	ListPurchasable(ctx context.Context, roomID int64, now time.Time) ([]models.Product, error)
}

type aliasLister interface {
	List(ctx context.Context) ([]models.NamedProduct, error)
}

type activeProduct struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// ActiveProducts handles GET /api/products/active_products?room_id=, keyed by product id.
func ActiveProducts(repo purchasableLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := validators.ParseQueryID(r, "room_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := repo.ListPurchasable(r.Context(), roomID, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make(map[string]activeProduct, len(rows))
		for _, p := range rows {
			out[strconv.FormatInt(p.ID, 10)] = activeProduct{Name: p.Name, Price: p.Price}
		}
		responses.WriteSuccess(w, out)
	}
}

// NamedProducts handles GET /api/products/named_products: alias to product id.
func NamedProducts(repo aliasLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := repo.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make(map[string]int64, len(rows))
		for _, np := range rows {
			out[np.Name] = np.ProductID
		}
		responses.WriteSuccess(w, out)
	}
}
