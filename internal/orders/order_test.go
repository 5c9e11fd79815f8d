package orders

import (
	"testing"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	pkgerrors "github.com/krestenlaust/micro-stregsystemet/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestOrderTotalsAndDemands(t *testing.T) {
	three, one := 3, 1
	a := &models.Product{ID: 9, Price: 1000, Stock: &three}
	b := &models.Product{ID: 2, Price: 250, Stock: &one}
	c := &models.Product{ID: 5, Price: 400}
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	order := &Order{Member: &models.Member{ID: 1}, RoomID: 4, CreatedAt: at, Lines: []*models.Product{a, c, a, b}}

	assert.EqualValues(t, 2650, order.Total())
	assert.Equal(t, []StockDemand{{ProductID: 2, Units: 1}, {ProductID: 9, Units: 2}}, order.StockDemands())

	sales := order.Sales()
	assert.Len(t, sales, 4)
	assert.EqualValues(t, 400, sales[1].Price)
	for _, s := range sales {
		assert.Equal(t, at, s.Timestamp)
		assert.EqualValues(t, 4, s.RoomID)
	}
}

func TestRejectionTyped(t *testing.T) {
	cases := map[*Rejection]pkgerrors.Code{
		invalidProduct(3, "product inactive"): pkgerrors.CodeInvalidProduct,
		creditBlocked():                       pkgerrors.CodeCreditBlocked,
		outOfStock(5):                         pkgerrors.CodeOutOfStock,
	}
	for rejection, code := range cases {
		typed := pkgerrors.As(rejection)
		assert.Equal(t, code, typed.Code())
		details := typed.Details().(map[string]any)
		assert.Equal(t, string(rejection.Kind), details["kind"])
	}
	assert.Contains(t, outOfStock(5).Error(), "product 5")
}
