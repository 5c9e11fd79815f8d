package orders

import (
	"fmt"

	pkgerrors "github.com/krestenlaust/micro-stregsystemet/pkg/errors"
)

// RejectionKind names why an order was refused.
type RejectionKind string

const (
	KindInvalidProduct RejectionKind = "invalid_product"
	KindCreditBlocked  RejectionKind = "credit_blocked"
	KindOutOfStock     RejectionKind = "out_of_stock"
)

// Rejection is returned when an order fails validation. Nothing was written.
// ProductID is zero for KindCreditBlocked.
type Rejection struct {
	Kind      RejectionKind
	ProductID int64
	Reason    string
}

func (r *Rejection) Error() string {
	if r.ProductID != 0 {
		return fmt.Sprintf("order rejected: %s (product %d): %s", r.Kind, r.ProductID, r.Reason)
	}
	return fmt.Sprintf("order rejected: %s: %s", r.Kind, r.Reason)
}

// Typed maps the rejection onto the public error contract.
func (r *Rejection) Typed() *pkgerrors.Error {
	code := pkgerrors.CodeInternal
	switch r.Kind {
	case KindInvalidProduct:
		code = pkgerrors.CodeInvalidProduct
	case KindCreditBlocked:
		code = pkgerrors.CodeCreditBlocked
	case KindOutOfStock:
		code = pkgerrors.CodeOutOfStock
	}
	details := map[string]any{"kind": string(r.Kind)}
	if r.ProductID != 0 {
		details["product_id"] = r.ProductID
	}
	return pkgerrors.New(code, r.Reason).WithDetails(details)
}

func invalidProduct(id int64, reason string) *Rejection {
	return &Rejection{Kind: KindInvalidProduct, ProductID: id, Reason: reason}
}

func creditBlocked() *Rejection {
	return &Rejection{Kind: KindCreditBlocked, Reason: "member is blocked from purchasing"}
}

func outOfStock(id int64) *Rejection {
	return &Rejection{Kind: KindOutOfStock, ProductID: id, Reason: "not enough units in stock"}
}
