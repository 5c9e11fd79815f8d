package visibility

import (
	"time"

	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	pkgerrors "github.com/krestenlaust/micro-stregsystemet/pkg/errors"
)

// EnsureProductPurchasable enforces the sale window and room rules. Rooms must
// be preloaded on the product; an empty room set means every room.
func EnsureProductPurchasable(product *models.Product, roomID int64, now time.Time) error {
	if product == nil {
		return reject(0, "product not found")
	}
	if !product.Active {
		return reject(product.ID, "product inactive")
	}
	if product.StartDate != nil && now.Before(*product.StartDate) {
		return reject(product.ID, "product not yet on sale")
	}
	if product.DeactivateDate != nil && product.DeactivateDate.Before(now) {
		return reject(product.ID, "product no longer on sale")
	}
	if !VisibleInRoom(product, roomID) {
		return reject(product.ID, "product not sold in this room")
	}
	return nil
}

// VisibleInRoom reports whether the product may be listed in roomID.
func VisibleInRoom(product *models.Product, roomID int64) bool {
	if len(product.Rooms) == 0 {
		return true
	}
	for _, room := range product.Rooms {
		if room.ID == roomID {
			return true
		}
	}
	return false
}

func reject(productID int64, reason string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidProduct, reason).
		WithDetails(map[string]any{"product_id": productID})
}
