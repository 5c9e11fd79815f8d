package orders

import (
	"sort"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
)

// Order is the in-memory purchase being validated. Lines repeat a product
// once per unit, in the order the buy string listed them.
type Order struct {
	Member    *models.Member
	RoomID    int64
	Lines     []*models.Product
	CreatedAt time.Time
}

// StockDemand is the number of units an order takes from one stocked product.
type StockDemand struct {
	ProductID int64
	Units     int
}

func (o *Order) Total() int64 {
	var total int64
	for _, p := range o.Lines {
		total += p.Price
	}
	return total
}

// StockDemands groups the stocked lines per product, ordered by product id so
// concurrent orders lock rows in the same order.
func (o *Order) StockDemands() []StockDemand {
	units := map[int64]int{}
	for _, p := range o.Lines {
		if p.Stocked() {
			units[p.ID]++
		}
	}
	out := make([]StockDemand, 0, len(units))
	for id, n := range units {
		out = append(out, StockDemand{ProductID: id, Units: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Sales renders one sale per line at the line's price, all sharing the order
// timestamp.
func (o *Order) Sales() []models.Sale {
	out := make([]models.Sale, 0, len(o.Lines))
	for _, p := range o.Lines {
		out = append(out, models.Sale{
			MemberID:  o.Member.ID,
			ProductID: p.ID,
			RoomID:    o.RoomID,
			Price:     p.Price,
			Timestamp: o.CreatedAt,
		})
	}
	return out
}

// ReceiptLine is one sold unit.
type ReceiptLine struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
}

// Receipt describes a committed order.
type Receipt struct {
	MemberID   int64             `json:"member_id"`
	RoomID     int64             `json:"room_id"`
	Items      []int64           `json:"items"`
	Lines      []ReceiptLine     `json:"lines"`
	Total      int64             `json:"total"`
	NewBalance int64             `json:"new_balance"`
	CreatedAt  time.Time         `json:"created_on"`
	Products   []*models.Product `json:"-"`
}

func newReceipt(o *Order, newBalance int64) *Receipt {
	r := &Receipt{
		MemberID:   o.Member.ID,
		RoomID:     o.RoomID,
		Items:      make([]int64, 0, len(o.Lines)),
		Lines:      make([]ReceiptLine, 0, len(o.Lines)),
		Total:      o.Total(),
		NewBalance: newBalance,
		CreatedAt:  o.CreatedAt,
		Products:   o.Lines,
	}
	for _, p := range o.Lines {
		r.Items = append(r.Items, p.ID)
		r.Lines = append(r.Lines, ReceiptLine{ProductID: p.ID, Name: p.Name, Price: p.Price})
	}
	return r
}
