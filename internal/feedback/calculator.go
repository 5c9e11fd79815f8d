package feedback

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	"github.com/krestenlaust/micro-stregsystemet/pkg/money"
)

const (
	DefaultLowBalanceThreshold int64 = 5000
	DefaultMultibuyWindow            = 60 * time.Second

	caffeinePerCupMg = 70.0
)

// band is one step of the peak table. Bands are ordered by lower bound; the
// last band is the closing sentinel and is never a peak.
type band struct {
	lower  float64
	closes bool
}

var peakBands = []band{
	{lower: 1.29},
	{lower: 1.30},
	{lower: 1.31},
	{lower: 1.32},
	{lower: 1.33},
	{lower: 1.34},
	{lower: 1.35},
	{lower: 1.36},
	{lower: 1.37},
	{lower: 1.38, closes: true},
}

// secondsPerRank spaces the reported peak time between bands.
const secondsPerRank = 137

type PeakResult struct {
	IsPeak  bool
	Minutes int
	Seconds int
}

// Input is everything Compute needs; the calculator reads nothing itself.
type Input struct {
	Member        *models.Member
	Balance       int64
	Promille      float64
	CaffeineMg    float64
	JustPurchased []*models.Product
	// RecentSales are the member's sales, newest first.
	RecentSales  []models.Sale
	CoffeeMaster bool
	FromSale     bool
	Now          time.Time
}

// Feedback is shown to the member after a purchase or when opening the menu.
type Feedback struct {
	Promille                float64 `json:"promille"`
	IsBallmerPeaking        bool    `json:"is_ballmer_peaking"`
	BPMinutes               int     `json:"bp_minutes"`
	BPSeconds               int     `json:"bp_seconds"`
	Caffeine                float64 `json:"caffeine"`
	Cups                    int     `json:"cups"`
	ProductContainsCaffeine bool    `json:"product_contains_caffeine"`
	IsCoffeeMaster          bool    `json:"is_coffee_master"`
	GiveMultibuyHint        bool    `json:"give_multibuy_hint"`
	SaleHints               string  `json:"sale_hints,omitempty"`
	MemberHasLowBalance     bool    `json:"member_has_low_balance"`
	MemberBalance           string  `json:"member_balance"`
}

type Calculator struct {
	lowBalance     int64
	multibuyWindow time.Duration
}

// NewCalculator falls back to the defaults for a negative threshold or a
// non-positive window.
func NewCalculator(lowBalanceThreshold int64, multibuyWindow time.Duration) *Calculator {
	if lowBalanceThreshold < 0 {
		lowBalanceThreshold = DefaultLowBalanceThreshold
	}
	if multibuyWindow <= 0 {
		multibuyWindow = DefaultMultibuyWindow
	}
	return &Calculator{lowBalance: lowBalanceThreshold, multibuyWindow: multibuyWindow}
}

// MultibuyWindow is how far back MultibuyHint looks.
func (c *Calculator) MultibuyWindow() time.Duration {
	return c.multibuyWindow
}

// BallmerPeak picks the highest band whose lower bound is at most promille.
func (c *Calculator) BallmerPeak(promille float64) PeakResult {
	rank := -1
	for i, b := range peakBands {
		if b.lower <= promille {
			rank = i
		}
	}
	if rank < 0 || peakBands[rank].closes {
		return PeakResult{}
	}
	elapsed := (rank + 1) * secondsPerRank
	return PeakResult{IsPeak: true, Minutes: elapsed / 60, Seconds: elapsed % 60}
}

func (c *Calculator) CaffeineCups(mg float64) int {
	if mg <= 0 {
		return 0
	}
	return int(math.Round(mg / caffeinePerCupMg))
}

func (c *Calculator) AnyCaffeinated(products []*models.Product) bool {
	for _, p := range products {
		if p != nil && p.CaffeineContentMg > 0 {
			return true
		}
	}
	return false
}

// MultibuyHint suggests a single buy string for the purchases made within the
// window, but only when they were made as more than one order.
func (c *Calculator) MultibuyHint(displayName string, sales []models.Sale, now time.Time) (string, bool) {
	earliest := now.Add(-c.multibuyWindow)

	orders := map[int64]struct{}{}
	counts := map[int64]int{}
	var seen []int64
	for _, s := range sales {
		if !s.Timestamp.After(earliest) || s.Timestamp.After(now) {
			continue
		}
		orders[s.Timestamp.UnixNano()] = struct{}{}
		if counts[s.ProductID] == 0 {
			seen = append(seen, s.ProductID)
		}
		counts[s.ProductID]++
	}
	if len(orders) <= 1 {
		return "", false
	}

	parts := make([]string, 0, len(seen)+1)
	parts = append(parts, displayName)
	for _, id := range seen {
		part := strconv.FormatInt(id, 10)
		if n := counts[id]; n > 1 {
			part += ":" + strconv.Itoa(n)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " "), true
}

func (c *Calculator) LowBalance(balance int64) bool {
	return balance <= c.lowBalance
}

func (c *Calculator) Compute(in Input) *Feedback {
	peak := c.BallmerPeak(in.Promille)
	fb := &Feedback{
		Promille:                in.Promille,
		IsBallmerPeaking:        peak.IsPeak,
		BPMinutes:               peak.Minutes,
		BPSeconds:               peak.Seconds,
		Caffeine:                in.CaffeineMg,
		Cups:                    c.CaffeineCups(in.CaffeineMg),
		ProductContainsCaffeine: c.AnyCaffeinated(in.JustPurchased),
		IsCoffeeMaster:          in.CoffeeMaster,
		MemberHasLowBalance:     c.LowBalance(in.Balance),
		MemberBalance:           money.Format(in.Balance),
	}
	// The hint is typed back into the terminal, so it leads with the username.
	if in.FromSale && in.Member != nil {
		fb.SaleHints, fb.GiveMultibuyHint = c.MultibuyHint(in.Member.Username, in.RecentSales, in.Now)
	}
	return fb
}
