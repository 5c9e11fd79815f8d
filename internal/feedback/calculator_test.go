package feedback

import (
	"testing"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC)

func sale(productID int64, ago time.Duration) models.Sale {
	return models.Sale{MemberID: 1, ProductID: productID, Timestamp: now.Add(-ago)}
}

func TestBallmerPeakBands(t *testing.T) {
	c := NewCalculator(DefaultLowBalanceThreshold, DefaultMultibuyWindow)

	assert.False(t, c.BallmerPeak(0).IsPeak)
	assert.False(t, c.BallmerPeak(1.28).IsPeak)
	assert.False(t, c.BallmerPeak(1.38).IsPeak, "closing band ends the peak")
	assert.False(t, c.BallmerPeak(3).IsPeak)

	prev := -1
	for _, b := range peakBands[:len(peakBands)-1] {
		res := c.BallmerPeak(b.lower + 0.001)
		require.True(t, res.IsPeak, "promille %.3f", b.lower)
		elapsed := res.Minutes*60 + res.Seconds
		assert.Greater(t, elapsed, prev)
		assert.Less(t, res.Seconds, 60)
		prev = elapsed
	}
}

func TestCaffeineCups(t *testing.T) {
	c := NewCalculator(0, 0)
	assert.Equal(t, 0, c.CaffeineCups(0))
	assert.Equal(t, 0, c.CaffeineCups(34))
	assert.Equal(t, 1, c.CaffeineCups(35))
	assert.Equal(t, 1, c.CaffeineCups(70))
	assert.Equal(t, 3, c.CaffeineCups(200))
}

func TestAnyCaffeinated(t *testing.T) {
	c := NewCalculator(0, 0)
	assert.False(t, c.AnyCaffeinated(nil))
	assert.False(t, c.AnyCaffeinated([]*models.Product{{ID: 1}, nil}))
	assert.True(t, c.AnyCaffeinated([]*models.Product{{ID: 1}, {ID: 2, CaffeineContentMg: 80}}))
}

func TestMultibuyHintNeedsTwoOrders(t *testing.T) {
	c := NewCalculator(DefaultLowBalanceThreshold, DefaultMultibuyWindow)

	single := []models.Sale{sale(7, 5*time.Second), sale(7, 5*time.Second), sale(9, 5*time.Second)}
	_, ok := c.MultibuyHint("kresten", single, now)
	assert.False(t, ok, "three items in one order are not a multibuy")

	two := []models.Sale{sale(7, 5*time.Second), sale(9, 20*time.Second), sale(7, 20*time.Second)}
	hint, ok := c.MultibuyHint("kresten", two, now)
	require.True(t, ok)
	assert.Equal(t, "kresten 7:2 9", hint)
}

func TestMultibuyHintWindowIsExclusive(t *testing.T) {
	c := NewCalculator(DefaultLowBalanceThreshold, DefaultMultibuyWindow)

	sales := []models.Sale{sale(7, 10*time.Second), sale(9, 60*time.Second), sale(9, 90*time.Second)}
	_, ok := c.MultibuyHint("kresten", sales, now)
	assert.False(t, ok)
}

func TestMultibuyHintIgnoresLaterSales(t *testing.T) {
	c := NewCalculator(DefaultLowBalanceThreshold, 45*time.Second)
	assert.Equal(t, 45*time.Second, c.MultibuyWindow())

	// A concurrent order committed after this one must not count.
	sales := []models.Sale{sale(9, -5*time.Second), sale(7, 0), sale(7, 0)}
	_, ok := c.MultibuyHint("kresten", sales, now)
	assert.False(t, ok)

	sales = append(sales, sale(9, 30*time.Second))
	hint, ok := c.MultibuyHint("kresten", sales, now)
	require.True(t, ok)
	assert.Equal(t, "kresten 7:2 9", hint)
}

func TestLowBalance(t *testing.T) {
	c := NewCalculator(5000, time.Minute)
	assert.True(t, c.LowBalance(5000))
	assert.True(t, c.LowBalance(-10))
	assert.False(t, c.LowBalance(5001))

	fallback := NewCalculator(-1, 0)
	assert.True(t, fallback.LowBalance(DefaultLowBalanceThreshold))
}

func TestComputeWorkedExample(t *testing.T) {
	c := NewCalculator(DefaultLowBalanceThreshold, DefaultMultibuyWindow)
	member := &models.Member{ID: 1, Username: "kresten"}

	fb := c.Compute(Input{
		Member:        member,
		Balance:       6500,
		Promille:      1.331,
		CaffeineMg:    140,
		JustPurchased: []*models.Product{{ID: 7}, {ID: 9, CaffeineContentMg: 70}},
		RecentSales:   []models.Sale{sale(7, 0), sale(9, 0)},
		FromSale:      true,
		Now:           now,
	})

	assert.False(t, fb.MemberHasLowBalance)
	assert.Equal(t, "65.00", fb.MemberBalance)
	assert.True(t, fb.IsBallmerPeaking)
	assert.Equal(t, 2, fb.Cups)
	assert.True(t, fb.ProductContainsCaffeine)
	assert.False(t, fb.GiveMultibuyHint)
}

func TestComputeHintOnlyFromSale(t *testing.T) {
	c := NewCalculator(DefaultLowBalanceThreshold, DefaultMultibuyWindow)
	in := Input{
		Member:      &models.Member{ID: 1, Username: "kresten", FirstName: "Kresten"},
		RecentSales: []models.Sale{sale(7, time.Second), sale(7, 30*time.Second)},
		Now:         now,
	}

	assert.False(t, c.Compute(in).GiveMultibuyHint)

	in.FromSale = true
	fb := c.Compute(in)
	assert.True(t, fb.GiveMultibuyHint)
	assert.Equal(t, "kresten 7:2", fb.SaleHints)
}
