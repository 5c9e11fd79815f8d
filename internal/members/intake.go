package members

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/krestenlaust/micro-stregsystemet/pkg/db/models"
	"github.com/krestenlaust/micro-stregsystemet/pkg/enums"
)

const (
	alcoholWindow      = 12 * time.Hour
	caffeineWindow     = 24 * time.Hour
	caffeineHalfLife   = 5 * time.Hour
	eliminationPerHour = 0.15 // ‰ per hour
	ethanolDensity     = 0.789
	defaultWeightKg    = 80.0
)

// Consumption is one sold unit reduced to what the body cares about.
type Consumption struct {
	Timestamp  time.Time
	AlcoholML  float64
	CaffeineMg int
}

// ConsumptionSource lists a member's consumption since a point in time.
type ConsumptionSource interface {
	ListConsumptionSince(ctx context.Context, memberID int64, since time.Time) ([]Consumption, error)
}

// IntakeEstimator estimates what a member currently carries in their blood.
type IntakeEstimator interface {
	AlcoholPromille(ctx context.Context, member *models.Member, now time.Time) (float64, error)
	CaffeineInBody(ctx context.Context, member *models.Member, now time.Time) (float64, error)
}

type historyEstimator struct {
	source ConsumptionSource
}

// NewIntakeEstimator estimates from sale history: Widmark with linear
// elimination for alcohol, exponential decay for caffeine.
func NewIntakeEstimator(source ConsumptionSource) (IntakeEstimator, error) {
	if source == nil {
		return nil, errors.New("consumption source required")
	}
	return &historyEstimator{source: source}, nil
}

func (e *historyEstimator) AlcoholPromille(ctx context.Context, member *models.Member, now time.Time) (float64, error) {
	items, err := e.source.ListConsumptionSince(ctx, member.ID, now.Add(-alcoholWindow))
	if err != nil {
		return 0, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Timestamp.Before(items[j].Timestamp) })

	ratio := bodyWaterRatio(member.Gender)
	weight := member.WeightKg
	if weight <= 0 {
		weight = defaultWeightKg
	}

	promille := 0.0
	var last time.Time
	for _, item := range items {
		if item.AlcoholML <= 0 || item.Timestamp.After(now) {
			continue
		}
		if !last.IsZero() {
			promille = eliminate(promille, item.Timestamp.Sub(last))
		}
		promille += item.AlcoholML * ethanolDensity / (ratio * weight)
		last = item.Timestamp
	}
	if last.IsZero() {
		return 0, nil
	}
	return eliminate(promille, now.Sub(last)), nil
}

func (e *historyEstimator) CaffeineInBody(ctx context.Context, member *models.Member, now time.Time) (float64, error) {
	items, err := e.source.ListConsumptionSince(ctx, member.ID, now.Add(-caffeineWindow))
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, item := range items {
		if item.CaffeineMg <= 0 || item.Timestamp.After(now) {
			continue
		}
		halfLives := now.Sub(item.Timestamp).Hours() / caffeineHalfLife.Hours()
		total += float64(item.CaffeineMg) * math.Pow(0.5, halfLives)
	}
	return total, nil
}

func eliminate(promille float64, elapsed time.Duration) float64 {
	return math.Max(0, promille-eliminationPerHour*elapsed.Hours())
}

func bodyWaterRatio(g enums.Gender) float64 {
	switch g {
	case enums.GenderMale:
		return 0.68
	case enums.GenderFemale:
		return 0.55
	default:
		return 0.615
	}
}
