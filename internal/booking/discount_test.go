package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	e := NewDiscountEngine()
	assert.EqualValues(t, TierNone, e.TierFor(0))
	assert.EqualValues(t, TierNone, e.TierFor(1))
	assert.EqualValues(t, TierTwo, e.TierFor(2))
	assert.EqualValues(t, TierThree, e.TierFor(3))
	assert.EqualValues(t, TierThree, e.TierFor(7))
}

func TestPriceSingleItem(t *testing.T) {
	e := NewDiscountEngine()
	q := e.Price([]PricedItem{{PriceCents: 2800}})
	assert.EqualValues(t, 2800, q.TotalCents)
	assert.EqualValues(t, 0, q.DiscountCents)
	assert.EqualValues(t, 2800, q.FinalCents)
	assert.EqualValues(t, TierNone, q.Tier)
}

func TestPriceTwoItems(t *testing.T) {
	e := NewDiscountEngine()
	q := e.Price([]PricedItem{{PriceCents: 2800}, {PriceCents: 2800}})
	assert.EqualValues(t, 5600, q.TotalCents)
	assert.EqualValues(t, 600, q.DiscountCents)
	assert.EqualValues(t, 5000, q.FinalCents)
	assert.EqualValues(t, TierTwo, q.Tier)
}

func TestPriceThreeItems(t *testing.T) {
	e := NewDiscountEngine()
	q := e.Price([]PricedItem{{PriceCents: 2800}, {PriceCents: 2800}, {PriceCents: 2800}})
	assert.EqualValues(t, 8400, q.TotalCents)
	assert.EqualValues(t, 1200, q.DiscountCents)
	assert.EqualValues(t, 7200, q.FinalCents)
	assert.EqualValues(t, TierThree, q.Tier)
}

func TestPriceAddonsExcludedFromTier(t *testing.T) {
	e := NewDiscountEngine()
	// One billable item plus two addons: addons count toward the total
	// but never toward the tier.
	q := e.Price([]PricedItem{
		{PriceCents: 2800},
		{PriceCents: 500, Addon: true},
		{PriceCents: 500, Addon: true},
	})
	assert.EqualValues(t, 3800, q.TotalCents)
	assert.EqualValues(t, 0, q.DiscountCents)
	assert.EqualValues(t, 3800, q.FinalCents)
}

func TestPriceOrderIndependent(t *testing.T) {
	e := NewDiscountEngine()
	a := []PricedItem{{PriceCents: 2800}, {PriceCents: 1500}, {PriceCents: 900, Addon: true}}
	b := []PricedItem{{PriceCents: 900, Addon: true}, {PriceCents: 2800}, {PriceCents: 1500}}
	assert.Equal(t, e.Price(a), e.Price(b))
}

func TestPriceFlooredAtZero(t *testing.T) {
	e := NewDiscountEngine()
	// Two billable items cheaper than the tier discount must not
	// produce a negative amount due.
	q := e.Price([]PricedItem{{PriceCents: 100}, {PriceCents: 100}})
	assert.EqualValues(t, 200, q.TotalCents)
	assert.EqualValues(t, 600, q.DiscountCents)
	assert.EqualValues(t, 0, q.FinalCents)
}
