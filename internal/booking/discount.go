package booking

// Discount tiers by billable item count.  The tier value is the
// per-item discount in cents: carts with two billable items get 300
// off per item, carts with three or more get 400 off per item.
const (
	TierNone  = 0
	TierTwo   = 300
	TierThree = 400
)

// Quote is the pricing result for a cart.  FinalCents is TotalCents
// minus DiscountCents, floored at zero.
type Quote struct {
	TotalCents    int64 `json:"total_cents"`
	DiscountCents int64 `json:"discount_cents"`
	FinalCents    int64 `json:"final_cents"`
	Tier          int64 `json:"tier"`
}

// PricedItem is one cart line as seen by the discount engine.  Addon
// items carry a price but never count toward the discount tier.
type PricedItem struct {
	PriceCents int64
	Addon      bool
}

// DiscountEngine computes the deterministic multi-tier discount for a
// cart.  It is a pure function of cart composition: no session
// identity, no item ordering and no external state feed into the
// result, so identical carts always discount identically.
type DiscountEngine struct{}

// NewDiscountEngine returns the engine.  It carries no state; the type
// exists so the lifecycle can hold it as a named collaborator.
func NewDiscountEngine() DiscountEngine { return DiscountEngine{} }

// TierFor returns the per-item discount for a cart with n billable
// items.
func (DiscountEngine) TierFor(n int) int64 {
	switch {
	case n <= 1:
		return TierNone
	case n == 2:
		return TierTwo
	default:
		return TierThree
	}
}

// Price quotes a cart.  The total covers every item including addons;
// the discount is tier × billableCount.  The per-item share written
// back by the lifecycle is exactly the tier for billable items and
// zero for addons, so item shares always sum to the order discount.
func (e DiscountEngine) Price(items []PricedItem) Quote {
	var q Quote
	billable := 0
	for _, it := range items {
		q.TotalCents += it.PriceCents
		if !it.Addon {
			billable++
		}
	}
	q.Tier = e.TierFor(billable)
	q.DiscountCents = q.Tier * int64(billable)
	q.FinalCents = q.TotalCents - q.DiscountCents
	if q.FinalCents < 0 {
		q.FinalCents = 0
	}
	return q
}
