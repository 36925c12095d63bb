package services

// Client tier tags, persisted verbatim on the client row.
const (
	TierNew       = "new"
	TierRecurring = "recurring"
	TierFrequent  = "frequent"
	TierVIP       = "vip"
)

// Tier thresholds. First matching rule wins.
const (
	vipVisitThreshold       = 5
	vipSpendThreshold       = 50000
	frequentVisitThreshold  = 3
	recurringVisitThreshold = 2
)

// RecomputeTier maps a client's visit count and cumulative spend to a tier
// tag. Pure and idempotent: it reads nothing and writes nothing, so calling
// it twice with the same inputs always yields the same tag.
//
// The caller adds the delivered order's agreed price to the client's total
// before calling; visitCount was already incremented when the order was
// created.
func RecomputeTier(visitCount int, totalSpent float64) string {
	switch {
	case visitCount >= vipVisitThreshold || totalSpent >= vipSpendThreshold:
		return TierVIP
	case visitCount >= frequentVisitThreshold:
		return TierFrequent
	case visitCount >= recurringVisitThreshold:
		return TierRecurring
	default:
		return TierNew
	}
}
