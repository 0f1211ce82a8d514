// internal/loan/negotiation.go
package loan

// Segment discount ceilings, in annual rate points.
var maxDiscounts = map[string]float64{
	"premium":   0.015,
	"prime":     0.010,
	"preferred": 0.005,
	"standard":  0.002,
}

// loyaltyBonus is the extra discount headroom for top-score customers.
const loyaltyBonus = 0.003

// MaxDiscount returns the deepest rate cut negotiable for a segment and
// credit score.
func MaxDiscount(segment string, creditScore int) float64 {
	discount, ok := maxDiscounts[segment]
	if !ok {
		discount = maxDiscounts["standard"]
	}
	if creditScore >= 800 {
		discount += loyaltyBonus
	}
	return discount
}

// NegotiationResult is the outcome of a rate negotiation round.
type NegotiationResult struct {
	Accepted  bool
	FinalRate float64
	Discount  float64
}

// NegotiateRate answers a customer's ask for a lower rate. The ask is
// granted in full when it fits under the segment ceiling, otherwise the
// ceiling rate comes back as a counter-offer.
func NegotiateRate(currentRate, requestedRate float64, segment string, creditScore int) NegotiationResult {
	if requestedRate >= currentRate {
		return NegotiationResult{Accepted: true, FinalRate: currentRate}
	}

	maxCut := MaxDiscount(segment, creditScore)
	asked := currentRate - requestedRate
	if asked <= maxCut {
		return NegotiationResult{
			Accepted:  true,
			FinalRate: requestedRate,
			Discount:  asked,
		}
	}
	return NegotiationResult{
		Accepted:  false,
		FinalRate: currentRate - maxCut,
		Discount:  maxCut,
	}
}
