// internal/models/offer.go
package models

// Offer is one priced loan option presented during negotiation.
type Offer struct {
	OfferID       string  `json:"offerId"`
	Amount        float64 `json:"amount"`
	TenureMonths  int     `json:"tenureMonths"`
	AnnualRate    float64 `json:"annualRate"`
	MonthlyEMI    float64 `json:"monthlyEmi"`
	ProcessingFee float64 `json:"processingFee"`
	TotalInterest float64 `json:"totalInterest"`
	TotalPayable  float64 `json:"totalPayable"`
	Recommended   bool    `json:"recommended"`
}

// RecommendedOffer returns the flagged offer, or the middle one as a
// fallback, nil when the slice is empty.
func RecommendedOffer(offers []Offer) *Offer {
	for i := range offers {
		if offers[i].Recommended {
			return &offers[i]
		}
	}
	if len(offers) == 0 {
		return nil
	}
	return &offers[len(offers)/2]
}
