// Package loan holds the closed-form pricing arithmetic used by the sales
// and underwriting units: EMI annuity math, offer generation and rate
// negotiation.
package loan

import (
	"math"

	"github.com/google/uuid"

	"loan-desk/internal/models"
)

// Segment base annual rates.
var baseRates = map[string]float64{
	"premium":   0.10,
	"prime":     0.11,
	"preferred": 0.12,
	"standard":  0.14,
}

// DefaultTenures are the tenure options offered during negotiation, in
// months, ascending. The middle option is flagged as recommended.
var DefaultTenures = []int{12, 24, 36}

// BaseRate returns the annual base rate for a customer segment. Unknown
// segments price as standard.
func BaseRate(segment string) float64 {
	if rate, ok := baseRates[segment]; ok {
		return rate
	}
	return baseRates["standard"]
}

// RateAdjustment returns the score-based spread over the segment base.
func RateAdjustment(creditScore int) float64 {
	switch {
	case creditScore >= 800:
		return -0.01
	case creditScore >= 750:
		return 0.0
	case creditScore >= 700:
		return 0.01
	default:
		return 0.02
	}
}

// CustomerRate combines segment base rate and score adjustment.
func CustomerRate(segment string, creditScore int) float64 {
	return BaseRate(segment) + RateAdjustment(creditScore)
}

// EMI computes the equated monthly installment for a principal at an
// annual rate over a tenure in months, using the standard annuity formula.
func EMI(principal, annualRate float64, months int) float64 {
	if months <= 0 || principal <= 0 {
		return 0
	}
	monthlyRate := annualRate / 12
	if monthlyRate == 0 {
		return roundMoney(principal / float64(months))
	}
	factor := math.Pow(1+monthlyRate, float64(months))
	emi := principal * monthlyRate * factor / (factor - 1)
	return roundMoney(emi)
}

// TotalInterest returns the interest paid over the full tenure.
func TotalInterest(principal, annualRate float64, months int) float64 {
	emi := EMI(principal, annualRate, months)
	return roundMoney(emi*float64(months) - principal)
}

// LoanAmountForEMI inverts the annuity formula: the principal a given EMI
// can service at a rate over a tenure.
func LoanAmountForEMI(emi, annualRate float64, months int) float64 {
	if months <= 0 || emi <= 0 {
		return 0
	}
	monthlyRate := annualRate / 12
	if monthlyRate == 0 {
		return roundMoney(emi * float64(months))
	}
	factor := math.Pow(1+monthlyRate, float64(months))
	principal := emi * (factor - 1) / (monthlyRate * factor)
	return roundMoney(principal)
}

// Affordability returns the largest principal a customer can take on, with
// total obligations capped at capRatio of monthly income.
func Affordability(monthlySalary, existingEMI, annualRate float64, months int, capRatio float64) float64 {
	available := monthlySalary*capRatio - existingEMI
	if available <= 0 {
		return 0
	}
	return LoanAmountForEMI(available, annualRate, months)
}

// PricingConfig carries the tunable offer knobs.
type PricingConfig struct {
	ProcessingFeeRate float64
	Tenures           []int
}

// DefaultPricing returns the standard offer configuration.
func DefaultPricing() PricingConfig {
	return PricingConfig{
		ProcessingFeeRate: 0.02,
		Tenures:           DefaultTenures,
	}
}

// GenerateOffers prices one offer per tenure for a customer. Offers come
// back ordered by tenure with the middle one recommended.
func GenerateOffers(amount float64, segment string, creditScore int, cfg PricingConfig) []models.Offer {
	if amount <= 0 {
		return nil
	}
	tenures := cfg.Tenures
	if len(tenures) == 0 {
		tenures = DefaultTenures
	}
	rate := CustomerRate(segment, creditScore)

	offers := make([]models.Offer, 0, len(tenures))
	for i, months := range tenures {
		emi := EMI(amount, rate, months)
		interest := TotalInterest(amount, rate, months)
		offers = append(offers, models.Offer{
			OfferID:       uuid.New().String(),
			Amount:        amount,
			TenureMonths:  months,
			AnnualRate:    rate,
			MonthlyEMI:    emi,
			ProcessingFee: roundMoney(amount * cfg.ProcessingFeeRate),
			TotalInterest: interest,
			TotalPayable:  roundMoney(amount + interest),
			Recommended:   i == len(tenures)/2,
		})
	}
	return offers
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
