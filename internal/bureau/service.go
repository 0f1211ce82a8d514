// Package bureau implements the bank's credit assessment rules: bureau
// score lookup, the eligibility ladder and a composite risk score.
package bureau

import (
	"context"
	"fmt"
	"math"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/crm"
	"loan-desk/internal/loan"
	"loan-desk/internal/models"
)

// ConditionSalarySlip is the underwriting condition asking for income proof.
const ConditionSalarySlip = "salary_slip_upload"

// Config carries the underwriting knobs.
type Config struct {
	MinCreditScore        int
	PreApprovedMultiplier float64
	ObligationCapRatio    float64
	ReferenceAnnualRate   float64
	ReferenceTenureMonths int
}

// DefaultConfig returns the bank's standard underwriting parameters.
func DefaultConfig() Config {
	return Config{
		MinCreditScore:        700,
		PreApprovedMultiplier: 2.0,
		ObligationCapRatio:    0.5,
		ReferenceAnnualRate:   0.12,
		ReferenceTenureMonths: 36,
	}
}

// EligibilityResult is the bureau's verdict on one application.
type EligibilityResult struct {
	Decision        models.Decision `json:"decision"`
	ApprovedAmount  float64         `json:"approvedAmount,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	Conditions      []string        `json:"conditions,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
	ProposedEMI     float64         `json:"proposedEmi,omitempty"`
}

// Service evaluates applications against the customer directory.
type Service struct {
	directory crm.Directory
	cfg       Config
	logger    logger.Logger
}

func NewService(directory crm.Directory, cfg Config, log logger.Logger) *Service {
	return &Service{directory: directory, cfg: cfg, logger: log}
}

// CreditScore returns the bureau score for a customer.
func (s *Service) CreditScore(ctx context.Context, customerID string) (int, error) {
	customer, err := s.directory.CustomerByID(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return customer.CreditScore, nil
}

// CheckEligibility applies the decision ladder:
//
//  1. score below minimum: reject with improvement recommendations;
//  2. amount within the pre-approved limit: instant approval;
//  3. amount beyond the eligibility ceiling (multiplier x limit): reject;
//  4. in between: income proof required; once a verified salary is known,
//     approve when reference EMI plus existing obligations fit under the
//     obligation cap, otherwise reject with the affordable maximum.
//
// A nil verifiedSalary means no payslip has been assessed yet.
func (s *Service) CheckEligibility(ctx context.Context, customerID string, amount float64, verifiedSalary *float64) (*EligibilityResult, error) {
	if amount <= 0 {
		return nil, errors.NewInvariantViolationError(fmt.Sprintf("eligibility check for non-positive amount %.2f", amount))
	}

	customer, err := s.directory.CustomerByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if customer.CreditScore < s.cfg.MinCreditScore {
		return &EligibilityResult{
			Decision: models.DecisionRejected,
			Reason: fmt.Sprintf("credit score %d is below the minimum of %d",
				customer.CreditScore, s.cfg.MinCreditScore),
			Recommendations: []string{
				"Clear existing credit card dues to improve your score",
				fmt.Sprintf("Re-apply once your score crosses %d", s.cfg.MinCreditScore),
			},
		}, nil
	}

	if amount <= customer.PreApprovedLimit {
		return &EligibilityResult{
			Decision:       models.DecisionApproved,
			ApprovedAmount: amount,
			Reason:         "within pre-approved limit",
		}, nil
	}

	ceiling := customer.PreApprovedLimit * s.cfg.PreApprovedMultiplier
	if amount > ceiling {
		return &EligibilityResult{
			Decision: models.DecisionRejected,
			Reason: fmt.Sprintf("requested amount %.0f exceeds the maximum eligible %.0f",
				amount, ceiling),
			Recommendations: []string{
				fmt.Sprintf("Apply for up to %.0f instead", ceiling),
			},
		}, nil
	}

	if verifiedSalary == nil {
		return &EligibilityResult{
			Decision:   models.DecisionNeedsDocuments,
			Reason:     "amount above pre-approved limit requires income proof",
			Conditions: []string{ConditionSalarySlip},
		}, nil
	}

	existingEMI, err := s.directory.ExistingEMI(ctx, customerID)
	if err != nil {
		return nil, err
	}

	proposedEMI := loan.EMI(amount, s.cfg.ReferenceAnnualRate, s.cfg.ReferenceTenureMonths)
	capAmount := *verifiedSalary * s.cfg.ObligationCapRatio
	if proposedEMI+existingEMI <= capAmount {
		return &EligibilityResult{
			Decision:       models.DecisionApproved,
			ApprovedAmount: amount,
			Reason:         "verified income supports the requested amount",
			ProposedEMI:    proposedEMI,
		}, nil
	}

	affordable := loan.Affordability(*verifiedSalary, existingEMI,
		s.cfg.ReferenceAnnualRate, s.cfg.ReferenceTenureMonths, s.cfg.ObligationCapRatio)
	return &EligibilityResult{
		Decision: models.DecisionRejected,
		Reason: fmt.Sprintf("EMI %.2f plus existing obligations %.2f exceeds %.0f%% of verified income",
			proposedEMI, existingEMI, s.cfg.ObligationCapRatio*100),
		Recommendations: []string{
			fmt.Sprintf("Based on your income you can afford a loan of up to %.0f", affordable),
		},
		ProposedEMI: proposedEMI,
	}, nil
}

// RiskScore returns a 0-100 composite: higher is riskier. Credit history
// weighs 40 points, exposure over the pre-approved limit 30, and the
// debt-to-income position the remaining 30.
func (s *Service) RiskScore(ctx context.Context, customerID string, amount float64) (int, error) {
	customer, err := s.directory.CustomerByID(ctx, customerID)
	if err != nil {
		return 0, err
	}
	existingEMI, err := s.directory.ExistingEMI(ctx, customerID)
	if err != nil {
		return 0, err
	}

	credit := clamp(float64(850-customer.CreditScore)/250, 0, 1) * 40

	var exposure float64
	if customer.PreApprovedLimit > 0 && amount > customer.PreApprovedLimit {
		over := amount/customer.PreApprovedLimit - 1
		span := s.cfg.PreApprovedMultiplier - 1
		if span <= 0 {
			span = 1
		}
		exposure = clamp(over/span, 0, 1) * 30
	}

	var dti float64
	if customer.MonthlySalary > 0 {
		ratio := existingEMI / customer.MonthlySalary
		dti = clamp(ratio/s.cfg.ObligationCapRatio, 0, 1) * 30
	}

	return int(math.Round(credit + exposure + dti)), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
