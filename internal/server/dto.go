// internal/server/dto.go
package server

import (
	"time"

	"loan-desk/internal/models"
)

// sessionView is the caller-facing projection of a record. The
// expected verification code never leaves the process.
type sessionView struct {
	SessionID  string `json:"sessionId"`
	CustomerID string `json:"customerId,omitempty"`

	CustomerName     string  `json:"customerName,omitempty"`
	Segment          string  `json:"segment,omitempty"`
	PreApprovedLimit float64 `json:"preApprovedLimit,omitempty"`

	Stage  models.Stage  `json:"stage"`
	Status models.Status `json:"status"`

	RequestedAmount float64        `json:"requestedAmount,omitempty"`
	LoanPurpose     string         `json:"loanPurpose,omitempty"`
	TenureMonths    int            `json:"tenureMonths,omitempty"`
	Rate            float64        `json:"rate,omitempty"`
	MonthlyEMI      float64        `json:"monthlyEmi,omitempty"`
	Offers          []models.Offer `json:"offers,omitempty"`

	PhoneVerified bool `json:"phoneVerified"`
	KYCVerified   bool `json:"kycVerified"`

	Decision        models.Decision `json:"decision,omitempty"`
	ApprovedAmount  float64         `json:"approvedAmount,omitempty"`
	Conditions      []string        `json:"conditions,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
	RiskScore       int             `json:"riskScore,omitempty"`

	SanctionRef        string     `json:"sanctionRef,omitempty"`
	SanctionValidUntil *time.Time `json:"sanctionValidUntil,omitempty"`

	History      []models.Message `json:"history"`
	Interactions int              `json:"interactions"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

func newSessionView(rec *models.ApplicationRecord) *sessionView {
	return &sessionView{
		SessionID:          rec.SessionID,
		CustomerID:         rec.CustomerID,
		CustomerName:       rec.CustomerName,
		Segment:            rec.Segment,
		PreApprovedLimit:   rec.PreApprovedLimit,
		Stage:              rec.Stage,
		Status:             rec.Status,
		RequestedAmount:    rec.RequestedAmount,
		LoanPurpose:        rec.LoanPurpose,
		TenureMonths:       rec.TenureMonths,
		Rate:               rec.Rate,
		MonthlyEMI:         rec.MonthlyEMI,
		Offers:             rec.Offers,
		PhoneVerified:      rec.PhoneVerified,
		KYCVerified:        rec.KYCVerified,
		Decision:           rec.Decision,
		ApprovedAmount:     rec.ApprovedAmount,
		Conditions:         rec.Conditions,
		RejectionReason:    rec.RejectionReason,
		Recommendations:    rec.Recommendations,
		RiskScore:          rec.RiskScore,
		SanctionRef:        rec.SanctionRef,
		SanctionValidUntil: rec.SanctionValidUntil,
		History:            rec.History,
		Interactions:       rec.Interactions,
		UpdatedAt:          rec.UpdatedAt,
	}
}
