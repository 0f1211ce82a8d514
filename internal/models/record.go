// internal/models/record.go
package models

import (
	"fmt"
	"time"
)

// Stage is the coarse position of a conversation in the sales funnel.
type Stage string

const (
	StageGreeting           Stage = "greeting"
	StageNeedsAssessment    Stage = "needs_assessment"
	StageSalesNegotiation   Stage = "sales_negotiation"
	StageVerification       Stage = "verification"
	StageUnderwriting       Stage = "underwriting"
	StageDocumentUpload     Stage = "document_upload"
	StageSanctionGeneration Stage = "sanction_generation"
	StageClosure            Stage = "closure"
)

var stageOrder = map[Stage]int{
	StageGreeting:           0,
	StageNeedsAssessment:    1,
	StageSalesNegotiation:   2,
	StageVerification:       3,
	StageUnderwriting:       4,
	StageDocumentUpload:     5,
	StageSanctionGeneration: 6,
	StageClosure:            7,
}

// Known reports whether s is one of the defined stages.
func (s Stage) Known() bool {
	_, ok := stageOrder[s]
	return ok
}

// Order returns the position of s in the funnel, -1 if unknown.
func (s Stage) Order() int {
	if pos, ok := stageOrder[s]; ok {
		return pos
	}
	return -1
}

// CanTransition reports whether moving from s to next is permitted. Moves
// are forward-only except the underwriting <-> document_upload cycle.
func (s Stage) CanTransition(next Stage) bool {
	if !s.Known() || !next.Known() {
		return false
	}
	if s == next {
		return true
	}
	if s == StageDocumentUpload && next == StageUnderwriting {
		return true
	}
	return stageOrder[next] > stageOrder[s]
}

// Status is the overall outcome of an application.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusAbandoned  Status = "abandoned"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusAbandoned
}

// UnitName identifies a decision unit.
type UnitName string

const (
	UnitMaster       UnitName = "master"
	UnitSales        UnitName = "sales"
	UnitVerification UnitName = "verification"
	UnitUnderwriting UnitName = "underwriting"
	UnitSanction     UnitName = "sanction"
)

// Decision is the underwriting verdict on an application.
type Decision string

const (
	DecisionPending        Decision = "pending"
	DecisionApproved       Decision = "approved"
	DecisionRejected       Decision = "rejected"
	DecisionNeedsDocuments Decision = "needs_documents"
)

// MessageRole distinguishes the two sides of the transcript.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry in the conversation history.
type Message struct {
	Role      MessageRole `json:"role"`
	Unit      UnitName    `json:"unit,omitempty"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// ApplicationRecord is the single shared state of one loan conversation.
// It is mutated only through the dispatch loop; units work on clones so a
// failed step never leaves a half-written record behind.
type ApplicationRecord struct {
	SessionID  string `json:"sessionId"`
	CustomerID string `json:"customerId,omitempty"`

	CustomerName     string  `json:"customerName,omitempty"`
	Phone            string  `json:"phone,omitempty"`
	Email            string  `json:"email,omitempty"`
	Segment          string  `json:"segment,omitempty"`
	CreditScore      int     `json:"creditScore,omitempty"`
	PreApprovedLimit float64 `json:"preApprovedLimit,omitempty"`
	MonthlySalary    float64 `json:"monthlySalary,omitempty"`
	ExistingEMI      float64 `json:"existingEmi,omitempty"`

	Stage   Stage     `json:"stage"`
	Status  Status    `json:"status"`
	History []Message `json:"history"`

	RequestedAmount float64 `json:"requestedAmount,omitempty"`
	LoanPurpose     string  `json:"loanPurpose,omitempty"`
	TenureMonths    int     `json:"tenureMonths,omitempty"`
	Rate            float64 `json:"rate,omitempty"`
	MonthlyEMI      float64 `json:"monthlyEmi,omitempty"`
	Offers          []Offer `json:"offers,omitempty"`

	PhoneVerified   bool   `json:"phoneVerified"`
	KYCVerified     bool   `json:"kycVerified"`
	AddressVerified bool   `json:"addressVerified"`
	OTPSent         bool   `json:"otpSent"`
	OTPAttempts     int    `json:"otpAttempts"`
	ExpectedOTP     string `json:"expectedOtp,omitempty"` // stripped from API responses

	Decision           Decision `json:"decision,omitempty"`
	ApprovedAmount     float64  `json:"approvedAmount,omitempty"`
	Conditions         []string `json:"conditions,omitempty"`
	RejectionReason    string   `json:"rejectionReason,omitempty"`
	Recommendations    []string `json:"recommendations,omitempty"`
	VerifiedSalary     float64  `json:"verifiedSalary,omitempty"`
	SalarySlipUploaded bool     `json:"salarySlipUploaded"`
	UploadedDocument   string   `json:"uploadedDocument,omitempty"`
	RiskScore          int      `json:"riskScore,omitempty"`

	SanctionRef        string     `json:"sanctionRef,omitempty"`
	SanctionLocation   string     `json:"sanctionLocation,omitempty"`
	SanctionValidUntil *time.Time `json:"sanctionValidUntil,omitempty"`

	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Interactions int       `json:"interactions"`
	LastError    string    `json:"lastError,omitempty"`
}

// NewRecord returns a fresh record at the top of the funnel.
func NewRecord(sessionID string) *ApplicationRecord {
	now := time.Now().UTC()
	return &ApplicationRecord{
		SessionID: sessionID,
		Stage:     StageGreeting,
		Status:    StatusInProgress,
		Decision:  DecisionPending,
		History:   []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy. Units mutate the clone; the caller swaps it in
// only after the step succeeds.
func (r *ApplicationRecord) Clone() *ApplicationRecord {
	cp := *r
	cp.History = append([]Message(nil), r.History...)
	cp.Offers = append([]Offer(nil), r.Offers...)
	cp.Conditions = append([]string(nil), r.Conditions...)
	cp.Recommendations = append([]string(nil), r.Recommendations...)
	if r.SanctionValidUntil != nil {
		t := *r.SanctionValidUntil
		cp.SanctionValidUntil = &t
	}
	return &cp
}

// AppendUser appends a user message to the history.
func (r *ApplicationRecord) AppendUser(content string) {
	r.History = append(r.History, Message{
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	r.Interactions++
	r.UpdatedAt = time.Now().UTC()
}

// AppendAssistant appends an assistant message attributed to a unit.
func (r *ApplicationRecord) AppendAssistant(unit UnitName, content string) {
	r.History = append(r.History, Message{
		Role:      RoleAssistant,
		Unit:      unit,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	r.UpdatedAt = time.Now().UTC()
}

// LastMessage returns the newest history entry, nil when empty.
func (r *ApplicationRecord) LastMessage() *Message {
	if len(r.History) == 0 {
		return nil
	}
	return &r.History[len(r.History)-1]
}

// LastUserMessage returns the newest user-authored entry, nil when none.
func (r *ApplicationRecord) LastUserMessage() *Message {
	for i := len(r.History) - 1; i >= 0; i-- {
		if r.History[i].Role == RoleUser {
			return &r.History[i]
		}
	}
	return nil
}

// AdvanceStage moves the record to next, rejecting backward transitions.
func (r *ApplicationRecord) AdvanceStage(next Stage) error {
	if !r.Stage.CanTransition(next) {
		return fmt.Errorf("stage transition %s -> %s not permitted", r.Stage, next)
	}
	r.Stage = next
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// AddCondition records an underwriting condition, ignoring duplicates.
func (r *ApplicationRecord) AddCondition(condition string) {
	for _, c := range r.Conditions {
		if c == condition {
			return
		}
	}
	r.Conditions = append(r.Conditions, condition)
}

// Closed reports whether the conversation has reached a terminal outcome.
func (r *ApplicationRecord) Closed() bool {
	return r.Status.Terminal()
}
