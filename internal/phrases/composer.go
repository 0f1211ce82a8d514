// Package phrases renders the assistant-facing text for every stage of the
// conversation. The pipeline treats the output as opaque strings; nothing
// downstream parses it back.
package phrases

import (
	"fmt"
	"strings"
	"time"

	"loan-desk/internal/models"
)

// Composer builds customer-facing messages.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

func (c *Composer) Greeting(name string, preApprovedLimit float64) string {
	if name == "" {
		return "Hello! Welcome to our personal loan desk. May I have your registered customer ID or phone number to get started?"
	}
	return fmt.Sprintf("Hello %s! Great news: you are pre-approved for a personal loan of up to %.0f. How much would you like to borrow, and for what purpose?",
		name, preApprovedLimit)
}

func (c *Composer) AskAmount() string {
	return "Could you tell me the loan amount you have in mind? You can say something like \"5 lakhs\" or \"50 thousand\"."
}

func (c *Composer) PresentOffers(offers []models.Offer) string {
	if len(offers) == 0 {
		return c.AskAmount()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Here are your personalised offers for %.0f:\n", offers[0].Amount)
	for _, offer := range offers {
		marker := " "
		if offer.Recommended {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %d months at %.2f%% p.a.: EMI %.2f (processing fee %.2f)\n",
			marker, offer.TenureMonths, offer.AnnualRate*100, offer.MonthlyEMI, offer.ProcessingFee)
	}
	b.WriteString("The starred option is our recommendation. Shall we proceed, or would you like a different rate?")
	return b.String()
}

func (c *Composer) RateAccepted(rate float64, emi float64) string {
	return fmt.Sprintf("Done! I can offer you %.2f%% p.a., bringing your EMI to %.2f. Shall we proceed to verification?", rate*100, emi)
}

func (c *Composer) RateCounterOffer(rate float64, emi float64) string {
	return fmt.Sprintf("The best I can do for your profile is %.2f%% p.a., with an EMI of %.2f. Would that work for you?", rate*100, emi)
}

func (c *Composer) OTPPrompt(phone string) string {
	masked := phone
	if len(phone) >= 4 {
		masked = strings.Repeat("X", len(phone)-4) + phone[len(phone)-4:]
	}
	return fmt.Sprintf("To verify your identity I have sent a 6-digit code to your registered number %s. Please type it here.", masked)
}

func (c *Composer) OTPRetry(attemptsLeft int) string {
	return fmt.Sprintf("That code does not match. You have %d attempt(s) left.", attemptsLeft)
}

func (c *Composer) OTPExhausted() string {
	return "Too many incorrect attempts. Say SEND OTP and I will issue a fresh code."
}

func (c *Composer) VerificationComplete() string {
	return "You are verified. Let me run a quick eligibility check on your application."
}

func (c *Composer) Approved(amount float64, emi float64) string {
	return fmt.Sprintf("Congratulations! Your loan of %.0f is approved with a monthly EMI of %.2f. I am preparing your sanction letter now.", amount, emi)
}

func (c *Composer) Rejected(reason string, recommendations []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I am sorry, we cannot approve this application: %s.", reason)
	if len(recommendations) > 0 {
		b.WriteString(" A few suggestions:\n")
		for _, rec := range recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}
	return b.String()
}

func (c *Composer) NeedsDocuments(conditions []string) string {
	var b strings.Builder
	b.WriteString("We need a little more information before we can decide:\n")
	for _, cond := range conditions {
		fmt.Fprintf(&b, "- %s\n", humanizeCondition(cond))
	}
	b.WriteString("Say UPLOAD DOCUMENT when your document is ready.")
	return b.String()
}

func (c *Composer) DocumentReceived(income float64) string {
	return fmt.Sprintf("Thanks, I have read your payslip and noted a monthly income of %.0f. Re-checking your eligibility now.", income)
}

func (c *Composer) SanctionIssued(reference string, validUntil time.Time) string {
	return fmt.Sprintf("Your sanction letter %s is ready and valid until %s. It has been sent to your registered email. Thank you for banking with us!",
		reference, validUntil.Format("02 Jan 2006"))
}

func (c *Composer) CustomerNotFound() string {
	return "I could not find an account with those details. Could you re-check your customer ID or registered phone number?"
}

func (c *Composer) ProceedToVerification() string {
	return "To move ahead I need to verify your identity. Say SEND OTP and I will text a code to your registered phone."
}

func (c *Composer) Apology() string {
	return "I am sorry, something went wrong on my side. Could you try that again in a moment?"
}

func (c *Composer) Goodbye() string {
	return "Thank you for your time. Feel free to come back whenever you are ready."
}

func humanizeCondition(condition string) string {
	switch condition {
	case "salary_slip_upload":
		return "a recent salary slip to verify your income"
	default:
		return strings.ReplaceAll(condition, "_", " ")
	}
}
