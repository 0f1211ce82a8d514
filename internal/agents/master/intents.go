// internal/agents/master/intents.go
package master

import (
	"regexp"
	"strconv"
	"strings"

	"loan-desk/internal/models"
)

// ==========================================
// INTENT CLASSIFICATION
// ==========================================

type intentKind int

const (
	intentUnknown intentKind = iota
	intentIdentify
	intentAmount
	intentSendOTP
	intentOTPCode
	intentUploadDocument
	intentNegotiate
	intentAffirm
	intentDecline
)

type intent struct {
	Kind       intentKind
	CustomerID string
	Phone      string
	Code       string
	Amount     float64
	Purpose    string
	AskedRate  float64
	Document   string
}

var (
	reCustomerID = regexp.MustCompile(`(?i)\b(CUST\d+)\b`)
	rePhone      = regexp.MustCompile(`\b(\d{10})\b`)
	reOTPCode    = regexp.MustCompile(`\b(\d{6})\b`)
	reAmountUnit = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(lakhs?|lacs?|thousand|k)\b`)
	reAmountBare = regexp.MustCompile(`\b(\d{4,9})\b`)
	rePercent    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	rePurpose    = regexp.MustCompile(`(?i)\bfor\s+(?:an?\s+|my\s+)?([a-z][a-z ]{2,40})`)
	reUploadDoc  = regexp.MustCompile(`(?i)\bupload(?:ed)?(?:\s+document)?\s+([A-Za-z0-9._\-]+\.[A-Za-z0-9]+)\b`)
)

var affirmWords = []string{
	"yes", "yeah", "yep", "sure", "ok", "okay", "proceed",
	"go ahead", "confirm", "accept", "sounds good", "done", "agreed",
}

var declineWords = []string{
	"not interested", "no thanks", "no thank you", "cancel",
	"bye", "goodbye", "stop", "quit", "exit",
}

// classify maps the latest user message to a coarse intent. The
// record state disambiguates bare numbers: a six-digit number while a
// code challenge is pending reads as the code, a ten-digit number as a
// phone number, anything else numeric as a loan amount.
func classify(text string, rec *models.ApplicationRecord) intent {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return intent{Kind: intentUnknown}
	}

	if strings.Contains(lower, "send otp") || strings.Contains(lower, "resend otp") {
		return intent{Kind: intentSendOTP}
	}

	if m := reUploadDoc.FindStringSubmatch(text); m != nil {
		return intent{Kind: intentUploadDocument, Document: m[1]}
	}
	if strings.Contains(lower, "upload") {
		return intent{Kind: intentUploadDocument}
	}

	if m := reCustomerID.FindStringSubmatch(text); m != nil {
		return intent{Kind: intentIdentify, CustomerID: strings.ToUpper(m[1])}
	}

	if rec.OTPSent && !rec.PhoneVerified {
		if m := reOTPCode.FindStringSubmatch(text); m != nil && len(m[1]) == 6 {
			if p := rePhone.FindStringSubmatch(text); p == nil {
				return intent{Kind: intentOTPCode, Code: m[1]}
			}
		}
	}

	if m := rePhone.FindStringSubmatch(text); m != nil {
		return intent{Kind: intentIdentify, Phone: m[1]}
	}

	// A percentage or a haggling phrase after offers exist is a rate
	// negotiation, not a fresh amount.
	if len(rec.Offers) > 0 {
		if m := rePercent.FindStringSubmatch(text); m != nil {
			rate, _ := strconv.ParseFloat(m[1], 64)
			return intent{Kind: intentNegotiate, AskedRate: rate / 100}
		}
		for _, w := range []string{"better rate", "lower rate", "discount", "negotiate", "best rate", "reduce"} {
			if strings.Contains(lower, w) {
				return intent{Kind: intentNegotiate}
			}
		}
	}

	if amount, ok := parseAmount(text); ok {
		in := intent{Kind: intentAmount, Amount: amount}
		if m := rePurpose.FindStringSubmatch(text); m != nil {
			in.Purpose = strings.TrimSpace(m[1])
		}
		return in
	}

	for _, w := range declineWords {
		if strings.Contains(lower, w) {
			return intent{Kind: intentDecline}
		}
	}
	if lower == "no" || strings.HasPrefix(lower, "no,") || strings.HasPrefix(lower, "no ") {
		return intent{Kind: intentDecline}
	}

	for _, w := range affirmWords {
		if lower == w || strings.HasPrefix(lower, w+" ") || strings.HasPrefix(lower, w+",") {
			return intent{Kind: intentAffirm}
		}
	}

	return intent{Kind: intentUnknown}
}

func parseAmount(text string) (float64, bool) {
	if m := reAmountUnit.FindStringSubmatch(text); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		switch strings.ToLower(m[2])[0] {
		case 'l':
			return value * 100000, true
		default:
			return value * 1000, true
		}
	}
	if m := reAmountBare.FindStringSubmatch(text); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil || value < 1000 {
			return 0, false
		}
		return value, true
	}
	return 0, false
}
