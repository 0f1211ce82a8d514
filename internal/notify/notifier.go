// Package notify delivers OTP challenges over SMS and sanction letters
// over email. Both channels sit behind enable flags and degrade to logged
// no-ops in development.
package notify

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/common/metrics"
)

// Interfaces for mocking the AWS clients.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// GenerateOTP derives a deterministic 6-digit code from a phone number.
// Deterministic so the demo flow is replayable without an SMS inbox.
func GenerateOTP(phone string) string {
	sum := md5.Sum([]byte(phone))
	n := new(big.Int).SetBytes(sum[:])
	digits := n.String()
	return digits[len(digits)-6:]
}

// CheckOTP compares a provided code against the expected one.
func CheckOTP(provided, expected string) bool {
	if expected == "" || len(provided) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

// Notifier is the outbound messaging collaborator.
type Notifier struct {
	sesClient    SESService
	snsClient    SNSService
	smsEnabled   bool
	emailEnabled bool
	fromEmail    string
	logger       logger.Logger
}

type Option func(*Notifier)

// WithSES enables sanction letter email delivery.
func WithSES(client SESService, fromEmail string) Option {
	return func(n *Notifier) {
		n.sesClient = client
		n.fromEmail = fromEmail
		n.emailEnabled = true
	}
}

// WithSNS enables OTP SMS delivery.
func WithSNS(client SNSService) Option {
	return func(n *Notifier) {
		n.snsClient = client
		n.smsEnabled = true
	}
}

func NewNotifier(log logger.Logger, opts ...Option) *Notifier {
	n := &Notifier{logger: log}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SendOTP issues a challenge code for a phone number. SMS delivery is
// best-effort: a failed publish is logged and the code still stands (the
// demo directory has no real handsets behind it).
func (n *Notifier) SendOTP(ctx context.Context, phone string) (string, error) {
	if phone == "" {
		return "", errors.NewInvalidRequestError("phone number required for OTP")
	}

	code := GenerateOTP(phone)

	if n.smsEnabled && n.snsClient != nil {
		message := fmt.Sprintf("Your loan application verification code is %s. Do not share it.", code)
		_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
			Message:     aws.String(message),
			PhoneNumber: aws.String("+91" + phone),
		})
		if err != nil {
			metrics.CollaboratorCallsTotal.WithLabelValues("sns", "error").Inc()
			n.logger.Warn("OTP SMS publish failed", map[string]interface{}{
				"phone": phone,
				"error": err.Error(),
			})
		} else {
			metrics.CollaboratorCallsTotal.WithLabelValues("sns", "ok").Inc()
		}
	}

	n.logger.Info("OTP issued", map[string]interface{}{
		"phone":      phone,
		"smsEnabled": n.smsEnabled,
	})
	return code, nil
}

// EmailSanctionLetter mails the generated letter to the customer. A no-op
// when email delivery is disabled.
func (n *Notifier) EmailSanctionLetter(ctx context.Context, to, customerName, reference, content string) error {
	if !n.emailEnabled || n.sesClient == nil {
		n.logger.Debug("Sanction email skipped, channel disabled", map[string]interface{}{
			"reference": reference,
		})
		return nil
	}
	if to == "" {
		return errors.NewInvalidRequestError("recipient email required")
	}

	subject := fmt.Sprintf("Your loan sanction letter %s", reference)
	body := fmt.Sprintf("Dear %s,\n\nPlease find your sanction letter below.\n\n%s", customerName, content)

	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.fromEmail),
	})
	if err != nil {
		metrics.CollaboratorCallsTotal.WithLabelValues("ses", "error").Inc()
		return errors.NewNotificationSendFailedError("sanction_email", err)
	}
	metrics.CollaboratorCallsTotal.WithLabelValues("ses", "ok").Inc()

	n.logger.Info("Sanction letter emailed", map[string]interface{}{
		"to":        to,
		"reference": reference,
	})
	return nil
}
