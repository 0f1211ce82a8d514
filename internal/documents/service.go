// Package documents handles payslip intake and sanction letter output.
// Payslips arrive as plain-text uploads; income extraction is a line scan,
// not OCR.
package documents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
)

// Income labels in priority order: a net figure beats a gross one.
var incomePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)net\s*(?:salary|pay)\s*[:\-]?\s*(?:rs\.?|inr)?\s*([\d,]+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)take\s*home\s*[:\-]?\s*(?:rs\.?|inr)?\s*([\d,]+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)gross\s*salary\s*[:\-]?\s*(?:rs\.?|inr)?\s*([\d,]+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)salary\s*[:\-]?\s*(?:rs\.?|inr)?\s*([\d,]+(?:\.\d+)?)`),
}

var safeName = regexp.MustCompile(`^[A-Za-z0-9._\-]+$`)

// SanctionRequest carries everything a sanction letter needs.
type SanctionRequest struct {
	CustomerID    string
	CustomerName  string
	Amount        float64
	TenureMonths  int
	AnnualRate    float64
	MonthlyEMI    float64
	ProcessingFee float64
}

// SanctionLetter is the generated artifact.
type SanctionLetter struct {
	Reference  string
	Location   string
	ValidUntil time.Time
	Content    string
}

// Service owns the upload and output directories.
type Service struct {
	uploadDir    string
	outputDir    string
	validityDays int
	logger       logger.Logger
}

func NewService(uploadDir, outputDir string, validityDays int, log logger.Logger) (*Service, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create document directory %s: %w", dir, err)
		}
	}
	return &Service{
		uploadDir:    uploadDir,
		outputDir:    outputDir,
		validityDays: validityDays,
		logger:       log,
	}, nil
}

// StoreUpload writes an uploaded document and returns its stored name.
func (s *Service) StoreUpload(ctx context.Context, name string, content []byte) (string, error) {
	if !safeName.MatchString(name) {
		return "", errors.NewInvalidRequestError(fmt.Sprintf("illegal document name %q", name))
	}
	path := filepath.Join(s.uploadDir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", errors.NewCollaboratorFailureError("documents", err)
	}
	s.logger.Info("Document stored", map[string]interface{}{
		"name":  name,
		"bytes": len(content),
	})
	return name, nil
}

// ReadDocument returns a stored document's content, looking in both the
// upload and output directories.
func (s *Service) ReadDocument(ctx context.Context, name string) ([]byte, error) {
	if !safeName.MatchString(name) {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("illegal document name %q", name))
	}
	for _, dir := range []string{s.uploadDir, s.outputDir} {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return content, nil
		}
	}
	return nil, errors.NewDocumentUnreadableError(name, "not found")
}

// ExtractIncome pulls the monthly income figure out of a payslip text.
func (s *Service) ExtractIncome(ctx context.Context, content []byte) (float64, error) {
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return 0, errors.NewDocumentUnreadableError("payslip", "empty document")
	}

	for _, pattern := range incomePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		raw := strings.ReplaceAll(match[1], ",", "")
		income, err := strconv.ParseFloat(raw, 64)
		if err != nil || income <= 0 {
			continue
		}
		return income, nil
	}
	return 0, errors.NewDocumentUnreadableError("payslip", "no salary figure found")
}

// GenerateSanctionLetter renders the letter, writes it to the output
// directory and returns the reference SL/<yyyymmdd>/<customer id>.
func (s *Service) GenerateSanctionLetter(ctx context.Context, req SanctionRequest) (*SanctionLetter, error) {
	if req.CustomerID == "" || req.Amount <= 0 || req.TenureMonths <= 0 {
		return nil, errors.NewInvalidRequestError("sanction letter request incomplete")
	}

	now := time.Now().UTC()
	reference := fmt.Sprintf("SL/%s/%s", now.Format("20060102"), req.CustomerID)
	validUntil := now.AddDate(0, 0, s.validityDays)

	content := renderLetter(reference, validUntil, req)

	fileName := fmt.Sprintf("sanction_%s_%s.txt", req.CustomerID, now.Format("20060102"))
	path := filepath.Join(s.outputDir, fileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, errors.NewCollaboratorFailureError("documents", err)
	}

	s.logger.Info("Sanction letter generated", map[string]interface{}{
		"reference":  reference,
		"customerId": req.CustomerID,
		"location":   path,
	})

	return &SanctionLetter{
		Reference:  reference,
		Location:   path,
		ValidUntil: validUntil,
		Content:    content,
	}, nil
}

func renderLetter(reference string, validUntil time.Time, req SanctionRequest) string {
	var b strings.Builder
	b.WriteString("PERSONAL LOAN SANCTION LETTER\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")
	fmt.Fprintf(&b, "Reference: %s\n", reference)
	fmt.Fprintf(&b, "Date: %s\n\n", time.Now().UTC().Format("02 Jan 2006"))
	fmt.Fprintf(&b, "Dear %s,\n\n", req.CustomerName)
	b.WriteString("We are pleased to sanction your personal loan on the following terms:\n\n")
	fmt.Fprintf(&b, "  Customer ID:      %s\n", req.CustomerID)
	fmt.Fprintf(&b, "  Sanctioned Amount: %.2f\n", req.Amount)
	fmt.Fprintf(&b, "  Tenure:           %d months\n", req.TenureMonths)
	fmt.Fprintf(&b, "  Interest Rate:    %.2f%% p.a.\n", req.AnnualRate*100)
	fmt.Fprintf(&b, "  Monthly EMI:      %.2f\n", req.MonthlyEMI)
	fmt.Fprintf(&b, "  Processing Fee:   %.2f\n\n", req.ProcessingFee)
	fmt.Fprintf(&b, "This sanction is valid until %s.\n", validUntil.Format("02 Jan 2006"))
	b.WriteString("\nSincerely,\nLoan Desk\n")
	return b.String()
}
