// internal/documents/service_test.go
package documents

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
)

func newTestService(t *testing.T) *Service {
	base := t.TempDir()
	svc, err := NewService(filepath.Join(base, "uploads"), filepath.Join(base, "out"), 30, logger.NewTestLogger(t))
	require.NoError(t, err)
	return svc
}

func TestExtractIncome(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected float64
		wantErr  bool
	}{
		{
			name:     "net salary with label",
			content:  "Employee: Priya Sharma\nNet Salary: 85000\nDeductions: 5000",
			expected: 85000,
		},
		{
			name:     "net pay with currency and commas",
			content:  "NET PAY: Rs. 1,05,500.50",
			expected: 105500.50,
		},
		{
			name:     "take home variant",
			content:  "Take Home - 62000",
			expected: 62000,
		},
		{
			name:     "net beats gross when both present",
			content:  "Gross Salary: 95000\nNet Salary: 78000",
			expected: 78000,
		},
		{
			name:     "gross only falls back to gross",
			content:  "Gross Salary: 95000",
			expected: 95000,
		},
		{
			name:    "no salary figure",
			content: "This document contains no figures of interest",
			wantErr: true,
		},
		{
			name:    "empty document",
			content: "   \n  ",
			wantErr: true,
		},
	}

	svc := newTestService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			income, err := svc.ExtractIncome(context.Background(), []byte(tt.content))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeDocumentUnreadable, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, income, 0.01)
		})
	}
}

func TestStoreAndReadDocument(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	name, err := svc.StoreUpload(ctx, "payslip_CUST002.txt", []byte("Net Salary: 65000"))
	require.NoError(t, err)

	content, err := svc.ReadDocument(ctx, name)
	require.NoError(t, err)
	assert.Contains(t, string(content), "65000")

	_, err = svc.ReadDocument(ctx, "missing.txt")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDocumentUnreadable, errors.CodeOf(err))
}

func TestStoreUpload_RejectsTraversal(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.StoreUpload(context.Background(), "../evil.txt", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))

	_, err = svc.ReadDocument(context.Background(), "a/b.txt")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
}

func TestGenerateSanctionLetter(t *testing.T) {
	svc := newTestService(t)

	letter, err := svc.GenerateSanctionLetter(context.Background(), SanctionRequest{
		CustomerID:    "CUST001",
		CustomerName:  "Rajesh Kumar",
		Amount:        300000,
		TenureMonths:  24,
		AnnualRate:    0.09,
		MonthlyEMI:    13704.60,
		ProcessingFee: 6000,
	})
	require.NoError(t, err)

	expectedRef := fmt.Sprintf("SL/%s/CUST001", time.Now().UTC().Format("20060102"))
	assert.Equal(t, expectedRef, letter.Reference)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 30), letter.ValidUntil, time.Minute)
	assert.Contains(t, letter.Content, "Rajesh Kumar")
	assert.Contains(t, letter.Content, "300000.00")
	assert.FileExists(t, letter.Location)
}

func TestGenerateSanctionLetter_IncompleteRequest(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GenerateSanctionLetter(context.Background(), SanctionRequest{CustomerID: "CUST001"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
}
