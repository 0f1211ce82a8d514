// Package crm exposes the bank's customer directory to the decision units.
// Three sources implement the same interface: a schema-validated JSON file
// (development and tests), a postgres table, and the remote bank API.
package crm

import (
	"context"

	"loan-desk/internal/models"
)

// Directory is the customer record source.
type Directory interface {
	CustomerByID(ctx context.Context, customerID string) (*models.Customer, error)
	CustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
	ExistingLoans(ctx context.Context, customerID string) ([]models.ExistingLoan, error)
	ExistingEMI(ctx context.Context, customerID string) (float64, error)
}
