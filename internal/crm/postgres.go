// internal/crm/postgres.go
package crm

import (
	"context"
	"database/sql"

	"loan-desk/internal/common/database"
	"loan-desk/internal/common/errors"
	"loan-desk/internal/models"
)

const customerColumns = `customer_id, name, phone, email, city, segment,
	credit_score, pre_approved_limit, monthly_salary, kyc_complete`

// PostgresDirectory serves customer records from the bank's postgres
// replica.
type PostgresDirectory struct {
	client *database.PostgresClient
}

func NewPostgresDirectory(client *database.PostgresClient) *PostgresDirectory {
	return &PostgresDirectory{client: client}
}

func (d *PostgresDirectory) CustomerByID(ctx context.Context, customerID string) (*models.Customer, error) {
	row := d.client.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE customer_id = $1`, customerID)
	return scanCustomer(row, customerID)
}

func (d *PostgresDirectory) CustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	row := d.client.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE phone = $1`, phone)
	return scanCustomer(row, phone)
}

func (d *PostgresDirectory) ExistingLoans(ctx context.Context, customerID string) ([]models.ExistingLoan, error) {
	rows, err := d.client.Query(ctx,
		`SELECT loan_id, type, outstanding, monthly_emi FROM existing_loans WHERE customer_id = $1 ORDER BY loan_id`,
		customerID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("existing_loans", err)
	}
	defer rows.Close()

	var loans []models.ExistingLoan
	for rows.Next() {
		var loan models.ExistingLoan
		if err := rows.Scan(&loan.LoanID, &loan.Type, &loan.Outstanding, &loan.MonthlyEMI); err != nil {
			return nil, errors.NewQueryExecutionFailedError("existing_loans", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("existing_loans", err)
	}
	return loans, nil
}

func (d *PostgresDirectory) ExistingEMI(ctx context.Context, customerID string) (float64, error) {
	loans, err := d.ExistingLoans(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return models.TotalEMI(loans), nil
}

func scanCustomer(row *sql.Row, key string) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.CustomerID, &c.Name, &c.Phone, &c.Email, &c.City, &c.Segment,
		&c.CreditScore, &c.PreApprovedLimit, &c.MonthlySalary, &c.KYCComplete)
	if err == sql.ErrNoRows {
		return nil, errors.NewCustomerNotFoundError(key)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("customers", err)
	}
	return &c, nil
}
