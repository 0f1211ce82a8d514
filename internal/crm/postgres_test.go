// internal/crm/postgres_test.go
package crm

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-desk/internal/common/database"
	"loan-desk/internal/common/errors"
)

func newMockDirectory(t *testing.T) (*PostgresDirectory, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresDirectory(&database.PostgresClient{DB: db}), mock
}

func customerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"customer_id", "name", "phone", "email", "city", "segment",
		"credit_score", "pre_approved_limit", "monthly_salary", "kyc_complete",
	})
}

func TestPostgresDirectory_CustomerByID(t *testing.T) {
	dir, mock := newMockDirectory(t)

	mock.ExpectQuery(`SELECT .+ FROM customers WHERE customer_id = \$1`).
		WithArgs("CUST002").
		WillReturnRows(customerRows().AddRow(
			"CUST002", "Priya Sharma", "9876543211", "priya.sharma@example.com",
			"Delhi", "prime", 750, 400000.0, 65000.0, true,
		))

	customer, err := dir.CustomerByID(context.Background(), "CUST002")
	require.NoError(t, err)
	assert.Equal(t, "Priya Sharma", customer.Name)
	assert.Equal(t, 750, customer.CreditScore)
	assert.Equal(t, "prime", customer.Segment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectory_CustomerByID_NotFound(t *testing.T) {
	dir, mock := newMockDirectory(t)

	mock.ExpectQuery(`SELECT .+ FROM customers WHERE customer_id = \$1`).
		WithArgs("CUST999").
		WillReturnRows(customerRows())

	_, err := dir.CustomerByID(context.Background(), "CUST999")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCustomerNotFound, errors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectory_CustomerByPhone(t *testing.T) {
	dir, mock := newMockDirectory(t)

	mock.ExpectQuery(`SELECT .+ FROM customers WHERE phone = \$1`).
		WithArgs("9876543211").
		WillReturnRows(customerRows().AddRow(
			"CUST002", "Priya Sharma", "9876543211", "priya.sharma@example.com",
			"Delhi", "prime", 750, 400000.0, 65000.0, true,
		))

	customer, err := dir.CustomerByPhone(context.Background(), "9876543211")
	require.NoError(t, err)
	assert.Equal(t, "CUST002", customer.CustomerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectory_ExistingEMI(t *testing.T) {
	dir, mock := newMockDirectory(t)

	mock.ExpectQuery(`SELECT loan_id, type, outstanding, monthly_emi FROM existing_loans`).
		WithArgs("CUST002").
		WillReturnRows(sqlmock.NewRows([]string{"loan_id", "type", "outstanding", "monthly_emi"}).
			AddRow("LN010", "personal", 150000.0, 5000.0).
			AddRow("LN011", "consumer", 40000.0, 2500.0))

	emi, err := dir.ExistingEMI(context.Background(), "CUST002")
	require.NoError(t, err)
	assert.Equal(t, 7500.0, emi)
	assert.NoError(t, mock.ExpectationsWereMet())
}
