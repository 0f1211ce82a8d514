// internal/crm/file.go
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/models"
)

type customerRecord struct {
	models.Customer
	ExistingLoans []models.ExistingLoan `json:"existingLoans,omitempty"`
}

type customersFile struct {
	Customers []customerRecord `json:"customers"`
}

// FileDirectory serves customer records from a customers.json directory
// file. The file is schema-validated once at load; lookups are in-memory
// and read-only afterwards.
type FileDirectory struct {
	byID    map[string]*models.Customer
	byPhone map[string]*models.Customer
	loans   map[string][]models.ExistingLoan
	logger  logger.Logger
}

// NewFileDirectory loads and validates <dataDir>/customers.json.
func NewFileDirectory(dataDir string, log logger.Logger) (*FileDirectory, error) {
	path := filepath.Join(dataDir, "customers.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read customer directory %s: %w", path, err)
	}

	schemaLoader := gojsonschema.NewStringLoader(customersSchema)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("failed to validate customer directory: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("customer directory %s failed schema validation: %s", path, strings.Join(details, "; "))
	}

	var file customersFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse customer directory: %w", err)
	}

	dir := &FileDirectory{
		byID:    make(map[string]*models.Customer, len(file.Customers)),
		byPhone: make(map[string]*models.Customer, len(file.Customers)),
		loans:   make(map[string][]models.ExistingLoan, len(file.Customers)),
		logger:  log,
	}
	for i := range file.Customers {
		rec := file.Customers[i]
		customer := rec.Customer
		dir.byID[customer.CustomerID] = &customer
		dir.byPhone[customer.Phone] = &customer
		dir.loans[customer.CustomerID] = rec.ExistingLoans
	}

	log.Info("Customer directory loaded", map[string]interface{}{
		"path":      path,
		"customers": len(dir.byID),
	})
	return dir, nil
}

func (d *FileDirectory) CustomerByID(ctx context.Context, customerID string) (*models.Customer, error) {
	if customer, ok := d.byID[customerID]; ok {
		cp := *customer
		return &cp, nil
	}
	return nil, errors.NewCustomerNotFoundError(customerID)
}

func (d *FileDirectory) CustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	if customer, ok := d.byPhone[phone]; ok {
		cp := *customer
		return &cp, nil
	}
	return nil, errors.NewCustomerNotFoundError(phone)
}

func (d *FileDirectory) ExistingLoans(ctx context.Context, customerID string) ([]models.ExistingLoan, error) {
	if _, ok := d.byID[customerID]; !ok {
		return nil, errors.NewCustomerNotFoundError(customerID)
	}
	return append([]models.ExistingLoan(nil), d.loans[customerID]...), nil
}

func (d *FileDirectory) ExistingEMI(ctx context.Context, customerID string) (float64, error) {
	loans, err := d.ExistingLoans(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return models.TotalEMI(loans), nil
}
