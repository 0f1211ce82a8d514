// internal/crm/remote.go
package crm

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"loan-desk/internal/common/errors"
	httpclient "loan-desk/internal/common/http"
	"loan-desk/internal/models"
)

// RemoteDirectory talks to the bank's CRM HTTP API (the surface the mock
// bank server also exposes).
type RemoteDirectory struct {
	baseURL    string
	httpClient *httpclient.Client
}

func NewRemoteDirectory(baseURL string, timeout time.Duration) *RemoteDirectory {
	return &RemoteDirectory{
		baseURL:    baseURL,
		httpClient: httpclient.NewClient(timeout),
	}
}

func (d *RemoteDirectory) CustomerByID(ctx context.Context, customerID string) (*models.Customer, error) {
	url := fmt.Sprintf("%s/api/crm/customer/%s", d.baseURL, customerID)
	var customer models.Customer
	if err := d.getJSON(ctx, url, customerID, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (d *RemoteDirectory) CustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	url := fmt.Sprintf("%s/api/crm/customer/phone/%s", d.baseURL, phone)
	var customer models.Customer
	if err := d.getJSON(ctx, url, phone, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (d *RemoteDirectory) ExistingLoans(ctx context.Context, customerID string) ([]models.ExistingLoan, error) {
	url := fmt.Sprintf("%s/api/crm/customer/%s/loans", d.baseURL, customerID)
	var result struct {
		Loans []models.ExistingLoan `json:"loans"`
	}
	if err := d.getJSON(ctx, url, customerID, &result); err != nil {
		return nil, err
	}
	return result.Loans, nil
}

func (d *RemoteDirectory) ExistingEMI(ctx context.Context, customerID string) (float64, error) {
	loans, err := d.ExistingLoans(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return models.TotalEMI(loans), nil
}

func (d *RemoteDirectory) getJSON(ctx context.Context, url, key string, out interface{}) error {
	err := d.httpClient.GetJSON(ctx, url, out)
	if err == nil {
		return nil
	}

	var status *httpclient.StatusError
	if stderrors.As(err, &status) && status.StatusCode == http.StatusNotFound {
		return errors.NewCustomerNotFoundError(key)
	}
	return errors.NewCollaboratorFailureError("crm", fmt.Errorf("crm lookup for %s: %w", key, err))
}
