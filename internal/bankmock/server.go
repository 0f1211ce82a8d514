// internal/bankmock/server.go

// Package bankmock runs a standalone stand-in for the bank's internal
// APIs: customer directory, credit bureau and offer generation. It
// serves the same wire format the remote CRM client consumes, backed
// by the JSON customer fixture, so the pipeline can run end to end
// without the real bank systems.
package bankmock

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/crm"
	"loan-desk/internal/documents"
	"loan-desk/internal/loan"
	"loan-desk/internal/models"
)

type Server struct {
	echo      *echo.Echo
	directory crm.Directory
	pricing   loan.PricingConfig
	documents *documents.Service
	logger    logger.Logger

	offersMu sync.Mutex
	offers   map[string]models.Offer
}

func NewServer(directory crm.Directory, pricing loan.PricingConfig, docs *documents.Service, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		directory: directory,
		pricing:   pricing,
		documents: docs,
		logger:    log,
		offers:    make(map[string]models.Offer),
	}

	e.GET("/api/crm/customer/:id", s.handleCustomerByID)
	e.GET("/api/crm/customer/phone/:phone", s.handleCustomerByPhone)
	e.GET("/api/crm/customer/:id/loans", s.handleCustomerLoans)
	e.GET("/api/credit-bureau/score/:id", s.handleCreditScore)
	e.POST("/api/offers/generate", s.handleGenerateOffers)
	e.GET("/api/offers/:id", s.handleGetOffer)
	e.POST("/api/documents/upload", s.handleDocumentUpload)
	e.GET("/api/documents/download/:name", s.handleDocumentDownload)
	e.GET("/health", s.handleHealth)

	return s
}

func (s *Server) Start(address string) error {
	s.logger.Info("Starting bank API stand-in", map[string]interface{}{
		"address": address,
	})
	if err := s.echo.Start(address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) handleCustomerByID(c echo.Context) error {
	customer, err := s.directory.CustomerByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, customer)
}

func (s *Server) handleCustomerByPhone(c echo.Context) error {
	customer, err := s.directory.CustomerByPhone(c.Request().Context(), c.Param("phone"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, customer)
}

func (s *Server) handleCustomerLoans(c echo.Context) error {
	loans, err := s.directory.ExistingLoans(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	if loans == nil {
		loans = []models.ExistingLoan{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"loans": loans})
}

func (s *Server) handleCreditScore(c echo.Context) error {
	customer, err := s.directory.CustomerByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"customerId":  customer.CustomerID,
		"creditScore": customer.CreditScore,
	})
}

type generateOffersRequest struct {
	CustomerID string  `json:"customerId"`
	Amount     float64 `json:"amount"`
}

func (s *Server) handleGenerateOffers(c echo.Context) error {
	var req generateOffersRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, errors.NewInvalidRequestError("malformed request body"))
	}
	if req.Amount <= 0 {
		return s.fail(c, errors.NewInvalidRequestError("amount must be positive"))
	}

	customer, err := s.directory.CustomerByID(c.Request().Context(), req.CustomerID)
	if err != nil {
		return s.fail(c, err)
	}

	offers := loan.GenerateOffers(req.Amount, customer.Segment, customer.CreditScore, s.pricing)

	s.offersMu.Lock()
	for _, offer := range offers {
		s.offers[offer.OfferID] = offer
	}
	s.offersMu.Unlock()

	return c.JSON(http.StatusOK, map[string]interface{}{"offers": offers})
}

func (s *Server) handleGetOffer(c echo.Context) error {
	s.offersMu.Lock()
	offer, ok := s.offers[c.Param("id")]
	s.offersMu.Unlock()
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": map[string]interface{}{
				"code":    "OFFER_NOT_FOUND",
				"message": "no offer with id " + c.Param("id"),
			},
		})
	}
	return c.JSON(http.StatusOK, offer)
}

func (s *Server) handleDocumentUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return s.fail(c, errors.NewInvalidRequestError("a multipart \"file\" part is required"))
	}

	src, err := file.Open()
	if err != nil {
		return s.fail(c, errors.NewInvalidRequestError("unreadable upload"))
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return s.fail(c, errors.NewInvalidRequestError("unreadable upload"))
	}

	name, err := s.documents.StoreUpload(c.Request().Context(), file.Filename, content)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"name": name, "bytes": len(content)})
}

func (s *Server) handleDocumentDownload(c echo.Context) error {
	content, err := s.documents.ReadDocument(c.Request().Context(), c.Param("name"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.Blob(http.StatusOK, "application/octet-stream", content)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) fail(c echo.Context, err error) error {
	code := errors.CodeOf(err)
	return c.JSON(errors.HTTPStatus(code), map[string]interface{}{
		"error": map[string]interface{}{
			"code":    string(code),
			"message": err.Error(),
		},
	})
}
