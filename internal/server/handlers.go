// internal/server/handlers.go
package server

import (
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/workflow"
)

type startSessionRequest struct {
	CustomerID string `json:"customerId"`
}

type postMessageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleStartSession(c echo.Context) error {
	var req startSessionRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, "", errors.NewInvalidRequestError("malformed request body"))
	}

	sessionID := uuid.New().String()
	start := time.Now()
	result, err := s.orchestrator.StartSession(c.Request().Context(), sessionID, req.CustomerID)
	if err != nil {
		s.observeTurn(c, start, nil)
		return s.fail(c, sessionID, err)
	}
	s.observeTurn(c, start, result)
	return c.JSON(http.StatusCreated, result)
}

func (s *Server) handlePostMessage(c echo.Context) error {
	sessionID := c.Param("id")

	var req postMessageRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, sessionID, errors.NewInvalidRequestError("malformed request body"))
	}
	if req.Message == "" {
		return s.fail(c, sessionID, errors.NewInvalidRequestError("message must not be empty"))
	}

	start := time.Now()
	result, err := s.orchestrator.HandleMessage(c.Request().Context(), sessionID, req.Message)
	if err != nil {
		s.observeTurn(c, start, nil)
		return s.fail(c, sessionID, err)
	}
	s.observeTurn(c, start, result)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetSession(c echo.Context) error {
	sessionID := c.Param("id")

	rec, err := s.orchestrator.Record(c.Request().Context(), sessionID)
	if err != nil {
		return s.fail(c, sessionID, err)
	}
	return c.JSON(http.StatusOK, newSessionView(rec))
}

// handleUploadDocument stores the salary artifact and feeds an upload
// notice through the pipeline so underwriting re-runs with it.
func (s *Server) handleUploadDocument(c echo.Context) error {
	sessionID := c.Param("id")

	file, err := c.FormFile("file")
	if err != nil {
		return s.fail(c, sessionID, errors.NewInvalidRequestError("a multipart \"file\" part is required"))
	}
	if s.config.Documents.MaxKBytes > 0 && file.Size > int64(s.config.Documents.MaxKBytes)*1024 {
		return s.fail(c, sessionID, errors.NewInvalidRequestError("document exceeds the size limit"))
	}

	src, err := file.Open()
	if err != nil {
		return s.fail(c, sessionID, errors.NewInvalidRequestError("unreadable upload"))
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return s.fail(c, sessionID, errors.NewInvalidRequestError("unreadable upload"))
	}

	name, err := s.documents.StoreUpload(c.Request().Context(), file.Filename, content)
	if err != nil {
		return s.fail(c, sessionID, err)
	}

	start := time.Now()
	result, err := s.orchestrator.HandleMessage(c.Request().Context(), sessionID, "UPLOAD DOCUMENT "+name)
	if err != nil {
		s.observeTurn(c, start, nil)
		return s.fail(c, sessionID, err)
	}
	s.observeTurn(c, start, result)
	return c.JSON(http.StatusOK, result)
}

// observeTurn records one processed turn, labelled with the resulting
// conversation status or "error" when the turn failed.
func (s *Server) observeTurn(c echo.Context, start time.Time, result *workflow.TurnResult) {
	outcome := "error"
	if result != nil {
		outcome = string(result.Status)
	}
	ctx := c.Request().Context()
	s.obs.RecordTurnProcessed(ctx, outcome)
	s.obs.RecordTurnDuration(ctx, time.Since(start), outcome)
}

func (s *Server) fail(c echo.Context, sessionID string, err error) error {
	stdErr, status := s.errorHandler.Report(sessionID, err)
	return c.JSON(status, map[string]interface{}{"error": stdErr})
}
