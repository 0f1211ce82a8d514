// internal/archive/archive.go
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"loan-desk/internal/common/database"
	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/models"
)

// ==========================================
// CONVERSATION ARCHIVE
// ==========================================

// Archiver records closed conversations for audit and analytics.
// Archiving is best effort: a write failure is reported as an error
// but callers treat it as non-fatal and never roll back the session.
type Archiver interface {
	ArchiveConversation(ctx context.Context, rec *models.ApplicationRecord) error
}

type transcriptEntry struct {
	Role      string    `json:"role"`
	Unit      string    `json:"unit,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type conversationDocument struct {
	SessionID    string            `json:"session_id"`
	CustomerID   string            `json:"customer_id,omitempty"`
	Status       string            `json:"status"`
	Stage        string            `json:"stage"`
	Decision     string            `json:"decision,omitempty"`
	SanctionRef  string            `json:"sanction_ref,omitempty"`
	Interactions int               `json:"interactions"`
	Transcript   []transcriptEntry `json:"transcript"`
	ClosedAt     time.Time         `json:"closed_at"`
}

// ElasticsearchArchiver indexes one document per closed conversation.
type ElasticsearchArchiver struct {
	client *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewElasticsearchArchiver(client *database.ElasticsearchClient, index string, log logger.Logger) *ElasticsearchArchiver {
	return &ElasticsearchArchiver{
		client: client,
		index:  index,
		logger: log,
	}
}

func (a *ElasticsearchArchiver) ArchiveConversation(ctx context.Context, rec *models.ApplicationRecord) error {
	doc := conversationDocument{
		SessionID:    rec.SessionID,
		CustomerID:   rec.CustomerID,
		Status:       string(rec.Status),
		Stage:        string(rec.Stage),
		Decision:     string(rec.Decision),
		SanctionRef:  rec.SanctionRef,
		Interactions: rec.Interactions,
		Transcript:   make([]transcriptEntry, 0, len(rec.History)),
		ClosedAt:     time.Now().UTC(),
	}
	for _, msg := range rec.History {
		doc.Transcript = append(doc.Transcript, transcriptEntry{
			Role:      string(msg.Role),
			Unit:      string(msg.Unit),
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		})
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return errors.NewArchiveWriteFailedError(err)
	}

	req := esapi.IndexRequest{
		Index:      a.index,
		DocumentID: rec.SessionID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, a.client.Client)
	if err != nil {
		a.logger.Error("Conversation archive write failed", map[string]interface{}{
			"session_id": rec.SessionID,
			"index":      a.index,
			"error":      err.Error(),
		})
		return errors.NewArchiveWriteFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		a.logger.Error("Conversation archive write rejected", map[string]interface{}{
			"session_id": rec.SessionID,
			"index":      a.index,
			"status":     res.Status(),
		})
		return errors.NewArchiveWriteFailedError(fmt.Errorf("index rejected: %s", res.Status()))
	}

	a.logger.Info("Conversation archived", map[string]interface{}{
		"session_id": rec.SessionID,
		"index":      a.index,
		"status":     string(rec.Status),
	})
	return nil
}

// NoOpArchiver is used when archiving is disabled.
type NoOpArchiver struct{}

func (NoOpArchiver) ArchiveConversation(ctx context.Context, rec *models.ApplicationRecord) error {
	return nil
}
