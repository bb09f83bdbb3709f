// Package kafka provides the learning worker's intake: a consumer that
// turns topic messages into documents, hands them to the pipeline, and
// routes poison messages to the dead-letter topic.
package kafka

import (
	"encoding/json"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

// LearnRequest is the intake message schema on the learn topic.
type LearnRequest struct {
	// DocumentID is optional; absent IDs are assigned at intake.
	DocumentID string `json:"document_id,omitempty"`
	ProductID  string `json:"product_id,omitempty"`
	Insurer    string `json:"insurer,omitempty"`
	Title      string `json:"title,omitempty"`
	Text       string `json:"text"`

	// PreviousVersionID marks this text as a revision of an earlier
	// document, enabling incremental learning without a product id.
	PreviousVersionID string `json:"previous_version_id,omitempty"`
}

// DecodeLearnRequest parses and validates one intake payload.
func DecodeLearnRequest(payload []byte) (policy.Document, error) {
	var req LearnRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return policy.Document{}, errors.Wrap(err, errors.ErrCodeSerialization, "decode learn request")
	}
	if req.Text == "" {
		return policy.Document{}, errors.New(errors.ErrCodeParseEmpty, "learn request has no text")
	}

	doc := policy.NewDocument(req.ProductID, req.Title, req.Text)
	doc.Insurer = req.Insurer
	doc.PreviousVersionID = req.PreviousVersionID
	if req.DocumentID != "" {
		doc.ID = req.DocumentID
	}
	return doc, nil
}
