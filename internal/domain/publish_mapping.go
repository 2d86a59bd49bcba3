package domain

import (
	"strings"
	"time"
)

// PublishMapping links a product to its identifier on the external commerce
// channel. Its presence means the product has already been pushed; repeat
// entries into PUBLISHED short-circuit on it.
type PublishMapping struct {
	ID          string
	ProductID   string
	ExternalID  string
	Handle      string
	Status      string
	PublishedAt time.Time
	LastSyncAt  time.Time
}

// NewPublishMapping records a successful external publish.
func NewPublishMapping(id, productID, externalID, handle, status string, now time.Time) (PublishMapping, error) {
	id = strings.TrimSpace(id)
	productID = strings.TrimSpace(productID)
	externalID = strings.TrimSpace(externalID)
	if id == "" || productID == "" || externalID == "" {
		return PublishMapping{}, ErrInvalidID
	}
	if status = strings.TrimSpace(status); status == "" {
		status = "published"
	}
	return PublishMapping{
		ID:          id,
		ProductID:   productID,
		ExternalID:  externalID,
		Handle:      strings.TrimSpace(handle),
		Status:      status,
		PublishedAt: now.UTC(),
		LastSyncAt:  now.UTC(),
	}, nil
}
