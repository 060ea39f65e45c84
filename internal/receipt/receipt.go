package receipt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zombor/receipt-insights/internal/scanning"
)

// DefaultCategory is persisted when the extractor returns no category
const DefaultCategory = "Other"

// FileUpload is a file handed over by the intake surface
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// StoredReceipt is the persisted form of an extraction
type StoredReceipt struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Merchant  string    `json:"merchant"`
	Date      string    `json:"date"`
	Total     float64   `json:"total"`
	Subtotal  float64   `json:"subtotal"`
	Tax       float64   `json:"tax"`
	Items     string    `json:"items"` // JSON-serialized line items
	Category  string    `json:"category"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// newStoredReceipt flattens a normalized record into its persisted form
func newStoredReceipt(id, userID string, record *scanning.ReceiptRecord, imageURL string, now time.Time) (*StoredReceipt, error) {
	items, err := json.Marshal(record.Items)
	if err != nil {
		return nil, fmt.Errorf("serializing items: %w", err)
	}

	stored := &StoredReceipt{
		ID:        id,
		UserID:    userID,
		Merchant:  record.Merchant,
		Date:      record.Date,
		Total:     record.Total,
		Items:     string(items),
		Category:  record.Category,
		ImageURL:  imageURL,
		CreatedAt: now,
	}
	if record.Subtotal != nil {
		stored.Subtotal = *record.Subtotal
	}
	if record.Tax != nil {
		stored.Tax = *record.Tax
	}
	if stored.Category == "" {
		stored.Category = DefaultCategory
	}
	return stored, nil
}
