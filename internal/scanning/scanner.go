package scanning

import "context"

// LineItem is one purchased entry on a receipt
type LineItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity *int    `json:"quantity,omitempty"` // nil means 1
}

// ReceiptRecord is the normalized extraction result
type ReceiptRecord struct {
	Merchant string     `json:"merchant"`
	Date     string     `json:"date"`
	Total    float64    `json:"total"`
	Subtotal *float64   `json:"subtotal,omitempty"`
	Tax      *float64   `json:"tax,omitempty"`
	Items    []LineItem `json:"items"`
	Category string     `json:"category,omitempty"`
}

// Image references an uploaded receipt image.
// URL is the public address returned by storage; Data holds the original bytes
// for providers that need the image inline.
type Image struct {
	URL      string
	Data     []byte
	MIMEType string
}

// Completer defines the interface for the hosted AI text/vision service
type Completer interface {
	// CompleteImage sends a prompt together with an image and returns the raw text reply
	CompleteImage(ctx context.Context, prompt string, image Image) (string, error)
	// CompleteText sends a single text prompt and returns the raw text reply
	CompleteText(ctx context.Context, prompt string) (string, error)
	// Close closes the completer and releases resources
	Close() error
}
