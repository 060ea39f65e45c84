package scanning

import (
	"strconv"
	"strings"
)

// ExtractionPrompt is the fixed instruction sent with every receipt image
const ExtractionPrompt = `You are analyzing a photo of a purchase receipt. Carefully read all text in the image and extract the purchase details.

Return ONE JSON object with exactly this shape:
{
  "merchant": "Store or business name",
  "date": "Date as printed on the receipt",
  "total": 0.00,
  "subtotal": 0.00,
  "tax": 0.00,
  "items": [
    {"name": "Item name", "price": 0.00, "quantity": 1}
  ],
  "category": "Groceries"
}

Rules:
- "merchant", "total" and "items" are required
- "subtotal", "tax", "category" and each item's "quantity" are optional; omit them when the receipt does not show them
- All amounts must be numbers (not strings), in the receipt's currency
- List items in the order they appear on the receipt
- Do not include any text before or after the JSON`

// BuildChatPrompt embeds the current receipt and the user's question into a single-turn prompt
func BuildChatPrompt(record *ReceiptRecord, message string) string {
	items := make([]string, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, item.Name+" - $"+formatAmount(item.Price))
	}

	var b strings.Builder
	b.WriteString("You are a helpful assistant answering questions about a purchase receipt.\n\n")
	b.WriteString("Receipt details:\n")
	b.WriteString("Merchant: " + record.Merchant + "\n")
	b.WriteString("Date: " + record.Date + "\n")
	b.WriteString("Total: $" + formatAmount(record.Total) + "\n")
	b.WriteString("Items: " + strings.Join(items, ", ") + "\n")
	b.WriteString("Category: " + record.Category + "\n\n")
	b.WriteString("User question: " + message + "\n\n")
	b.WriteString("Answer concisely using only the receipt details above.")
	return b.String()
}

// formatAmount renders a number the shortest way that round-trips (3.5, 9, 12.25)
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
