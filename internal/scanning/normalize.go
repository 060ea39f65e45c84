package scanning

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/receipt.schema.json
var receiptSchemaJSON string

var receiptSchema = jsonschema.MustCompileString("receipt.schema.json", receiptSchemaJSON)

// ValidationError is returned when the extractor's reply cannot be turned into a ReceiptRecord.
// Raw and Cleaned are kept for logging only.
type ValidationError struct {
	Raw     string
	Cleaned string
	Reason  string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid receipt data: %s: %v", e.Reason, e.Err)
	}
	return "invalid receipt data: " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StripCodeFence removes a Markdown code fence the model may wrap around its JSON
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(text, "```json"):
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	case strings.HasPrefix(text, "```"):
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	return strings.TrimSpace(text)
}

// Normalize cleans up the raw model reply, parses it and validates it into a ReceiptRecord
func Normalize(raw string) (*ReceiptRecord, error) {
	cleaned := StripCodeFence(raw)
	fail := func(reason string, err error) (*ReceiptRecord, error) {
		return nil, &ValidationError{Raw: raw, Cleaned: cleaned, Reason: reason, Err: err}
	}

	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return fail("response is not valid JSON", err)
	}

	fields, ok := parsed.(map[string]any)
	if !ok {
		return fail("response is not a JSON object", nil)
	}

	for _, key := range []string{"merchant", "total", "items"} {
		if !truthy(fields[key]) {
			return fail(fmt.Sprintf("missing required field %q", key), nil)
		}
	}

	if err := receiptSchema.Validate(parsed); err != nil {
		return fail("response does not match receipt schema", err)
	}

	return toRecord(fields), nil
}

// truthy mirrors the loose presence check applied to the extractor's required keys
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// toRecord copies the schema-checked fields into the strict record type
func toRecord(fields map[string]any) *ReceiptRecord {
	record := &ReceiptRecord{
		Merchant: fields["merchant"].(string),
		Total:    fields["total"].(float64),
		Subtotal: optionalNumber(fields["subtotal"]),
		Tax:      optionalNumber(fields["tax"]),
	}
	if date, ok := fields["date"].(string); ok {
		record.Date = date
	}
	if category, ok := fields["category"].(string); ok {
		record.Category = category
	}

	rawItems := fields["items"].([]any)
	record.Items = make([]LineItem, 0, len(rawItems))
	for _, raw := range rawItems {
		item := raw.(map[string]any)
		line := LineItem{
			Name:  item["name"].(string),
			Price: item["price"].(float64),
		}
		if q, ok := item["quantity"].(float64); ok {
			quantity := int(q)
			line.Quantity = &quantity
		}
		record.Items = append(record.Items, line)
	}

	return record
}

func optionalNumber(v any) *float64 {
	n, ok := v.(float64)
	if !ok {
		return nil
	}
	return &n
}
