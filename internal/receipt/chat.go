package receipt

import (
	"context"
	"log/slog"

	"github.com/zombor/receipt-insights/internal/scanning"
)

const (
	// NoReceiptReply is returned when there is no receipt to talk about yet
	NoReceiptReply = "Please upload a receipt first so I can answer questions about it."

	// ChatFailureReply is returned when the AI collaborator fails
	ChatFailureReply = "Sorry, I couldn't process your question right now. Please try again."
)

// ChatBridge answers free-text questions about the current receipt.
// Every question is a single independent turn; no history is kept.
type ChatBridge struct {
	completer scanning.Completer
}

// NewChatBridge creates a ChatBridge on top of a completer
func NewChatBridge(completer scanning.Completer) *ChatBridge {
	return &ChatBridge{completer: completer}
}

// Ask returns the model's reply verbatim, or a fixed reply when there is no
// record or the completion fails
func (c *ChatBridge) Ask(ctx context.Context, record *scanning.ReceiptRecord, message string) string {
	if record == nil {
		return NoReceiptReply
	}

	reply, err := c.completer.CompleteText(ctx, scanning.BuildChatPrompt(record, message))
	if err != nil {
		slog.Error("Failed to answer question", "merchant", record.Merchant, "error", &ChatError{Err: err})
		return ChatFailureReply
	}
	return reply
}
