package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BuildChatPrompt", func() {
	var record *ReceiptRecord

	BeforeEach(func() {
		record = &ReceiptRecord{
			Merchant: "Corner Store",
			Date:     "01/02/2024",
			Total:    12.5,
			Items: []LineItem{
				{Name: "Milk", Price: 3.5},
				{Name: "Bread", Price: 9.0},
			},
			Category: "Groceries",
		}
	})

	It("should flatten items as name - price", func() {
		prompt := BuildChatPrompt(record, "How much did I spend on dairy?")
		Expect(prompt).To(ContainSubstring("Milk - $3.5, Bread - $9"))
	})

	It("should embed the receipt summary and the literal question", func() {
		prompt := BuildChatPrompt(record, "How much did I spend on dairy?")
		Expect(prompt).To(ContainSubstring("Merchant: Corner Store"))
		Expect(prompt).To(ContainSubstring("Date: 01/02/2024"))
		Expect(prompt).To(ContainSubstring("Total: $12.5"))
		Expect(prompt).To(ContainSubstring("Category: Groceries"))
		Expect(prompt).To(ContainSubstring("User question: How much did I spend on dairy?"))
	})
})
