package receipt

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-insights/internal/scanning"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

var _ = Describe("BuildView", func() {
	var record *scanning.ReceiptRecord

	BeforeEach(func() {
		record = &scanning.ReceiptRecord{
			Merchant: "Corner Store",
			Date:     "01/02/2024",
			Total:    12.5,
			Category: "Groceries",
			Items: []scanning.LineItem{
				{Name: "Milk", Price: 3.5, Quantity: intPtr(2)},
				{Name: "Bread", Price: 9},
			},
		}
	})

	It("shows loading while analyzing, whatever the record", func() {
		Expect(BuildView(record, true)).To(Equal(View{State: ViewLoading}))
		Expect(BuildView(nil, true)).To(Equal(View{State: ViewLoading}))
	})

	It("shows empty when nothing has been extracted", func() {
		Expect(BuildView(nil, false)).To(Equal(View{State: ViewEmpty}))
	})

	It("formats a populated record", func() {
		v := BuildView(record, false)
		Expect(v.State).To(Equal(ViewPopulated))
		Expect(v.Merchant).To(Equal("Corner Store"))
		Expect(v.Date).To(Equal("01/02/2024"))
		Expect(v.Total).To(Equal("$12.50"))
		Expect(v.Category).To(Equal("Groceries"))
		Expect(v.Items).To(Equal([]ItemView{
			{Name: "Milk", Price: "$3.50", Quantity: "×2"},
			{Name: "Bread", Price: "$9.00"},
		}))
	})

	It("omits subtotal and tax when absent", func() {
		v := BuildView(record, false)
		Expect(v.Subtotal).To(BeEmpty())
		Expect(v.Tax).To(BeEmpty())
	})

	It("shows subtotal and tax when present, including zero", func() {
		record.Subtotal = floatPtr(11)
		record.Tax = floatPtr(0)
		v := BuildView(record, false)
		Expect(v.Subtotal).To(Equal("$11.00"))
		Expect(v.Tax).To(Equal("$0.00"))
	})

	It("renders an empty item list for a record without items", func() {
		record.Items = []scanning.LineItem{}
		Expect(BuildView(record, false).Items).To(BeEmpty())
	})
})

var _ = Describe("Renderer", func() {
	var (
		renderer *Renderer
		buf      *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		renderer, err = NewRenderer()
		Expect(err).NotTo(HaveOccurred())
		buf = &bytes.Buffer{}
	})

	It("renders the loading skeleton", func() {
		Expect(renderer.RenderResult(buf, View{State: ViewLoading})).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(`data-state="loading"`))
		Expect(buf.String()).To(ContainSubstring("skeleton"))
	})

	It("renders the empty placeholder", func() {
		Expect(renderer.RenderResult(buf, View{State: ViewEmpty})).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Upload a receipt"))
	})

	It("renders a populated record", func() {
		v := BuildView(&scanning.ReceiptRecord{
			Merchant: "Corner Store",
			Date:     "01/02/2024",
			Total:    12.5,
			Tax:      floatPtr(1),
			Items:    []scanning.LineItem{{Name: "Milk", Price: 3.5, Quantity: intPtr(2)}},
		}, false)
		Expect(renderer.RenderResult(buf, v)).To(Succeed())

		html := buf.String()
		Expect(html).To(ContainSubstring("Corner Store"))
		Expect(html).To(ContainSubstring("$12.50"))
		Expect(html).To(ContainSubstring("×2"))
		Expect(html).To(ContainSubstring("Tax"))
		Expect(html).NotTo(ContainSubstring("Subtotal"))
		Expect(html).NotTo(ContainSubstring(`class="badge"`))
	})

	It("escapes merchant names", func() {
		v := BuildView(&scanning.ReceiptRecord{Merchant: "<script>", Total: 1}, false)
		Expect(renderer.RenderResult(buf, v)).To(Succeed())
		Expect(buf.String()).NotTo(ContainSubstring("<script>"))
	})

	It("renders the page around the result panel", func() {
		Expect(renderer.RenderPage(buf, PageData{
			User:         "alice",
			AuthEnabled:  true,
			SelectedFile: "a.jpg",
			Result:       View{State: ViewEmpty},
		})).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("alice"))
		Expect(buf.String()).To(ContainSubstring("a.jpg"))
		Expect(buf.String()).To(ContainSubstring(`id="result"`))
		Expect(buf.String()).To(ContainSubstring("Sign out"))
	})

	It("shows the failure message on the sign-in page", func() {
		Expect(renderer.RenderSignIn(buf, true)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Invalid username or password."))
	})
})
