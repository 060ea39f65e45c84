package receipt

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-insights/internal/scanning"
)

var _ = Describe("Session", func() {
	var session *Session

	BeforeEach(func() {
		session = NewSession("alice")
	})

	It("starts empty and idle", func() {
		record, analyzing := session.Snapshot()
		Expect(record).To(BeNil())
		Expect(analyzing).To(BeFalse())
		Expect(session.UserID()).To(Equal("alice"))
	})

	Describe("Begin", func() {
		It("admits only one extraction at a time", func() {
			Expect(session.Begin("a.jpg")).To(BeTrue())
			Expect(session.Begin("b.jpg")).To(BeFalse())
			Expect(session.SelectedFile()).To(Equal("a.jpg"))

			session.End()
			Expect(session.Begin("b.jpg")).To(BeTrue())
			Expect(session.SelectedFile()).To(Equal("b.jpg"))
		})

		It("admits exactly one of many concurrent callers", func() {
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				admitted int
			)
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if session.Begin("x.jpg") {
						mu.Lock()
						admitted++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			Expect(admitted).To(Equal(1))
		})
	})

	Describe("Replace", func() {
		It("swaps the record wholesale", func() {
			first := &scanning.ReceiptRecord{Merchant: "A", Category: "Dining"}
			second := &scanning.ReceiptRecord{Merchant: "B"}
			session.Replace(first)
			session.Replace(second)
			Expect(session.Record()).To(BeIdenticalTo(second))
			Expect(session.Record().Category).To(BeEmpty())
		})

		It("ignores nil", func() {
			record := &scanning.ReceiptRecord{Merchant: "A"}
			session.Replace(record)
			session.Replace(nil)
			Expect(session.Record()).To(BeIdenticalTo(record))
		})
	})

	Describe("ClearSelection", func() {
		It("clears the filename when idle", func() {
			session.Begin("a.jpg")
			session.End()
			Expect(session.ClearSelection()).To(BeTrue())
			Expect(session.SelectedFile()).To(BeEmpty())
		})

		It("is refused while analyzing", func() {
			session.Begin("a.jpg")
			Expect(session.ClearSelection()).To(BeFalse())
			Expect(session.SelectedFile()).To(Equal("a.jpg"))
		})
	})

	Describe("notifications", func() {
		It("returns an empty list when nothing is pending", func() {
			Expect(session.TakeNotifications()).To(BeEmpty())
			Expect(session.TakeNotifications()).NotTo(BeNil())
		})

		It("drains pending notifications in order", func() {
			session.push(Notification{Title: "one"})
			session.push(Notification{Title: "two"})
			Expect(session.TakeNotifications()).To(Equal([]Notification{{Title: "one"}, {Title: "two"}}))
			Expect(session.TakeNotifications()).To(BeEmpty())
		})

		It("keeps only the newest notifications", func() {
			for i := 0; i < maxNotifications+5; i++ {
				session.push(Notification{Title: "n"})
			}
			session.push(Notification{Title: "last"})
			pending := session.TakeNotifications()
			Expect(pending).To(HaveLen(maxNotifications))
			Expect(pending[len(pending)-1].Title).To(Equal("last"))
		})

		It("are delivered by the session notifier", func() {
			SessionNotifier{}.Notify(session, Notification{Title: "Receipt analyzed"})
			Expect(session.TakeNotifications()).To(ConsistOf(Notification{Title: "Receipt analyzed"}))
		})
	})
})

var _ = Describe("Sessions", func() {
	It("returns the same session for the same user", func() {
		sessions := NewSessions()
		Expect(sessions.Get("alice")).To(BeIdenticalTo(sessions.Get("alice")))
	})

	It("keeps users apart", func() {
		sessions := NewSessions()
		sessions.Get("alice").Replace(&scanning.ReceiptRecord{Merchant: "A"})
		Expect(sessions.Get("bob").Record()).To(BeNil())
	})
})
