package scanning

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server *ghttp.Server
		ollama *Ollama
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		ollama, err = NewOllama(server.URL(), "llava")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewOllama", func() {
		It("should default the base URL and model", func() {
			o, err := NewOllama("", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(o.baseURL).To(Equal("http://localhost:11434"))
			Expect(o.model).To(Equal("llava"))
		})
	})

	Describe("CompleteImage", func() {
		var (
			reply string
			err   error
			image []byte
		)

		BeforeEach(func() {
			image = []byte("\xff\xd8\xff fake jpeg bytes")
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					var req ollamaChatRequest
					Expect(decodeJSON(r, &req)).To(Succeed())
					Expect(req.Model).To(Equal("llava"))
					Expect(req.Stream).To(BeFalse())
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[1].Content).To(Equal(ExtractionPrompt))
					Expect(req.Messages[1].Images).To(ConsistOf(base64.StdEncoding.EncodeToString(image)))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: "```json\n{}\n```"},
					Done:    true,
				}),
			))
		})

		JustBeforeEach(func() {
			reply, err = ollama.CompleteImage(context.Background(), ExtractionPrompt, Image{
				URL:      "https://x/receipts/a.jpg",
				Data:     image,
				MIMEType: "image/jpeg",
			})
		})

		It("should return the raw reply text", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal("```json\n{}\n```"))
		})
	})

	Describe("CompleteText", func() {
		When("the API succeeds", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/api/chat"),
					ghttp.VerifyJSONRepresenting(ollamaChatRequest{
						Model:    "llava",
						Messages: []ollamaMessage{{Role: "user", Content: "hello"}},
					}),
					ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
						Message: ollamaMessage{Role: "assistant", Content: "hi there"},
						Done:    true,
					}),
				))
			})

			It("should return the reply verbatim", func() {
				reply, err := ollama.CompleteText(context.Background(), "hello")
				Expect(err).NotTo(HaveOccurred())
				Expect(reply).To(Equal("hi there"))
			})
		})

		When("the API returns an error status", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
			})

			It("returns the error", func() {
				_, err := ollama.CompleteText(context.Background(), "hello")
				Expect(err).To(MatchError(ContainSubstring("status 500")))
				Expect(err).To(MatchError(ContainSubstring("model not loaded")))
			})
		})
	})
})

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
